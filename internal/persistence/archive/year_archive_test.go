package archive

import (
	"bytes"
	"errors"
	"testing"

	"cityforge.dev/internal/persistence/savefile"
	"cityforge.dev/internal/sim/weather"
)

func sampleFile(day uint32) *savefile.File {
	return &savefile.File{
		Meta: savefile.Metadata{CityName: "Harbor", Population: 1200, Treasury: 5400.5, Day: day, Hour: 23.5},
		Blobs: []savefile.Blob{
			{Key: "grid", Value: bytes.Repeat([]byte{1, 2, 3, 4}, 512)},
			{Key: "clock", Value: []byte{9, 9}},
		},
	}
}

func TestYearEnd(t *testing.T) {
	cases := []struct {
		day  uint32
		want int
	}{
		{0, 0},
		{1, 0},
		{weather.DaysPerYear - 1, 0},
		{weather.DaysPerYear, 1},
		{weather.DaysPerYear + 1, 0},
		{3 * weather.DaysPerYear, 3},
	}
	for _, tc := range cases {
		if got := YearEnd(tc.day); got != tc.want {
			t.Fatalf("YearEnd(%d)=%d want %d", tc.day, got, tc.want)
		}
	}
}

func TestArchiveYear_WritesCompressedSave(t *testing.T) {
	dir := t.TempDir()
	f := sampleFile(2 * weather.DaysPerYear)

	meta, ok, err := ArchiveYear(dir, f)
	if err != nil {
		t.Fatalf("ArchiveYear: %v", err)
	}
	if !ok || meta.Year != 2 {
		t.Fatalf("archived=%v meta=%+v", ok, meta)
	}
	if meta.Bytes >= meta.RawBytes {
		t.Fatalf("no compression: %d >= %d", meta.Bytes, meta.RawBytes)
	}

	got, err := Open(dir, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Meta != f.Meta {
		t.Fatalf("meta=%+v want %+v", got.Meta, f.Meta)
	}
	if v, ok := got.Get("grid"); !ok || !bytes.Equal(v, f.Blobs[0].Value) {
		t.Fatalf("grid blob lost")
	}

	// Second call for the same year keeps the first archive.
	f.Meta.Population = 1
	if _, ok, err := ArchiveYear(dir, f); err != nil || ok {
		t.Fatalf("re-archive: ok=%v err=%v", ok, err)
	}

	list, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Population != 1200 {
		t.Fatalf("list=%+v", list)
	}
}

func TestArchiveYear_SkipsMidYear(t *testing.T) {
	dir := t.TempDir()
	if _, ok, err := ArchiveYear(dir, sampleFile(100)); err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if _, err := Open(dir, 1); !errors.Is(err, ErrNotArchived) {
		t.Fatalf("err=%v want ErrNotArchived", err)
	}
}
