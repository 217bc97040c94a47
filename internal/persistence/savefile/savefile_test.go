package savefile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sample() *File {
	return &File{
		Meta: Metadata{CityName: "Harbor", Population: 42, Treasury: 1234.5, Day: 7, Hour: 13.5, PlayTimeSeconds: 99},
		Blobs: []Blob{
			{Key: "clock", Value: []byte{1, 2, 3}},
			{Key: "grid", Value: nil},
			{Key: "budget", Value: bytes.Repeat([]byte{9}, 300)},
		},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	b, err := Encode(sample())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(b[:4]) != Magic {
		t.Fatalf("magic=%q", b[:4])
	}
	h, err := ParseHeader(b)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Version != Version || int(HeaderSize+h.MetadataLen+h.PayloadLen) != len(b) {
		t.Fatalf("header=%+v len=%d", h, len(b))
	}
	f, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Meta != sample().Meta {
		t.Fatalf("meta=%+v", f.Meta)
	}
	if len(f.Blobs) != 3 {
		t.Fatalf("blobs=%d", len(f.Blobs))
	}
	if v, ok := f.Get("budget"); !ok || len(v) != 300 {
		t.Fatalf("budget blob len=%d ok=%v", len(v), ok)
	}
	if v, ok := f.Get("grid"); !ok || len(v) != 0 {
		t.Fatalf("empty blob lost")
	}
	again, _ := Encode(f)
	if !bytes.Equal(b, again) {
		t.Fatalf("re-encode differs")
	}
}

func TestDecode_RejectsCorruption(t *testing.T) {
	b, _ := Encode(sample())

	bad := append([]byte(nil), b...)
	bad[len(bad)-1] ^= 0xFF
	if _, err := Decode(bad); !errors.Is(err, ErrChecksum) {
		t.Fatalf("flipped payload: %v", err)
	}

	bad = append([]byte(nil), b...)
	copy(bad, "NOPE")
	if _, err := Decode(bad); !errors.Is(err, ErrMagic) {
		t.Fatalf("bad magic: %v", err)
	}

	if _, err := Decode(b[:len(b)-5]); !errors.Is(err, ErrShort) {
		t.Fatalf("truncated: %v", err)
	}
	if _, err := Decode(b[:10]); !errors.Is(err, ErrShort) {
		t.Fatalf("short header: %v", err)
	}
}

func TestEncode_EmptyMetadataName(t *testing.T) {
	b, err := Encode(&File{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	f, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Meta.CityName != "" || len(f.Blobs) != 0 {
		t.Fatalf("got %+v", f)
	}
}

func TestWriteFile_AtomicRename(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "slot_01.bin")
	if err := WriteFile(p, sample()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := os.Stat(p + TempSuffix); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file left behind: %v", err)
	}
	f, err := ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if f.Meta.CityName != "Harbor" {
		t.Fatalf("city=%q", f.Meta.CityName)
	}
}

func TestSlots(t *testing.T) {
	d := NewDir(t.TempDir(), 0)
	if _, err := d.SlotPath(0); !errors.Is(err, ErrSlotRange) {
		t.Fatalf("slot 0: %v", err)
	}
	if _, err := d.SlotPath(MaxSlots + 1); !errors.Is(err, ErrSlotRange) {
		t.Fatalf("slot 21: %v", err)
	}
	p, err := d.WriteSlot(3, sample())
	if err != nil {
		t.Fatalf("WriteSlot: %v", err)
	}
	if filepath.Base(p) != "slot_03.bin" {
		t.Fatalf("path=%s", p)
	}
	if _, err := d.ReadSlot(3); err != nil {
		t.Fatalf("ReadSlot: %v", err)
	}
	for _, s := range []string{"3", "slot_03", "slot_03.bin"} {
		if n, err := ParseSlot(s); err != nil || n != 3 {
			t.Fatalf("ParseSlot(%q)=%d,%v", s, n, err)
		}
	}
	if _, err := ParseSlot("slot_99"); err == nil {
		t.Fatalf("slot_99 accepted")
	}
	if got := d.List(); len(got) != 1 || got[0].Err != nil || got[0].Meta.Population != 42 {
		t.Fatalf("list=%+v", got)
	}
}

func TestAutosave_RotatesThroughThree(t *testing.T) {
	d := NewDir(t.TempDir(), 3)
	var names []string
	for i := 0; i < 4; i++ {
		p, err := d.Autosave(sample())
		if err != nil {
			t.Fatalf("Autosave: %v", err)
		}
		names = append(names, filepath.Base(p))
	}
	want := []string{"autosave_1.bin", "autosave_2.bin", "autosave_3.bin", "autosave_1.bin"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("rotation=%v", names)
		}
	}
}

func TestRecover_CleansTempAndPicksNewestValid(t *testing.T) {
	dir := t.TempDir()
	d := NewDir(dir, 3)
	for i := 0; i < 3; i++ {
		if _, err := d.Autosave(sample()); err != nil {
			t.Fatalf("Autosave: %v", err)
		}
	}
	base := time.Now().Add(-time.Hour)
	for n := 1; n <= 3; n++ {
		mt := base.Add(time.Duration(n) * time.Minute)
		if err := os.Chtimes(d.AutosavePath(n), mt, mt); err != nil {
			t.Fatalf("Chtimes: %v", err)
		}
	}
	// Newest autosave is corrupt; the one before must win.
	raw, _ := os.ReadFile(d.AutosavePath(3))
	raw[len(raw)-1] ^= 0xFF
	if err := os.WriteFile(d.AutosavePath(3), raw, 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	mt := base.Add(10 * time.Minute)
	_ = os.Chtimes(d.AutosavePath(3), mt, mt)
	if err := os.WriteFile(filepath.Join(dir, "slot_01.bin"+TempSuffix), []byte("partial"), 0o644); err != nil {
		t.Fatalf("temp: %v", err)
	}

	r, err := d.Recover()
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if len(r.Removed) != 1 || r.Removed[0] != "slot_01.bin.tmp" {
		t.Fatalf("removed=%v", r.Removed)
	}
	if !r.Found || r.Latest.Name != "autosave_2.bin" {
		t.Fatalf("latest=%+v found=%v", r.Latest, r.Found)
	}
	if d.Next != 3 {
		t.Fatalf("next autosave=%d want 3", d.Next)
	}
}

func TestLoadLatest_NoSaves(t *testing.T) {
	d := NewDir(t.TempDir(), 3)
	if _, err := d.LoadLatest(); !errors.Is(err, ErrNoSave) {
		t.Fatalf("err=%v", err)
	}
}
