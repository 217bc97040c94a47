// Package archive keeps one zstd-compressed save per completed game year
// under <dir>/archives/year_NNN/.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"cityforge.dev/internal/persistence/savefile"
	"cityforge.dev/internal/sim/weather"
)

const (
	saveName = "city.bin.zst"
	metaName = "meta.json"
)

var ErrNotArchived = errors.New("archive: year not archived")

type YearArchiveMeta struct {
	Year       int     `json:"year"`
	Day        uint32  `json:"day"`
	CityName   string  `json:"city_name"`
	Population uint32  `json:"population"`
	Treasury   float64 `json:"treasury"`
	Save       string  `json:"save"`
	RawBytes   int     `json:"raw_bytes"`
	Bytes      int     `json:"bytes"`
	CreatedAt  string  `json:"created_at"`
}

// YearEnd reports the year that ends on day, or 0 when day is not the last
// day of a year.
func YearEnd(day uint32) int {
	if day == 0 || day%weather.DaysPerYear != 0 {
		return 0
	}
	return int(day / weather.DaysPerYear)
}

func yearDir(baseDir string, year int) string {
	return filepath.Join(baseDir, "archives", fmt.Sprintf("year_%03d", year))
}

// SavePath is where the save for year is archived.
func SavePath(baseDir string, year int) string {
	return filepath.Join(yearDir(baseDir, year), saveName)
}

// ArchiveYear stores f when its metadata day closes a year. An existing
// archive for that year is left alone.
func ArchiveYear(baseDir string, f *savefile.File) (meta YearArchiveMeta, archived bool, err error) {
	year := YearEnd(f.Meta.Day)
	if year == 0 {
		return meta, false, nil
	}
	dir := yearDir(baseDir, year)
	if _, err := os.Stat(filepath.Join(dir, metaName)); err == nil {
		return meta, false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return meta, false, err
	}

	raw, err := savefile.Encode(f)
	if err != nil {
		return meta, false, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return meta, false, err
	}
	packed := enc.EncodeAll(raw, nil)
	_ = enc.Close()

	dst := SavePath(baseDir, year)
	if err := os.WriteFile(dst+savefile.TempSuffix, packed, 0o644); err != nil {
		return meta, false, err
	}
	if err := os.Rename(dst+savefile.TempSuffix, dst); err != nil {
		return meta, false, err
	}

	meta = YearArchiveMeta{
		Year:       year,
		Day:        f.Meta.Day,
		CityName:   f.Meta.CityName,
		Population: f.Meta.Population,
		Treasury:   f.Meta.Treasury,
		Save:       saveName,
		RawBytes:   len(raw),
		Bytes:      len(packed),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return meta, false, err
	}
	if err := os.WriteFile(filepath.Join(dir, metaName), b, 0o644); err != nil {
		return meta, false, err
	}
	return meta, true, nil
}

// Open decompresses and decodes the save archived for year.
func Open(baseDir string, year int) (*savefile.File, error) {
	packed, err := os.ReadFile(SavePath(baseDir, year))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %d", ErrNotArchived, year)
	}
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(packed, nil)
	if err != nil {
		return nil, fmt.Errorf("year %d: %w", year, err)
	}
	return savefile.Decode(raw)
}

// List returns the archived years in order. Directories without a readable
// meta.json are skipped.
func List(baseDir string) ([]YearArchiveMeta, error) {
	dirs, err := filepath.Glob(filepath.Join(baseDir, "archives", "year_*"))
	if err != nil {
		return nil, err
	}
	var out []YearArchiveMeta
	for _, d := range dirs {
		b, err := os.ReadFile(filepath.Join(d, metaName))
		if err != nil {
			continue
		}
		var m YearArchiveMeta
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}
