package savefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	MaxSlots         = 20
	DefaultAutosaves = 3
)

var (
	ErrSlotRange = errors.New("savefile: slot out of range")
	ErrNoSave    = errors.New("savefile: no valid save")
)

// Dir is a save directory holding numbered slots and rotating autosaves.
type Dir struct {
	Path string
	// Autosaves is the rotation length; 0 means DefaultAutosaves.
	Autosaves int
	// Next is the autosave index written next, 1-based.
	Next int
}

func NewDir(path string, autosaves int) *Dir {
	return &Dir{Path: path, Autosaves: autosaves, Next: 1}
}

func (d *Dir) rotation() int {
	if d.Autosaves <= 0 {
		return DefaultAutosaves
	}
	return d.Autosaves
}

// SlotPath is slot_NN.bin for n in [1, MaxSlots].
func (d *Dir) SlotPath(n int) (string, error) {
	if n < 1 || n > MaxSlots {
		return "", fmt.Errorf("%w: %d", ErrSlotRange, n)
	}
	return filepath.Join(d.Path, fmt.Sprintf("slot_%02d.bin", n)), nil
}

func (d *Dir) AutosavePath(n int) string {
	return filepath.Join(d.Path, fmt.Sprintf("autosave_%d.bin", n))
}

// ParseSlot accepts "3", "slot_03" or "slot_03.bin".
func ParseSlot(s string) (int, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "slot_"), ".bin")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("slot %q: %w", s, err)
	}
	if n < 1 || n > MaxSlots {
		return 0, fmt.Errorf("%w: %d", ErrSlotRange, n)
	}
	return n, nil
}

func (d *Dir) WriteSlot(n int, f *File) (string, error) {
	p, err := d.SlotPath(n)
	if err != nil {
		return "", err
	}
	return p, WriteFile(p, f)
}

func (d *Dir) ReadSlot(n int) (*File, error) {
	p, err := d.SlotPath(n)
	if err != nil {
		return nil, err
	}
	return ReadFile(p)
}

// Autosave writes the next autosave file in rotation and advances it.
func (d *Dir) Autosave(f *File) (string, error) {
	if d.Next < 1 || d.Next > d.rotation() {
		d.Next = 1
	}
	p := d.AutosavePath(d.Next)
	if err := WriteFile(p, f); err != nil {
		return "", err
	}
	d.Next = d.Next%d.rotation() + 1
	return p, nil
}

// Entry describes one file on disk.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	Meta    Metadata
	// Err is set when the header or checksum does not validate.
	Err error
}

func (d *Dir) entry(path string) (Entry, bool) {
	st, err := os.Stat(path)
	if err != nil {
		return Entry{}, false
	}
	e := Entry{Name: filepath.Base(path), Path: path, Size: st.Size(), ModTime: st.ModTime()}
	b, err := os.ReadFile(path)
	if err != nil {
		e.Err = err
		return e, true
	}
	e.Meta, e.Err = Verify(b)
	return e, true
}

// List returns every slot and autosave present, slots first.
func (d *Dir) List() []Entry {
	var out []Entry
	for n := 1; n <= MaxSlots; n++ {
		p, _ := d.SlotPath(n)
		if e, ok := d.entry(p); ok {
			out = append(out, e)
		}
	}
	for n := 1; n <= d.rotation(); n++ {
		if e, ok := d.entry(d.AutosavePath(n)); ok {
			out = append(out, e)
		}
	}
	return out
}

// CleanTemp removes leftover temporary files from interrupted writes and
// returns their names.
func (d *Dir) CleanTemp() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.Path, "*"+TempSuffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	var removed []string
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, err
		}
		removed = append(removed, filepath.Base(m))
	}
	return removed, nil
}

// Recovery is the outcome of a startup crash check.
type Recovery struct {
	Removed []string
	// Latest is the newest autosave that validates; empty when none does.
	Latest Entry
	Found  bool
}

// Recover cleans temporary files, then validates autosaves newest first and
// reports the most recent valid one. The next autosave index continues after
// it.
func (d *Dir) Recover() (Recovery, error) {
	var r Recovery
	removed, err := d.CleanTemp()
	r.Removed = removed
	if err != nil {
		return r, err
	}
	var autos []Entry
	idx := map[string]int{}
	for n := 1; n <= d.rotation(); n++ {
		if e, ok := d.entry(d.AutosavePath(n)); ok {
			autos = append(autos, e)
			idx[e.Path] = n
		}
	}
	sort.SliceStable(autos, func(i, j int) bool { return autos[i].ModTime.After(autos[j].ModTime) })
	for _, e := range autos {
		if e.Err == nil {
			r.Latest, r.Found = e, true
			d.Next = idx[e.Path]%d.rotation() + 1
			return r, nil
		}
	}
	return r, nil
}

// LoadLatest reads the autosave Recover selected.
func (d *Dir) LoadLatest() (*File, error) {
	r, err := d.Recover()
	if err != nil {
		return nil, err
	}
	if !r.Found {
		return nil, ErrNoSave
	}
	return ReadFile(r.Latest.Path)
}
