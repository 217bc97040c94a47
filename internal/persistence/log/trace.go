// Package log writes and reads tick traces: one JSON line per executed tick,
// zstd-compressed and segmented by game day, under a directory per run.
package log

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/world"
)

const (
	tracePrefix = "ticks"
	headerName  = "run.json"
)

var ErrNoTrace = errors.New("trace: no tick files")

// RunHeader identifies the world a trace was recorded against.
type RunHeader struct {
	RunID     string    `json:"run_id"`
	Seed      uint64    `json:"seed"`
	CityName  string    `json:"city_name"`
	Flat      bool      `json:"flat_terrain,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

func NewRunHeader(seed uint64, city string, flat bool) RunHeader {
	return RunHeader{
		RunID:     uuid.NewString(),
		Seed:      seed,
		CityName:  city,
		Flat:      flat,
		StartedAt: time.Now().UTC(),
	}
}

// TickLogger writes one JSONL entry per tick into <dir>/<run id>/.
type TickLogger struct {
	dir string
	w   *JSONLZstdWriter
}

func NewTickLogger(baseDir string, h RunHeader) (*TickLogger, error) {
	if h.RunID == "" {
		return nil, fmt.Errorf("trace: empty run id")
	}
	dir := filepath.Join(baseDir, h.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, headerName), append(b, '\n'), 0o644); err != nil {
		return nil, err
	}
	return &TickLogger{dir: dir, w: NewJSONLZstdWriter(dir, tracePrefix)}, nil
}

func (l *TickLogger) Dir() string { return l.dir }

func (l *TickLogger) WriteTick(e world.TickLogEntry) error {
	return l.w.Write(fmt.Sprintf("d%05d", e.Day), e)
}

func (l *TickLogger) Flush() error { return l.w.Flush() }
func (l *TickLogger) Close() error { return l.w.Close() }

func ReadRunHeader(runDir string) (RunHeader, error) {
	var h RunHeader
	b, err := os.ReadFile(filepath.Join(runDir, headerName))
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(b, &h); err != nil {
		return h, fmt.Errorf("trace header: %w", err)
	}
	return h, nil
}

// ReadTrace returns every tick entry of a run in tick order.
func ReadTrace(runDir string) ([]world.TickLogEntry, error) {
	files, err := filepath.Glob(filepath.Join(runDir, tracePrefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoTrace
	}
	sort.Strings(files)

	var out []world.TickLogEntry
	for _, p := range files {
		err := ReadJSONL(p, func(line []byte) error {
			var e world.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(p), err)
			}
			out = append(out, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, nil
}

// Entries flattens a trace into tick-stamped actions for actions.Player.
func Entries(trace []world.TickLogEntry) []actions.Entry {
	var out []actions.Entry
	for _, t := range trace {
		for _, a := range t.Actions {
			out = append(out, actions.Entry{Tick: t.Tick, Action: a})
		}
	}
	return out
}

// Mismatch is the first tick whose replayed digest differs from the trace.
type Mismatch struct {
	Tick uint64
	Want string
	Got  string
}

func (m Mismatch) Error() string {
	return fmt.Sprintf("tick %d: digest %s, trace has %s", m.Tick, m.Got, m.Want)
}

// Replay runs w from its current tick through the last traced tick, feeding
// the traced actions back and comparing digests. It returns the number of
// ticks checked, or a Mismatch.
func Replay(w *world.World, trace []world.TickLogEntry) (int, error) {
	if len(trace) == 0 {
		return 0, ErrNoTrace
	}
	p := actions.NewPlayer(Entries(trace))
	w.SetPlayer(p)
	defer w.SetPlayer(nil)

	want := make(map[uint64]string, len(trace))
	for _, t := range trace {
		want[t.Tick] = t.Digest
	}
	last := trace[len(trace)-1].Tick
	checked := 0
	for w.CurrentTick() <= last {
		tick, _ := w.StepOnce()
		if d, ok := want[tick]; ok {
			checked++
			if got := w.StateDigest(); got != d {
				return checked, Mismatch{Tick: tick, Want: d, Got: got}
			}
		}
		// A paused world never reaches the last tick on its own.
		if w.CurrentTick() == tick && p.Done() {
			break
		}
	}
	return checked, nil
}
