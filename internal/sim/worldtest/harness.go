// Package worldtest drives a world through its exported API only, the way a
// frontend or replay tool would.
package worldtest

import (
	"testing"

	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/grid"
	world "cityforge.dev/internal/sim/world"
)

// Harness wraps a world for black-box tests:
// - Do applies an action immediately and fails the test on rejection
// - Step/StepN run fast ticks through StepOnce
// - Buildings*/Count helpers read state without touching internals
type Harness struct {
	T *testing.T
	W *world.World
}

// NewHarness builds a flat-terrain world for seed and leaves the main menu.
func NewHarness(t *testing.T, seed uint64) *Harness {
	t.Helper()
	return NewHarnessWithConfig(t, world.Config{Seed: seed, FlatTerrain: true})
}

func NewHarnessWithConfig(t *testing.T, cfg world.Config) *Harness {
	t.Helper()
	w, err := world.New(cfg)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	w.Start()
	return &Harness{T: t, W: w}
}

// NewHarnessWithWorld wraps an existing world, e.g. one restored from bytes.
func NewHarnessWithWorld(t *testing.T, w *world.World) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	return &Harness{T: t, W: w}
}

// Do applies each action in order and fails on the first rejection.
func (h *Harness) Do(as ...actions.GameAction) {
	h.T.Helper()
	for _, a := range as {
		if err := h.W.Apply(a); err != nil {
			h.T.Fatalf("%s: %v", a, err)
		}
	}
}

// Reject applies a and requires it to fail with want.
func (h *Harness) Reject(a actions.GameAction, want actions.ActionError) {
	h.T.Helper()
	if got := actions.Code(h.W.Apply(a)); got != want {
		h.T.Fatalf("%s: code=%v want %v", a, got, want)
	}
}

// Step runs one fast tick and returns the hash after it.
func (h *Harness) Step() uint64 {
	_, hash := h.W.StepOnce()
	return hash
}

func (h *Harness) StepN(n int) uint64 {
	var hash uint64
	for i := 0; i < n; i++ {
		hash = h.Step()
	}
	return hash
}

// StepUntilMonth runs ticks until the next monthly collection has happened.
// The calendar is jumped to the last minute before it.
func (h *Harness) StepUntilMonth() {
	h.T.Helper()
	b := h.W.Budget()
	h.W.SetClock(b.LastCollectionDay+world.MonthDays-1, 23.99)
	start := b.LastCollectionDay
	for i := 0; i < 1000; i++ {
		h.Step()
		if h.W.Budget().LastCollectionDay != start {
			return
		}
	}
	h.T.Fatalf("no monthly collection after jumping to day %d", start+world.MonthDays-1)
}

// BuildingsIn lists the buildings inside r.
func (h *Harness) BuildingsIn(r grid.Rect) []world.BuildingInfo {
	var out []world.BuildingInfo
	for _, b := range h.W.Buildings() {
		if r.Contains(b.GridX, b.GridY) {
			out = append(out, b)
		}
	}
	return out
}

// RequireInvariants fails the test when any world invariant is broken.
func (h *Harness) RequireInvariants() {
	h.T.Helper()
	if err := h.W.CheckInvariants(); err != nil {
		h.T.Fatalf("invariants at tick %d: %v", h.W.CurrentTick(), err)
	}
}

// RoadCells counts road cells on the grid.
func (h *Harness) RoadCells() int {
	n := 0
	g := h.W.Grid()
	for i := range g.Cells {
		if g.Cells[i].Type == grid.Road {
			n++
		}
	}
	return n
}
