package worldtest

import (
	"bytes"
	"testing"

	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/grid"
	world "cityforge.dev/internal/sim/world"
)

// trace is a fixed action stream keyed by the tick it is submitted on.
var trace = map[int][]actions.GameAction{
	0: {
		actions.PlaceRoadLine(90, 100, 130, 100, grid.RoadLocal),
		actions.PlaceRoadLine(110, 90, 110, 120, grid.RoadAvenue),
	},
	1: {
		actions.PlaceUtility("PowerPlant", 90, 101),
		actions.PlaceUtility("WaterTower", 91, 101),
	},
	2: {
		actions.ZoneRect(92, 98, 108, 99, grid.ZoneResidentialLow),
		actions.ZoneRect(112, 98, 128, 99, grid.ZoneCommercialLow),
		actions.ZoneRect(112, 101, 128, 102, grid.ZoneIndustrial),
	},
	40: {actions.PlaceService("FireHouse", 100, 102)},
	80: {actions.BulldozeRect(120, 98, 124, 102), actions.Undo()},
}

func runTrace(t *testing.T, seed uint64, ticks int) []uint64 {
	t.Helper()
	w, err := world.New(world.Config{Seed: seed})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	w.Start()
	hashes := make([]uint64, 0, ticks)
	for i := 0; i < ticks; i++ {
		w.Submit(trace[i]...)
		_, h := w.StepOnce()
		hashes = append(hashes, h)
	}
	return hashes
}

func TestDeterminism_SameSeedSameTraceSameHashes(t *testing.T) {
	a := runTrace(t, 42, 300)
	b := runTrace(t, 42, 300)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tick %d: hash %x vs %x", i, a[i], b[i])
		}
	}
	c := runTrace(t, 43, 300)
	if a[len(a)-1] == c[len(c)-1] {
		t.Fatalf("different seeds converged on the same hash")
	}
}

func TestSaveLoadSave_PayloadsIdentical(t *testing.T) {
	h := NewHarness(t, 11)
	for i := 0; i < 150; i++ {
		h.W.Submit(trace[i]...)
		h.Step()
	}
	first, err := h.W.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	b, err := h.W.SaveBytes()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	w2, err := world.New(world.Config{Seed: 1})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	if err := w2.LoadBytes(b); err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := w2.Snapshot()
	if err != nil {
		t.Fatalf("snapshot 2: %v", err)
	}
	if len(first.Blobs) != len(second.Blobs) {
		t.Fatalf("blob count %d vs %d", len(first.Blobs), len(second.Blobs))
	}
	for i := range first.Blobs {
		x, y := first.Blobs[i], second.Blobs[i]
		if x.Key != y.Key || !bytes.Equal(x.Value, y.Value) {
			t.Fatalf("blob %q differs after reload", x.Key)
		}
	}
	if w2.StateHash() != h.W.StateHash() {
		t.Fatalf("hash %x vs %x", w2.StateHash(), h.W.StateHash())
	}
}

func TestNewGame_ResetsToFreshCity(t *testing.T) {
	used := NewHarness(t, 8)
	for i := 0; i < 60; i++ {
		used.W.Submit(trace[i]...)
		used.Step()
	}
	used.Do(actions.NewGame(5, "Riverbend"))

	fresh := NewHarness(t, 8)
	fresh.Do(actions.NewGame(5, "Riverbend"))

	if used.W.StateHash() != fresh.W.StateHash() {
		t.Fatalf("new game hash %x vs fresh %x", used.W.StateHash(), fresh.W.StateHash())
	}
	if n := len(used.W.Buildings()); n != 0 {
		t.Fatalf("buildings survived new game: %d", n)
	}
	if used.W.UndoHistory().CanUndo() {
		t.Fatalf("undo history survived new game")
	}
	used.RequireInvariants()
}

func TestEdgeRoads_StayInBounds(t *testing.T) {
	h := NewHarness(t, 12)
	h.W.DebugSetTreasury(1e6)
	w, ht := grid.Width-1, grid.Height-1
	h.Do(
		actions.PlaceRoadLine(0, 0, w, 0, grid.RoadLocal),
		actions.PlaceRoadLine(w, 0, w, ht, grid.RoadLocal),
		actions.PlaceRoadLine(0, ht, w, ht, grid.RoadLocal),
		actions.PlaceRoadLine(0, 0, 0, ht, grid.RoadLocal),
		actions.PlaceRoadLine(0, 0, w, ht, grid.RoadLocal),
		actions.GameAction{Kind: actions.KindPlaceRoadSegment, X0: 0, Y0: ht, X1: w, Y1: 0},
	)
	if h.RoadCells() == 0 {
		t.Fatalf("no road cells placed")
	}
	h.StepN(3)
	h.RequireInvariants()
}
