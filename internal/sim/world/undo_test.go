package world

import (
	"testing"

	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/grid"
)

// undoRoundTrip applies a, then checks that undo restores the prior hash
// and redo the post-action one.
func undoRoundTrip(t *testing.T, w *World, a actions.GameAction) {
	t.Helper()
	before := w.DebugRefreshHash()
	if err := w.Apply(a); err != nil {
		t.Fatalf("%s: %v", a, err)
	}
	after := w.StateHash()
	if after == before {
		t.Fatalf("%s did not change the hash", a)
	}
	if err := w.Apply(actions.Undo()); err != nil {
		t.Fatalf("undo %s: %v", a, err)
	}
	if got := w.StateHash(); got != before {
		t.Fatalf("undo %s: hash=%x want %x", a, got, before)
	}
	if err := w.Apply(actions.Redo()); err != nil {
		t.Fatalf("redo %s: %v", a, err)
	}
	if got := w.StateHash(); got != after {
		t.Fatalf("redo %s: hash=%x want %x", a, got, after)
	}
}

func TestUndoRedo_RestoresHash(t *testing.T) {
	w := newTestWorld(t)
	w.DebugSetTreasury(100000)
	steps := []actions.GameAction{
		actions.PlaceRoadLine(30, 30, 45, 30, grid.RoadLocal),
		actions.PlaceRoadLine(35, 25, 35, 35, grid.RoadAvenue),
		actions.ZoneRect(30, 28, 45, 29, grid.ZoneResidentialLow),
		actions.PlaceUtility("PowerPlant", 30, 31),
		actions.PlaceUtility("WaterTower", 31, 31),
		actions.PlaceService("FireHouse", 40, 31),
		actions.PlaceService("Levee", 44, 31),
		{Kind: actions.KindPlaceRoadSegment, X0: 50, Y0: 50, X1: 60, Y1: 55},
		actions.BulldozeRect(33, 28, 41, 31),
	}
	for _, a := range steps {
		undoRoundTrip(t, w, a)
	}
}

func TestUndo_BulldozeRestoresBuildingAndResidents(t *testing.T) {
	w := newTestWorld(t)
	if err := w.Apply(actions.PlaceRoadLine(60, 60, 70, 60, grid.RoadLocal)); err != nil {
		t.Fatalf("road: %v", err)
	}
	if _, err := w.DebugPlaceBuilding(62, 61, grid.ZoneResidentialLow, 0); err != nil {
		t.Fatalf("building: %v", err)
	}
	if _, err := w.DebugPlaceBuilding(66, 61, grid.ZoneCommercialLow, 0); err != nil {
		t.Fatalf("shop: %v", err)
	}
	if _, err := w.DebugSpawnCitizen(62, 61); err != nil {
		t.Fatalf("citizen: %v", err)
	}

	undoRoundTrip(t, w, actions.BulldozeRect(60, 60, 70, 61))

	if err := w.Apply(actions.Undo()); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := len(w.Buildings()); got != 2 {
		t.Fatalf("buildings after undo=%d want 2", got)
	}
	if !w.Grid().At(62, 61).HasBuilding() {
		t.Fatalf("cell lost its building reference")
	}
	if err := w.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestUndo_HistoryClearsRedoOnNewAction(t *testing.T) {
	w := newTestWorld(t)
	if err := w.Apply(actions.PlaceRoadLine(10, 10, 12, 10, grid.RoadLocal)); err != nil {
		t.Fatalf("road: %v", err)
	}
	if err := w.Apply(actions.Undo()); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !w.UndoHistory().CanRedo() {
		t.Fatalf("redo stack empty after undo")
	}
	if err := w.Apply(actions.PlaceRoadLine(20, 10, 22, 10, grid.RoadLocal)); err != nil {
		t.Fatalf("road: %v", err)
	}
	if w.UndoHistory().CanRedo() {
		t.Fatalf("new action kept the redo stack")
	}
	wantCode(t, w.Apply(actions.Redo()), actions.NotFound)
}

func TestBulldoze_RefundsHalfTheRoad(t *testing.T) {
	w := newTestWorld(t)
	if err := w.Apply(actions.PlaceRoadLine(10, 10, 19, 10, grid.RoadLocal)); err != nil {
		t.Fatalf("road: %v", err)
	}
	before := w.Budget().Treasury
	if err := w.Apply(actions.BulldozeRect(10, 10, 19, 10)); err != nil {
		t.Fatalf("bulldoze: %v", err)
	}
	want := before + 10*grid.RoadLocal.Cost()*roadRefund
	if got := w.Budget().Treasury; got != want {
		t.Fatalf("treasury=%v want %v", got, want)
	}
	if w.Network().Len() != 0 {
		t.Fatalf("network still has %d nodes", w.Network().Len())
	}
}

func TestCheckInvariants_AfterTicks(t *testing.T) {
	w := newTestWorld(t)
	for _, a := range []actions.GameAction{
		actions.PlaceRoadLine(90, 100, 110, 100, grid.RoadLocal),
		actions.PlaceUtility("PowerPlant", 90, 100),
		actions.PlaceUtility("WaterTower", 91, 100),
		actions.ZoneRect(92, 98, 108, 98, grid.ZoneResidentialLow),
		actions.PlaceService("FireHouse", 100, 102),
	} {
		if err := w.Apply(a); err != nil {
			t.Fatalf("%s: %v", a, err)
		}
	}
	for i := 0; i < 5; i++ {
		w.StepOnce()
		if err := w.CheckInvariants(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
}
