package world

import (
	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/env"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/stats"
	"cityforge.dev/internal/sim/utilities"
	"cityforge.dev/internal/sim/zones"
)

// roadRefund is the share of a road's placement cost returned on bulldozing.
const roadRefund = 0.5

// cityEdit records an undoable action while it mutates the world. Cells are
// captured on first touch; commit fills in the after state and pushes the
// record unless nothing changed.
type cityEdit struct {
	w       *World
	rec     actions.CityAction
	touched map[int]bool
}

func (w *World) beginEdit(kind actions.CityActionKind) *cityEdit {
	return &cityEdit{
		w:       w,
		rec:     actions.CityAction{Kind: kind, TreasuryBefore: w.budget.Treasury},
		touched: map[int]bool{},
	}
}

func (e *cityEdit) touch(x, y int) {
	i := grid.Index(x, y)
	if e.touched[i] {
		return
	}
	e.touched[i] = true
	e.rec.Cells = append(e.rec.Cells, actions.CellChange{
		Index:      i,
		Before:     e.w.grid.Cells[i],
		BeforeCond: e.w.condition.Grid.Cells[i],
	})
}

func (e *cityEdit) snapshotSegments() {
	if e.rec.SegmentsBefore == nil {
		e.rec.SegmentsBefore = e.w.segments.Clone()
	}
}

func (e *cityEdit) snapshotBarriers() {
	if e.rec.Barriers == nil {
		e.rec.Barriers = &actions.BarrierChange{Before: append([]env.Barrier(nil), e.w.protection.Barriers...)}
	}
}

// abort puts back every captured cell and the segment arena.
func (e *cityEdit) abort() {
	for _, c := range e.rec.Cells {
		e.w.restoreCell(c.Index, c.Before, c.BeforeCond)
	}
	if e.rec.SegmentsBefore != nil {
		e.w.segments = e.rec.SegmentsBefore
	}
	e.w.network.RebuildFromGrid(e.w.grid)
}

func (e *cityEdit) commit() {
	w := e.w
	kept := e.rec.Cells[:0]
	for _, c := range e.rec.Cells {
		c.After = w.grid.Cells[c.Index]
		c.AfterCond = w.condition.Grid.Cells[c.Index]
		if c.After != c.Before || c.AfterCond != c.BeforeCond {
			kept = append(kept, c)
		}
	}
	e.rec.Cells = kept
	if e.rec.SegmentsBefore != nil {
		e.rec.SegmentsAfter = w.segments.Clone()
	}
	if e.rec.Barriers != nil {
		e.rec.Barriers.After = append([]env.Barrier(nil), w.protection.Barriers...)
	}
	e.rec.TreasuryAfter = w.budget.Treasury
	if e.rec.Empty() {
		return
	}
	w.undo.Record(e.rec)
	w.markEdited()
}

// markEdited invalidates the caches an edit can affect. Power and water
// flags are propagated later in the tick, never here.
func (w *World) markEdited() {
	w.roadsDirty = true
	w.utilitiesDirty = true
	w.refreshCoverage()
}

func handlePlaceUtility(w *World, a actions.GameAction) error {
	t, err := utilities.Parse(a.Utility)
	if err != nil {
		return actions.Fail(actions.InvalidParameter, "%v", err)
	}
	if tier := stats.UtilityTier(t); tier > w.progress.Current {
		return actions.Fail(actions.FeatureLocked, "%s unlocks at %s", t, tier)
	}
	def, ok := w.cats.Generators.ByID[t.String()]
	if !ok {
		return actions.Fail(actions.NotSupported, "no catalog entry for %s", t)
	}
	if err := w.checkSite(a.X0, a.Y0, def.BuildCost); err != nil {
		return err
	}
	edit := w.beginEdit(actions.CityPlaceUtility)
	u := w.utilitySource(t, a.X0, a.Y0)
	w.spawnUtility(u, 0)
	edit.rec.PlacedUtilities = append(edit.rec.PlacedUtilities, u)
	w.budget.Treasury -= def.BuildCost
	edit.commit()
	w.sfx("place_building")
	return nil
}

func handlePlaceService(w *World, a actions.GameAction) error {
	t, err := services.Parse(a.Service)
	if err != nil {
		return actions.Fail(actions.InvalidParameter, "%v", err)
	}
	if tier := stats.ServiceTier(t); tier > w.progress.Current {
		return actions.Fail(actions.FeatureLocked, "%s unlocks at %s", t, tier)
	}
	def, ok := w.cats.Services.ByID[t.String()]
	if !ok {
		return actions.Fail(actions.NotSupported, "no catalog entry for %s", t)
	}
	if err := w.checkSite(a.X0, a.Y0, def.BuildCost); err != nil {
		return err
	}
	edit := w.beginEdit(actions.CityPlaceService)
	if t.IsFloodProtection() {
		edit.snapshotBarriers()
	}
	s := w.serviceSite(t, a.X0, a.Y0)
	w.spawnService(s)
	edit.rec.PlacedServices = append(edit.rec.PlacedServices, s)
	w.budget.Treasury -= def.BuildCost
	edit.commit()
	w.sfx("place_building")
	return nil
}

// handleBulldozeRect clears every cell of the rectangle: buildings are
// demolished, services and utilities removed, roads refunded at half cost
// and zoning cleared.
func handleBulldozeRect(w *World, a actions.GameAction) error {
	if err := checkEnds(a); err != nil {
		return err
	}
	r := a.Rect()
	edit := w.beginEdit(actions.CityBulldoze)
	cleared := map[roads.RoadNode]bool{}
	var refund float64
	r.Each(func(x, y int) {
		c := w.grid.At(x, y)
		if c.Type == grid.Water {
			return
		}
		if e, ok := w.buildingAt(x, y); ok {
			edit.touch(x, y)
			edit.rec.RemovedBuildings = append(edit.rec.RemovedBuildings, w.buildingRecord(e))
			d := w.demolish(e)
			edit.rec.Evicted = append(edit.rec.Evicted, d.evicted...)
			edit.rec.LaidOff = append(edit.rec.LaidOff, d.laidOff...)
		}
		if e, ok := w.serviceAt(x, y); ok {
			if w.ecs.services.Get(e).Type.IsFloodProtection() {
				edit.snapshotBarriers()
			}
			edit.rec.RemovedServices = append(edit.rec.RemovedServices, w.removeService(e))
		}
		if e, ok := w.utilityAt(x, y); ok {
			edit.rec.RemovedUtilities = append(edit.rec.RemovedUtilities, w.removeUtility(e))
		}
		switch {
		case c.Type == grid.Road:
			edit.touch(x, y)
			refund += c.Road.Cost() * roadRefund
			w.network.RemoveRoad(w.grid, x, y)
			c.Zone = grid.ZoneNone
			w.condition.Grid.Set(x, y, 0)
			cleared[roads.RoadNode{X: x, Y: y}] = true
		case c.Zone != grid.ZoneNone:
			edit.touch(x, y)
			c.Zone = grid.ZoneNone
		}
	})
	if len(cleared) > 0 {
		before := w.segments.Clone()
		if w.segments.Trim(cleared) {
			edit.rec.SegmentsBefore = before
		}
	}
	w.budget.Treasury += refund
	edit.commit()
	w.sfx("bulldoze")
	return nil
}

func (w *World) buildingRecord(e ecs.Entity) actions.BuildingRecord {
	rec := actions.BuildingRecord{Building: *w.ecs.buildings.Get(e)}
	if w.ecs.construction.Has(e) {
		uc := *w.ecs.construction.Get(e)
		rec.Construction = &uc
	}
	if w.ecs.onFire.Has(e) {
		f := *w.ecs.onFire.Get(e)
		rec.Fire = &f
	}
	if w.ecs.abandoned.Has(e) {
		ab := *w.ecs.abandoned.Get(e)
		rec.Abandoned = &ab
	}
	return rec
}

// respawnBuilding recreates a removed building under its old ID.
func (w *World) respawnBuilding(rec actions.BuildingRecord) {
	var uc *zones.UnderConstruction
	if rec.Construction != nil {
		c := *rec.Construction
		uc = &c
	}
	e := w.spawnBuilding(rec.Building, uc)
	if rec.Fire != nil {
		f := *rec.Fire
		w.ecs.onFire.Add(e, &f)
	}
	if rec.Abandoned != nil {
		ab := *rec.Abandoned
		w.ecs.abandoned.Add(e, &ab)
	}
}
