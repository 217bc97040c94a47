package world

import (
	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/grid"
)

// restoreCell writes a recorded cell back. The live building reference is
// kept because recorded ones go stale once an entity is respawned.
func (w *World) restoreCell(i int, c grid.Cell, cond uint8) {
	c.Building = w.grid.Cells[i].Building
	w.grid.Cells[i] = c
	w.condition.Grid.Cells[i] = cond
}

// revert undoes a recorded action. Composite children are undone in reverse.
func (w *World) revert(a *actions.CityAction) {
	for i := len(a.Children) - 1; i >= 0; i-- {
		w.revert(&a.Children[i])
	}
	for _, s := range a.PlacedServices {
		if e, ok := w.serviceAt(s.X, s.Y); ok {
			w.removeService(e)
		}
	}
	for _, u := range a.PlacedUtilities {
		if e, ok := w.utilityAt(u.X, u.Y); ok {
			w.removeUtility(e)
		}
	}
	for _, c := range a.Cells {
		w.restoreCell(c.Index, c.Before, c.BeforeCond)
	}
	if a.SegmentsBefore != nil {
		w.segments = a.SegmentsBefore.Clone()
	}
	for _, rec := range a.RemovedBuildings {
		w.respawnBuilding(rec)
	}
	for _, s := range a.RemovedServices {
		w.spawnService(s)
	}
	for _, u := range a.RemovedUtilities {
		w.spawnUtility(u, 0)
	}
	if a.Barriers != nil {
		w.protection.Replace(a.Barriers.Before)
	}
	w.rehouse(a)
	w.budget.Treasury += a.TreasuryBefore - a.TreasuryAfter
	w.network.RebuildFromGrid(w.grid)
	w.markEdited()
}

// reapply redoes a recorded action on the state it was undone to.
func (w *World) reapply(a *actions.CityAction) {
	for _, rec := range a.RemovedBuildings {
		if e, ok := w.buildingAt(rec.Building.GridX, rec.Building.GridY); ok {
			w.demolish(e)
		}
	}
	for _, s := range a.RemovedServices {
		if e, ok := w.serviceAt(s.X, s.Y); ok {
			w.removeService(e)
		}
	}
	for _, u := range a.RemovedUtilities {
		if e, ok := w.utilityAt(u.X, u.Y); ok {
			w.removeUtility(e)
		}
	}
	for _, c := range a.Cells {
		w.restoreCell(c.Index, c.After, c.AfterCond)
	}
	if a.SegmentsAfter != nil {
		w.segments = a.SegmentsAfter.Clone()
	}
	for _, s := range a.PlacedServices {
		w.spawnService(s)
	}
	for _, u := range a.PlacedUtilities {
		w.spawnUtility(u, 0)
	}
	if a.Barriers != nil {
		w.protection.Replace(a.Barriers.After)
	}
	w.budget.Treasury += a.TreasuryAfter - a.TreasuryBefore
	w.network.RebuildFromGrid(w.grid)
	for i := range a.Children {
		w.reapply(&a.Children[i])
	}
	w.markEdited()
}

// rehouse gives displaced citizens their homes and jobs back.
func (w *World) rehouse(a *actions.CityAction) {
	if len(a.Evicted) == 0 && len(a.LaidOff) == 0 {
		return
	}
	byID := w.citizensByID()
	for _, id := range a.Evicted {
		if e, ok := byID[id]; ok && w.ecs.homeless.Has(e) {
			w.ecs.homeless.Remove(e)
		}
	}
	for _, l := range a.LaidOff {
		if e, ok := byID[l.Citizen]; ok && !w.ecs.works.Has(e) {
			w.hire(e, l.Work)
		}
	}
}

func (w *World) citizensByID() map[uint32]ecs.Entity {
	out := map[uint32]ecs.Entity{}
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		out[q.Get().ID] = q.Entity()
	}
	return out
}
