package world

import (
	"cityforge.dev/internal/sim/economy"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/utilities"
)

// rebuildDerived recomputes every cache that is not persisted: the road
// adjacency and CSR graph, utility reach, eligible cells and coverage.
func (w *World) rebuildDerived() {
	w.network.RebuildFromGrid(w.grid)
	w.roadsDirty = true
	w.utilitiesDirty = true
	w.refreshRoads()
	w.refreshUtilities()
	w.refreshEligible()
	w.refreshCoverage()
}

// refreshRoads rebuilds the CSR graph after the road network changed.
func (w *World) refreshRoads() {
	if w.csr != nil && !w.roadsDirty {
		return
	}
	w.csr = roads.BuildCSR(w.network, w.grid, w.segments)
	w.roadsDirty = false
	w.utilitiesDirty = true
}

// refreshUtilities re-propagates power and water along the roads.
func (w *World) refreshUtilities() {
	if !w.utilitiesDirty {
		return
	}
	utilities.Propagate(w.grid, w.network, w.ecs.utilitySources())
	w.utilitiesDirty = false
}

// occupiedCells are cells taken by services and utilities, which carry no
// building back-reference.
func (w *World) occupiedCells() map[int]bool {
	occ := map[int]bool{}
	for _, s := range w.ecs.serviceSites() {
		if grid.InBounds(s.X, s.Y) {
			occ[grid.Index(s.X, s.Y)] = true
		}
	}
	for _, u := range w.ecs.utilitySources() {
		if grid.InBounds(u.X, u.Y) {
			occ[grid.Index(u.X, u.Y)] = true
		}
	}
	return occ
}

func (w *World) refreshEligible() {
	w.eligible.Rebuild(w.grid, w.occupiedCells())
}

// budgetFactor is the funding quality of a service category.
func (w *World) budgetFactor(bit uint8) float32 {
	return economy.QualityFactor(w.ext.Services.Slider(services.CategoryName(bit)))
}

// refreshCoverage rebuilds the radius bitmask and the road-reach quality
// fields from the current service sites.
func (w *World) refreshCoverage() {
	sites := w.ecs.serviceSites()
	w.coverage.Rebuild(sites)
	w.hybrid.Compute(services.HybridInputs{
		Grid:         w.grid,
		Network:      w.network,
		Sites:        sites,
		Demand:       uint32(max(w.stats.Population, 0)),
		BudgetFactor: w.budgetFactor,
	})
}
