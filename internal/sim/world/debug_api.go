package world

import (
	"errors"
	"fmt"

	"cityforge.dev/internal/sim/economy"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/weather"
	"cityforge.dev/internal/sim/zones"
)

// ---- Debug/Test Helpers ----
//
// These let black-box tests in sibling packages (internal/sim/worldtest, the
// CLI) set up preconditions without reaching into world internals. They are
// not safe to call concurrently with Run; drive the world with StepOnce.

// BuildingInfo is a read-only view of one building entity.
type BuildingInfo struct {
	zones.Building
	Construction *zones.UnderConstruction
	OnFire       bool
	Abandoned    bool
}

// Buildings lists every building in (y,x) order.
func (w *World) Buildings() []BuildingInfo {
	var out []BuildingInfo
	for _, e := range w.ecs.buildingEntities() {
		info := BuildingInfo{
			Building:  *w.ecs.buildings.Get(e),
			OnFire:    w.ecs.onFire.Has(e),
			Abandoned: w.ecs.abandoned.Has(e),
		}
		if w.ecs.construction.Has(e) {
			uc := *w.ecs.construction.Get(e)
			info.Construction = &uc
		}
		out = append(out, info)
	}
	return out
}

func (w *World) CitizenCount() int { return len(w.ecs.citizenEntities()) }

// DebugSetWeather forces the current condition. The day is marked rolled so
// the condition holds until the next day boundary.
func (w *World) DebugSetWeather(c weather.Condition) {
	prev := w.weather.Condition
	w.weather.Condition = c
	w.weather.Precipitation = c.Precipitation()
	w.weather.LastDay = w.clock.Day
	if prev != c {
		w.events.emit(WeatherChangeEvent{From: prev, To: c})
	}
}

// DebugSetTreasury overwrites the treasury.
func (w *World) DebugSetTreasury(v float64) { w.budget.Treasury = v }

// DebugPlaceBuilding drops a level 1 building on a free land cell. A nonzero
// constructionTicks leaves it under construction. It returns the new ID.
func (w *World) DebugPlaceBuilding(x, y int, z grid.ZoneType, constructionTicks uint32) (uint32, error) {
	if !grid.InBounds(x, y) {
		return 0, fmt.Errorf("out of bounds: (%d,%d)", x, y)
	}
	if z == grid.ZoneNone {
		return 0, errors.New("building needs a zone")
	}
	c := w.grid.At(x, y)
	if c.Type != grid.Grass || c.HasBuilding() || w.occupiedCells()[grid.Index(x, y)] {
		return 0, fmt.Errorf("cell (%d,%d) is not free land", x, y)
	}
	c.Zone = z
	capacity := zones.Capacity(&w.cats.Buildings, z, 1)
	b := zones.Building{
		Zone:            z,
		Level:           1,
		GridX:           x,
		GridY:           y,
		Capacity:        capacity,
		AffordableUnits: zones.AffordableUnits(z, capacity, w.tun.Spawner.AffordableFraction),
	}
	var uc *zones.UnderConstruction
	if constructionTicks > 0 {
		uc = &zones.UnderConstruction{TicksRemaining: constructionTicks, TotalTicks: constructionTicks}
	}
	e := w.spawnBuilding(b, uc)
	w.utilitiesDirty = true
	return w.ecs.buildings.Get(e).ID, nil
}

// DebugSpawnCitizen moves an adult into the residential building at (x,y).
func (w *World) DebugSpawnCitizen(x, y int) (uint32, error) {
	home, ok := w.buildingAt(x, y)
	if !ok {
		return 0, fmt.Errorf("no building at (%d,%d)", x, y)
	}
	b := w.ecs.buildings.Get(home)
	if !b.Zone.IsResidential() {
		return 0, fmt.Errorf("building at (%d,%d) is %s, not residential", x, y, b.Zone)
	}
	if b.Occupants >= b.Capacity {
		return 0, fmt.Errorf("building at (%d,%d) is full", x, y)
	}
	b.Occupants++
	e := w.spawnCitizen(w.newcomer(x, y))
	return w.ecs.citizens.Get(e).ID, nil
}

// DebugOpenLoan books a loan on explicit terms and credits the treasury.
func (w *World) DebugOpenLoan(principal, annualRate float64, months uint32) economy.Loan {
	l := w.loans.Open(principal, annualRate, months)
	w.budget.Treasury += principal
	return l
}

// DebugRefreshHash recomputes the state hash outside a tick.
func (w *World) DebugRefreshHash() uint64 {
	w.hash = w.computeHash()
	return w.hash
}
