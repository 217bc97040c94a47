package world

import (
	"errors"
	"fmt"
	"math"

	"cityforge.dev/internal/sim/citizen"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/utilities"
)

// budgetTolerance bounds the drift between a monthly total and its breakdown.
const budgetTolerance = 0.01

// CheckInvariants verifies the structural rules that must hold between
// ticks. Utility flags are only consistent once a tick has propagated them,
// so call it after StepOnce rather than straight after Apply.
func (w *World) CheckInvariants() error {
	var errs []error
	errs = append(errs, w.checkBuildingRefs()...)
	errs = append(errs, w.checkEntityBounds()...)
	errs = append(errs, w.checkCoverage()...)
	errs = append(errs, w.checkBudget()...)
	errs = append(errs, w.checkPowerReach()...)
	errs = append(errs, w.checkRegistry()...)
	errs = append(errs, w.checkEmployment()...)
	return errors.Join(errs...)
}

func (w *World) checkBuildingRefs() []error {
	var errs []error
	for i := range w.grid.Cells {
		if !w.grid.Cells[i].HasBuilding() {
			continue
		}
		ref := w.grid.Cells[i].Building
		x, y := i%grid.Width, i/grid.Width
		if !w.ecs.world.Alive(ref) || !w.ecs.buildings.Has(ref) {
			errs = append(errs, fmt.Errorf("cell (%d,%d): building ref is not a live building", x, y))
			continue
		}
		if b := w.ecs.buildings.Get(ref); b.GridX != x || b.GridY != y {
			errs = append(errs, fmt.Errorf("cell (%d,%d): building %d sits at (%d,%d)", x, y, b.ID, b.GridX, b.GridY))
		}
	}
	for _, e := range w.ecs.buildingEntities() {
		b := w.ecs.buildings.Get(e)
		if b.Occupants > b.Capacity {
			errs = append(errs, fmt.Errorf("building %d: occupants %d > capacity %d", b.ID, b.Occupants, b.Capacity))
		}
		if grid.InBounds(b.GridX, b.GridY) && w.grid.At(b.GridX, b.GridY).Building != e {
			errs = append(errs, fmt.Errorf("building %d: cell (%d,%d) does not point back", b.ID, b.GridX, b.GridY))
		}
	}
	return errs
}

func (w *World) checkEntityBounds() []error {
	var errs []error
	out := func(kind string, x, y int) {
		if !grid.InBounds(x, y) {
			errs = append(errs, fmt.Errorf("%s at (%d,%d) is out of bounds", kind, x, y))
		}
	}
	for _, e := range w.ecs.buildingEntities() {
		b := w.ecs.buildings.Get(e)
		out("building", b.GridX, b.GridY)
	}
	for _, s := range w.ecs.serviceSites() {
		out("service", s.X, s.Y)
	}
	for _, u := range w.ecs.utilitySources() {
		out("utility", u.X, u.Y)
	}
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		e := q.Entity()
		h := w.ecs.homes.Get(e)
		out("citizen home", h.GridX, h.GridY)
		p := w.ecs.positions.Get(e)
		x, y := grid.WorldToGrid(p.X, p.Y)
		out("citizen", x, y)
	}
	return errs
}

func (w *World) checkCoverage() []error {
	sites := w.ecs.serviceSites()
	for i, got := range w.coverage.Flags {
		x, y := i%grid.Width, i/grid.Width
		var want uint8
		for _, s := range sites {
			if services.Covers(s, x, y) {
				want |= s.Type.Bit()
			}
		}
		if got != want {
			return []error{fmt.Errorf("coverage (%d,%d): flags %08b, sites give %08b", x, y, got, want)}
		}
	}
	return nil
}

func (w *World) checkBudget() []error {
	var errs []error
	if d := math.Abs(w.budget.MonthlyIncome - w.ext.Income.Total()); d > budgetTolerance {
		errs = append(errs, fmt.Errorf("budget: income %.2f differs from breakdown by %.4f", w.budget.MonthlyIncome, d))
	}
	if d := math.Abs(w.budget.MonthlyExpenses - w.ext.Expenses.Total()); d > budgetTolerance {
		errs = append(errs, fmt.Errorf("budget: expenses %.2f differs from breakdown by %.4f", w.budget.MonthlyExpenses, d))
	}
	return errs
}

// checkPowerReach requires every powered cell to be a live power source, a
// road it reaches, or within seep distance of such a road.
func (w *World) checkPowerReach() []error {
	powered := map[int]bool{}
	var reached []roads.RoadNode
	for _, u := range w.ecs.utilitySources() {
		if u.Outage || !u.Type.IsPower() || !grid.InBounds(u.X, u.Y) {
			continue
		}
		powered[grid.Index(u.X, u.Y)] = true
		reached = append(reached, utilities.Reach(w.network, u)...)
	}
	for _, n := range reached {
		powered[grid.Index(n.X, n.Y)] = true
		for dy := -utilities.SeepRadius; dy <= utilities.SeepRadius; dy++ {
			for dx := -utilities.SeepRadius; dx <= utilities.SeepRadius; dx++ {
				if x, y := n.X+dx, n.Y+dy; grid.InBounds(x, y) && w.grid.At(x, y).Type != grid.Road {
					powered[grid.Index(x, y)] = true
				}
			}
		}
	}
	for i := range w.grid.Cells {
		if w.grid.Cells[i].HasPower && !powered[i] {
			return []error{fmt.Errorf("cell (%d,%d) is powered but no source reaches it", i%grid.Width, i/grid.Width)}
		}
	}
	return nil
}

func (w *World) checkRegistry() []error {
	var errs []error
	want := map[string]SaveStage{}
	for _, m := range ExpectedKeys {
		if _, dup := want[m.Key]; dup {
			errs = append(errs, fmt.Errorf("manifest: duplicate key %q", m.Key))
		}
		want[m.Key] = m.Stage
	}
	seen := map[string]bool{}
	for _, s := range w.registry.Staged() {
		if seen[s.Key] {
			errs = append(errs, fmt.Errorf("registry: duplicate key %q", s.Key))
		}
		seen[s.Key] = true
		stage, ok := want[s.Key]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("registry: %q is not in the manifest", s.Key))
		case stage != s.Stage:
			errs = append(errs, fmt.Errorf("registry: %q is in stage %s, manifest says %s", s.Key, s.Stage, stage))
		}
	}
	for _, m := range ExpectedKeys {
		if !seen[m.Key] {
			errs = append(errs, fmt.Errorf("registry: manifest key %q is not registered", m.Key))
		}
	}
	return errs
}

// checkEmployment requires employed citizens to be of working age and paid
// for their education, and everyone else to earn nothing.
func (w *World) checkEmployment() []error {
	var errs []error
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		id, e := q.Get().ID, q.Entity()
		d := w.ecs.details.Get(e)
		if !w.ecs.works.Has(e) {
			if d.Salary != 0 {
				errs = append(errs, fmt.Errorf("citizen %d: unemployed with salary %.0f", id, d.Salary))
			}
			continue
		}
		if !d.Stage().CanWork() {
			errs = append(errs, fmt.Errorf("citizen %d: employed at age %d", id, d.Age))
		}
		if want := citizen.SalaryFor(d.Education); d.Salary != want {
			errs = append(errs, fmt.Errorf("citizen %d: salary %.0f, education %d pays %.0f", id, d.Salary, d.Education, want))
		}
	}
	return errs
}
