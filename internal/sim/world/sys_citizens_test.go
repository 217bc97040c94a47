package world

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/citizen"
	"cityforge.dev/internal/sim/grid"
)

// newJobWorld houses n working-age citizens with distinct education levels
// next to an open shop.
func newJobWorld(t *testing.T, n int) (*World, []ecs.Entity) {
	t.Helper()
	w := newTestWorld(t)
	if _, err := w.DebugPlaceBuilding(21, 21, grid.ZoneResidentialLow, 0); err != nil {
		t.Fatalf("home: %v", err)
	}
	if _, err := w.DebugPlaceBuilding(26, 21, grid.ZoneCommercialLow, 0); err != nil {
		t.Fatalf("shop: %v", err)
	}
	for i := 0; i < n; i++ {
		if _, err := w.DebugSpawnCitizen(21, 21); err != nil {
			t.Fatalf("citizen %d: %v", i, err)
		}
	}
	es := w.ecs.citizenEntities()
	for i, e := range es {
		d := w.ecs.details.Get(e)
		d.Age = 30
		d.Education = uint8(i % (citizen.MaxEducation + 1))
		d.Salary = 0
	}
	w.tun.Citizens.JobSeekInterval = 1
	return w, es
}

func TestJobMatching_PaysEachHireForOwnEducation(t *testing.T) {
	w, es := newJobWorld(t, 4)
	w.sysJobMatching()
	for _, e := range es {
		id := w.ecs.citizens.Get(e).ID
		if !w.ecs.works.Has(e) {
			t.Fatalf("citizen %d was not hired", id)
		}
		d := w.ecs.details.Get(e)
		if want := citizen.SalaryFor(d.Education); d.Salary != want {
			t.Fatalf("citizen %d: salary=%v want %v (education %d)", id, d.Salary, want, d.Education)
		}
	}
	if err := w.checkEmployment(); len(err) != 0 {
		t.Fatalf("employment: %v", err)
	}
}

func TestCitizenLife_PaydayAfterLosingWorkingAge(t *testing.T) {
	w, es := newJobWorld(t, 3)
	w.sysJobMatching()

	child := es[0]
	w.ecs.details.Get(child).Age = 5
	savings := map[ecs.Entity]float32{}
	for _, e := range es {
		savings[e] = w.ecs.details.Get(e).Savings
	}

	w.clock.Day = MonthDays
	w.dayRolled = true
	w.sysCitizenLife()

	if w.ecs.works.Has(child) {
		t.Fatalf("child kept the job")
	}
	if d := w.ecs.details.Get(child); d.Salary != 0 || d.Savings != savings[child] {
		t.Fatalf("child: salary=%v savings=%v want 0 and %v", d.Salary, d.Savings, savings[child])
	}
	for _, e := range es[1:] {
		d := w.ecs.details.Get(e)
		pay := citizen.SalaryFor(d.Education)
		if d.Salary != pay {
			t.Fatalf("citizen %d: salary=%v want %v", w.ecs.citizens.Get(e).ID, d.Salary, pay)
		}
		if want := savings[e] + pay*savingsRate; d.Savings != want {
			t.Fatalf("citizen %d: savings=%v want %v", w.ecs.citizens.Get(e).ID, d.Savings, want)
		}
	}
	if err := w.checkEmployment(); len(err) != 0 {
		t.Fatalf("employment: %v", err)
	}
}
