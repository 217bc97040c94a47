package zones

import (
	"testing"

	"cityforge.dev/internal/sim/catalogs"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/rng"
)

func TestComputeDemand_EmptyCityWantsHomes(t *testing.T) {
	d := ComputeDemand(DemandInputs{})
	if d.Residential <= 0 {
		t.Fatalf("empty city must want residential, got %v", d.Residential)
	}
	for _, v := range []float32{d.Residential, d.Commercial, d.Industrial, d.Office} {
		if v < 0 || v > 1 {
			t.Fatalf("demand out of range: %+v", d)
		}
	}
}

func TestComputeDemand_JobSurplusRaisesResidential(t *testing.T) {
	base := DemandInputs{Population: 1000, Employed: 900, Residential: Occupancy{Capacity: 1000, Occupants: 1000}}
	more := base
	more.Industrial = Occupancy{Capacity: 2000}
	if ComputeDemand(more).Residential <= ComputeDemand(base).Residential {
		t.Fatalf("more jobs should raise residential demand")
	}
	if ComputeDemand(more).VacancyIndustrial != 1 {
		t.Fatalf("vacancy should be tracked separately")
	}
}

func TestEligible(t *testing.T) {
	g := grid.New()
	for x := 0; x < 10; x++ {
		g.At(x, 5).Type = grid.Road
	}
	for x := 0; x < 10; x++ {
		c := g.At(x, 4)
		c.Zone = grid.ZoneResidentialLow
		c.HasPower, c.HasWater = true, true
	}
	g.At(3, 4).HasWater = false
	g.At(6, 4).Type = grid.Water
	var e EligibleCells
	e.Rebuild(g, map[int]bool{grid.Index(8, 4): true})
	if got := e.Count(grid.ZoneResidentialLow); got != 7 {
		t.Fatalf("eligible: got %d want 7", got)
	}
	if e.Contains(3, 4) || e.Contains(6, 4) || e.Contains(8, 4) || !e.Contains(0, 4) {
		t.Fatalf("wrong cells: %v", e.ByZone[grid.ZoneResidentialLow])
	}
	for x := 0; x < 3; x++ {
		g.At(x, 5).Type = grid.Grass
	}
	e.Rebuild(g, nil)
	if e.Contains(0, 4) || !e.Contains(1, 4) {
		t.Fatalf("eligibility must follow road access radius")
	}
}

func TestPickCandidates_RespectsDemandAndOverlays(t *testing.T) {
	var e EligibleCells
	e.ByZone[grid.ZoneResidentialLow] = []int{grid.Index(1, 1), grid.Index(2, 1), grid.Index(3, 1)}
	e.ByZone[grid.ZoneIndustrial] = []int{grid.Index(5, 5)}
	o := NewOverlays()
	o.Historic.Set(2, 1, 1)
	o.Transect.Set(3, 1, uint8(T1Natural))

	got := PickCandidates(&e, ZoneDemand{Residential: 1}, o, rng.New(1), 4)
	if len(got) != 1 || got[0].X != 1 || got[0].Zone != grid.ZoneResidentialLow {
		t.Fatalf("candidates: %+v", got)
	}
	if n := len(PickCandidates(&e, ZoneDemand{}, nil, rng.New(1), 4)); n != 0 {
		t.Fatalf("no demand should pick nothing, got %d", n)
	}
}

func TestTransectCaps(t *testing.T) {
	o := NewOverlays()
	if o.MaxLevelAt(0, 0, grid.ZoneResidentialHigh) != 5 {
		t.Fatalf("no overlay keeps zone cap")
	}
	o.Transect.Set(0, 0, uint8(T3Suburban))
	if o.MaxLevelAt(0, 0, grid.ZoneResidentialHigh) != 2 {
		t.Fatalf("T3 caps at 2")
	}
	if o.MaxLevelAt(0, 0, grid.ZoneResidentialLow) != 2 {
		t.Fatalf("cap is the min of both")
	}
}

func TestUnderConstruction_Carry(t *testing.T) {
	u := UnderConstruction{TicksRemaining: 3, TotalTicks: 3}
	if u.Advance(0) || u.TicksRemaining != 3 {
		t.Fatalf("zero speed must not progress")
	}
	u.Advance(0.5)
	if u.TicksRemaining != 3 {
		t.Fatalf("half tick must only carry")
	}
	u.Advance(0.5)
	if u.TicksRemaining != 2 {
		t.Fatalf("carry should complete one tick, got %d", u.TicksRemaining)
	}
	u.Advance(1)
	if !u.Advance(1) {
		t.Fatalf("should be complete")
	}
}

func TestEvolve(t *testing.T) {
	good := LevelInputs{Level: 1, MaxLevel: 3, LandValue: 200, Happiness: 80, HasPower: true, HasWater: true, Occupancy: 1}
	if Evolve(good) != Upgrade {
		t.Fatalf("should upgrade")
	}
	capped := good
	capped.Level = 3
	if Evolve(capped) != Hold {
		t.Fatalf("max level holds")
	}
	sad := good
	sad.Level, sad.Happiness = 2, 10
	if Evolve(sad) != Downgrade {
		t.Fatalf("unhappy should downgrade")
	}
	dark := good
	dark.HasPower, dark.HasWater, dark.LossStreak = false, false, LossStreakAbandon
	if Evolve(dark) != Abandon {
		t.Fatalf("no utilities should abandon")
	}
	empty := good
	empty.Level, empty.EmptyStreak = 2, EmptyStreakAbandon
	if Evolve(empty) != Abandon {
		t.Fatalf("empty upgraded building should abandon")
	}
}

func TestCatalogCapacity(t *testing.T) {
	cat := catalogs.MustDefault()
	for _, z := range grid.AllZones {
		if Capacity(&cat.Buildings, z, 1) == 0 {
			t.Fatalf("%v has no level 1 capacity", z)
		}
		if Capacity(&cat.Buildings, z, 5) < Capacity(&cat.Buildings, z, 1) {
			t.Fatalf("%v capacity shrinks", z)
		}
	}
	if Capacity(&cat.Buildings, grid.ZoneNone, 1) != 0 {
		t.Fatalf("unzoned has no capacity")
	}
	if AffordableUnits(grid.ZoneResidentialLow, 10, 0.2) != 2 || AffordableUnits(grid.ZoneIndustrial, 10, 0.2) != 0 {
		t.Fatalf("affordable units")
	}
}
