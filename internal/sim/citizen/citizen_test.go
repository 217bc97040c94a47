package citizen

import (
	"math"
	"testing"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
	"cityforge.dev/internal/sim/rng"
)

type fixedDest map[Destination][2]int

func (f fixedDest) Nearest(kind Destination, x, y, maxDist int) (int, int, bool) {
	p, ok := f[kind]
	if !ok || roads.Manhattan(roads.RoadNode{X: x, Y: y}, roads.RoadNode{X: p[0], Y: p[1]}) > maxDist {
		return 0, 0, false
	}
	return p[0], p[1], true
}

func TestHappiness_RandomInputsStayInRange(t *testing.T) {
	r := rng.New(0xDEAD_BEEF_CAFE_1337)
	u8 := func() uint8 { return uint8(r.IntN(256)) }
	for i := 0; i < 2000; i++ {
		in := HappinessInputs{
			Employed:     r.Chance(0.5),
			CommuteCells: r.IntN(200),
			HasPower:     r.Chance(0.5),
			HasWater:     r.Chance(0.5),
			Coverage:     u8(),
			TaxRate:      r.Range(0, 0.5),
			Congestion:   r.Range(-1, 2),
			Garbage:      u8(),
			Crime:        u8(),
			Pollution:    u8(),
			Noise:        u8(),
			LandValue:    u8(),
			PoorRoad:     r.Chance(0.5),
			Homeless:     r.Chance(0.3),
			Sheltered:    r.Chance(0.5),
			Health:       r.Range(0, 100),
			Needs:        Needs{r.Range(0, 100), r.Range(0, 100), r.Range(0, 100), r.Range(0, 100), r.Range(0, 100)},
			Modifier:     r.Range(-50, 50),
		}
		if h := ComputeHappiness(in); h < 0 || h > 100 {
			t.Fatalf("input %d: happiness %v out of range", i, h)
		}
	}
}

func TestHappiness_Factors(t *testing.T) {
	base := HappinessInputs{HasPower: true, HasWater: true, Health: 70, Needs: DefaultNeeds()}
	h0 := ComputeHappiness(base)
	dark := base
	dark.HasPower = false
	if got := h0 - ComputeHappiness(dark); math.Abs(float64(got-(PowerBonus+NoPowerPenalty))) > 1e-3 {
		t.Fatalf("power swing: %v", got)
	}
	taxed := base
	taxed.TaxRate = 0.2
	if ComputeHappiness(taxed) >= h0 {
		t.Fatalf("high tax should hurt")
	}
	sheltered, street := base, base
	sheltered.Homeless, sheltered.Sheltered = true, true
	street.Homeless = true
	if !(ComputeHappiness(street) < ComputeHappiness(sheltered) && ComputeHappiness(sheltered) < h0) {
		t.Fatalf("homeless ordering wrong")
	}
}

func TestDecide_MorningCommuteUsesJitter(t *testing.T) {
	in := RoutineInputs{
		Jitter: JitterFor(7),
		State:  AtHome,
		Stage:  Adult,
		Hour:   7,
		Minute: 7,
		Home:   HomeLocation{GridX: 1, GridY: 1},
		Work:   &WorkLocation{GridX: 9, GridY: 1},
		Needs:  DefaultNeeds(),
	}
	s := Decide(in, 0, fixedDest{})
	if s.Request == nil || s.Request.Target != CommutingToWork || s.Request.ToX != 9 {
		t.Fatalf("expected work trip, got %+v", s)
	}
	in.Minute = 8
	if Decide(in, 0, fixedDest{}).Request != nil {
		t.Fatalf("off-jitter minute must not depart")
	}
}

func TestDecide_ArrivalAndErrands(t *testing.T) {
	d := fixedDest{Shop: {3, 1}, Leisure: {4, 1}, School: {5, 1}}
	arr := Decide(RoutineInputs{State: CommutingToWork, PathComplete: true}, 0, d)
	if arr.Next != Working || arr.Request != nil {
		t.Fatalf("arrival: %+v", arr)
	}
	hungry := RoutineInputs{State: AtHome, Stage: Retired, Hour: 12, Needs: Needs{Hunger: 10, Fun: 90, Social: 90}}
	if s := Decide(hungry, 0, d); s.Request == nil || s.Request.Target != CommutingToShop {
		t.Fatalf("hungry retiree should shop: %+v", s)
	}
	bored := hungry
	bored.Needs = Needs{Hunger: 90, Fun: 10, Social: 90}
	if s := Decide(bored, 0, d); s.Request == nil || s.Request.Target != CommutingToLeisure {
		t.Fatalf("bored retiree should go out: %+v", s)
	}
	kid := RoutineInputs{State: AtHome, Stage: SchoolAge, Hour: 8, Minute: 0, Needs: DefaultNeeds()}
	if s := Decide(kid, 0, d); s.Request == nil || s.Request.Target != CommutingToSchool {
		t.Fatalf("school trip: %+v", s)
	}
	if s := Decide(RoutineInputs{State: Shopping, Hour: 12}, ShoppingTicks-1, d); s.Request == nil || s.Request.Target != CommutingHome {
		t.Fatalf("shopping should end: %+v", s)
	}
	if s := Decide(RoutineInputs{State: Working, Hour: 12}, 0, d); s.Request != nil {
		t.Fatalf("mid shift holds")
	}
	if s := Decide(RoutineInputs{State: Working, Hour: 17, Needs: DefaultNeeds(), Work: &WorkLocation{GridX: 60, GridY: 60}}, 0, d); s.Request == nil || s.Request.Target != CommutingHome {
		t.Fatalf("end of shift goes home: %+v", s)
	}
}

func TestChooseMode(t *testing.T) {
	if ChooseMode(ModeInputs{Distance: 2, RoadAccess: true}) != Walk {
		t.Fatalf("short trips walk")
	}
	if ChooseMode(ModeInputs{Distance: 100, RoadAccess: true}) != Drive {
		t.Fatalf("long trips drive")
	}
	if ChooseMode(ModeInputs{Distance: 100}) != Walk {
		t.Fatalf("no road access falls back to walking")
	}
	if _, ok := PerceivedTime(Transit, ModeInputs{Distance: 50, TransitOrigin: true}); ok {
		t.Fatalf("transit needs stops at both ends")
	}
}

func TestAdvance_ReachesEndAndClamps(t *testing.T) {
	path := PathCache{Waypoints: []roads.RoadNode{{X: 0, Y: 0}, {X: 3, Y: 0}}}
	x, y := grid.GridToWorld(0, 0)
	pos := Position{X: x + 1, Y: y}
	var vel Velocity
	steps := 0
	for !Advance(&pos, &vel, &path, BaseSpeed) {
		steps++
		if steps > 10 {
			t.Fatalf("never arrived: %+v %+v", pos, path)
		}
	}
	wx, _ := grid.GridToWorld(3, 0)
	if pos.X != wx || vel.X != 0 {
		t.Fatalf("should stop on the last waypoint: %+v", pos)
	}

	off := Position{X: -50, Y: -50}
	empty := PathCache{}
	if !Advance(&off, &vel, &empty, 1) {
		t.Fatalf("empty path is complete")
	}
	if off.X < 0 || off.Y < 0 {
		t.Fatalf("position not clamped: %+v", off)
	}
}

func TestNeedsAndLife(t *testing.T) {
	n := DefaultNeeds()
	for i := 0; i < 1000; i++ {
		n.Update(Working, false, false, false)
	}
	if n.Hunger != 0 || n.Fun != 0 {
		t.Fatalf("needs should bottom out: %+v", n)
	}
	if n.Comfort < 39 || n.Comfort > 41 {
		t.Fatalf("comfort should settle at 40 without utilities: %v", n.Comfort)
	}
	if o := n.Overall(); o < 0 || o > 1 {
		t.Fatalf("overall %v", o)
	}
	cases := map[uint8]LifeStage{0: Child, 6: SchoolAge, 18: YoungAdult, 26: Adult, 55: Senior, 65: Retired}
	for age, want := range cases {
		if StageForAge(age) != want {
			t.Fatalf("age %d: got %v want %v", age, StageForAge(age), want)
		}
	}
	if SalaryFor(0) != 1500 || SalaryFor(3) != 6000 {
		t.Fatalf("salary table")
	}
	d := Details{Age: 10}
	if AdvanceEducation(&d, Personality{}, true, 360) != 1 || AdvanceEducation(&d, Personality{}, true, 361) != 0 {
		t.Fatalf("education advances on the year boundary only")
	}
	h := Homeless{}
	if h.Tick(2) || !h.Tick(2) {
		t.Fatalf("homeless limit")
	}
}
