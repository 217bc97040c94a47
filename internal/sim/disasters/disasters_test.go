package disasters

import (
	"testing"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/rng"
)

func TestRoll_OneActiveAtATime(t *testing.T) {
	g := grid.New()
	r := rng.New(9)
	var a Active
	in, ok := a.Roll(g, r, 1)
	if !ok || in == nil {
		t.Fatalf("certain roll did not start a disaster")
	}
	if !in.Kind.Valid() || !grid.InBounds(in.CenterX, in.CenterY) {
		t.Fatalf("bad instance: %+v", in)
	}
	if _, ok := a.Roll(g, r, 1); ok {
		t.Fatalf("second disaster started while one is active")
	}
	if a.Trigger(Flood, 1, 1) != in {
		t.Fatalf("Trigger replaced the active disaster")
	}
}

func TestRoll_SkipsAllWaterMap(t *testing.T) {
	g := grid.New()
	for i := range g.Cells {
		g.Cells[i].Type = grid.Water
	}
	var a Active
	if _, ok := a.Roll(g, rng.New(1), 1); ok || a.Current != nil {
		t.Fatalf("disaster struck water")
	}
}

func TestStep_DamageOnceThenExpires(t *testing.T) {
	var a Active
	a.Trigger(Earthquake, 50, 50)
	targets := []Target{
		{X: 50, Y: 50, Level: 3},
		{X: 55, Y: 55, Level: 2},
		{X: 90, Y: 90, Level: 5},
	}
	r := rng.New(4)
	dmg, ended := a.Step(r, targets)
	if ended {
		t.Fatalf("ended on first tick")
	}
	hit := len(dmg.Destroyed) + len(dmg.Downgraded)
	if hit != 2 {
		t.Fatalf("expected both targets in radius hit, got %+v", dmg)
	}
	for _, i := range append(dmg.Destroyed, dmg.Downgraded...) {
		if i == 2 {
			t.Fatalf("target outside radius damaged")
		}
	}
	if a.NeedsDamage() {
		t.Fatalf("damage should apply once")
	}
	for i := 1; i < EarthquakeDuration-1; i++ {
		if d, end := a.Step(r, targets); !d.Empty() || end {
			t.Fatalf("tick %d: unexpected damage or end", i)
		}
	}
	if _, end := a.Step(r, nil); !end || a.Current != nil {
		t.Fatalf("earthquake should end after %d ticks", EarthquakeDuration)
	}
}

func TestFlood_DestroysLowGroundOnly(t *testing.T) {
	var a Active
	a.Trigger(Flood, 20, 20)
	dmg, _ := a.Step(rng.New(1), []Target{
		{X: 20, Y: 20, Level: 1, Elevation: 0.40},
		{X: 21, Y: 20, Level: 1, Elevation: 0.60},
	})
	if len(dmg.Destroyed) != 1 || dmg.Destroyed[0] != 0 || len(dmg.Downgraded) != 0 {
		t.Fatalf("flood damage: %+v", dmg)
	}
}

func TestWindDamage_NeedsStrongWind(t *testing.T) {
	r := rng.New(2)
	for i := 0; i < 1000; i++ {
		if WindDamage(r, 5) {
			t.Fatalf("light wind caused damage")
		}
	}
}
