package utilities

import (
	"testing"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
)

func roadRow(g *grid.WorldGrid, net *roads.Network, y, x0, x1 int) {
	for x := x0; x <= x1; x++ {
		net.PlaceRoad(g, x, y, grid.RoadLocal)
	}
}

func TestPropagate_RangeAndSeep(t *testing.T) {
	g := grid.New()
	net := roads.NewNetwork()
	roadRow(g, net, 100, 90, 130)
	Propagate(g, net, []Source{
		{Type: PowerPlant, X: 90, Y: 100, Range: 10},
		{Type: WaterTower, X: 91, Y: 101, Range: 30},
	})
	if !g.At(100, 100).HasPower || g.At(101, 100).HasPower {
		t.Fatalf("power should reach exactly 10 hops")
	}
	if !g.At(121, 100).HasWater || g.At(122, 100).HasWater {
		t.Fatalf("water from an off-road source starts at its adjacent road")
	}
	if !g.At(95, 98).HasPower || g.At(95, 97).HasPower {
		t.Fatalf("seep should cover exactly two cells off the road")
	}
}

func TestPropagate_ClearsAndSkipsOutage(t *testing.T) {
	g := grid.New()
	net := roads.NewNetwork()
	roadRow(g, net, 10, 0, 20)
	src := []Source{{Type: NuclearPlant, X: 0, Y: 10, Range: 50}}
	Propagate(g, net, src)
	if !g.At(20, 10).HasPower {
		t.Fatalf("expected coverage")
	}
	src[0].Outage = true
	Propagate(g, net, src)
	for i := range g.Cells {
		if g.Cells[i].HasPower {
			t.Fatalf("outage source must not cover anything")
		}
	}
}

func TestPropagate_Disconnected(t *testing.T) {
	g := grid.New()
	net := roads.NewNetwork()
	roadRow(g, net, 10, 0, 5)
	roadRow(g, net, 10, 7, 12)
	Propagate(g, net, []Source{{Type: WaterPump, X: 0, Y: 10, Range: 50}})
	if g.At(8, 10).HasWater {
		t.Fatalf("gap in the road must stop propagation")
	}
}

func TestClassification(t *testing.T) {
	for _, ty := range []Type{PowerPlant, SolarFarm, WindTurbine, NuclearPlant, Geothermal, HydroDam, BatteryStorage} {
		if !ty.IsPower() || ty.IsWater() {
			t.Fatalf("%v should be power", ty)
		}
	}
	for _, ty := range []Type{WaterTower, WaterPump, SewagePlant} {
		if !ty.IsWater() || ty.IsPower() {
			t.Fatalf("%v should be water", ty)
		}
	}
	if got, err := Parse("SewagePlant"); err != nil || got != SewagePlant {
		t.Fatalf("parse: %v %v", got, err)
	}
}
