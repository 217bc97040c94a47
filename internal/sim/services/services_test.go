package services

import (
	"testing"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
)

func TestCoverage_BitsMatchRadius(t *testing.T) {
	sites := []Site{
		{Type: Hospital, X: 50, Y: 50, Radius: 5 * grid.CellSize},
		{Type: FireHouse, X: 55, Y: 50, Radius: 3 * grid.CellSize},
		{Type: Landfill, X: 10, Y: 10, Radius: 30 * grid.CellSize},
	}
	c := NewCoverageGrid()
	c.Rebuild(sites)
	for y := 40; y < 62; y++ {
		for x := 40; x < 62; x++ {
			for _, bit := range Categories {
				want := false
				for _, s := range sites {
					if s.Type.Bit() == bit && Covers(s, x, y) {
						want = true
					}
				}
				if got := c.Has(x, y, bit); got != want {
					t.Fatalf("(%d,%d) bit %d: got %v want %v", x, y, bit, got, want)
				}
			}
		}
	}
	if c.Get(10, 10) != 0 {
		t.Fatalf("landfill has no coverage bit")
	}
	c.Rebuild(nil)
	for _, f := range c.Flags {
		if f != 0 {
			t.Fatalf("rebuild must clear")
		}
	}
}

func TestCoverage_EdgeOfGrid(t *testing.T) {
	c := NewCoverageGrid()
	c.Rebuild([]Site{{Type: PoliceHQ, X: 0, Y: grid.Height - 1, Radius: 4 * grid.CellSize}})
	if !c.Has(0, grid.Height-1, BitPolice) || !c.Has(4, grid.Height-1, BitPolice) {
		t.Fatalf("corner site should cover in-bounds cells")
	}
	if c.Has(5, grid.Height-1, BitPolice) {
		t.Fatalf("outside radius")
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, ty := range All() {
		got, err := Parse(ty.String())
		if err != nil || got != ty {
			t.Fatalf("%v: got %v %v", ty, got, err)
		}
	}
	if _, err := Parse("Castle"); err == nil {
		t.Fatalf("unknown type should fail")
	}
}

func TestQualityFor(t *testing.T) {
	if q := QualityFor(FireHouse, 1, 1000, 500); q != 0.6 {
		t.Fatalf("tier 1 base: %v", q)
	}
	if q := QualityFor(FireHQ, 1, 1000, 2000); q != 0.5 {
		t.Fatalf("over capacity: %v", q)
	}
	if q := QualityFor(FireHQ, 1.2, 0, 10); q != 1 {
		t.Fatalf("quality must cap at 1: %v", q)
	}
}

func TestHybrid_RoadReachAndTiers(t *testing.T) {
	g := grid.New()
	net := roads.NewNetwork()
	for x := 10; x <= 40; x++ {
		net.PlaceRoad(g, x, 20, grid.RoadLocal)
	}
	h := NewHybrid()
	h.Compute(HybridInputs{
		Grid:    g,
		Network: net,
		Sites: []Site{
			{Type: FireHouse, X: 10, Y: 21, Radius: 5 * grid.CellSize, Capacity: 100},
			{Type: FireHQ, X: 40, Y: 21, Radius: 5 * grid.CellSize, Capacity: 100},
		},
		Demand: 50,
	})
	if h.QualityAt(BitFire, 12, 20) == 0 {
		t.Fatalf("road within hops should be covered")
	}
	if h.QualityAt(BitFire, 25, 20) != 0 {
		t.Fatalf("road beyond hops should not be covered")
	}
	if h.QualityAt(BitFire, 38, 19) <= h.QualityAt(BitFire, 12, 19) {
		t.Fatalf("HQ should give better quality than a fire house")
	}
	if h.Tiers.Fire[0] == 0 || h.Tiers.Fire[2] == 0 || h.Tiers.Fire[1] != 0 {
		t.Fatalf("tier stats: %+v", h.Tiers.Fire)
	}
}
