// Package utilities classifies power and water sources and spreads their
// coverage over the road network.
package utilities

import (
	"fmt"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
)

// SeepRadius is how far coverage leaks from a covered road onto other cells.
const SeepRadius = 2

// Type codes are persisted; append only.
type Type uint8

const (
	PowerPlant Type = iota
	SolarFarm
	WindTurbine
	NuclearPlant
	Geothermal
	HydroDam
	GasPlant
	OilPlant
	BiomassPlant
	WasteToEnergy
	BatteryStorage
	WaterTower
	WaterPump
	SewagePlant
	DesalinationPlant
	typeCount
)

var typeNames = [...]string{
	"PowerPlant", "SolarFarm", "WindTurbine", "NuclearPlant", "Geothermal", "HydroDam",
	"GasPlant", "OilPlant", "BiomassPlant", "WasteToEnergy", "BatteryStorage",
	"WaterTower", "WaterPump", "SewagePlant", "DesalinationPlant",
}

func (t Type) String() string {
	if t < typeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

func (t Type) Valid() bool { return t < typeCount }

func Parse(s string) (Type, error) {
	for i, n := range typeNames {
		if n == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown utility type %q", s)
}

func (t Type) IsWater() bool { return t >= WaterTower && t < typeCount }

func (t Type) IsPower() bool { return t < WaterTower }

// Source is a placed utility as seen by propagation.
type Source struct {
	Type   Type
	X, Y   int
	Range  int
	Outage bool
}

// Propagate clears utility flags everywhere, then BFSes each active source
// over road adjacency up to Range hops, and finally seeps coverage from
// covered roads onto non-road cells within SeepRadius.
func Propagate(g *grid.WorldGrid, net *roads.Network, sources []Source) {
	for i := range g.Cells {
		g.Cells[i].HasPower = false
		g.Cells[i].HasWater = false
	}
	powerRoads := map[roads.RoadNode]bool{}
	waterRoads := map[roads.RoadNode]bool{}
	for _, s := range sources {
		if s.Outage || !g.InBounds(s.X, s.Y) {
			continue
		}
		reached := waterRoads
		if s.Type.IsPower() {
			reached = powerRoads
		}
		mark(g.At(s.X, s.Y), s.Type)
		for _, n := range Reach(net, s) {
			reached[n] = true
			mark(g.At(n.X, n.Y), s.Type)
		}
	}
	seep(g, powerRoads, true)
	seep(g, waterRoads, false)
}

func mark(c *grid.Cell, t Type) {
	if t.IsPower() {
		c.HasPower = true
	} else {
		c.HasWater = true
	}
}

// Reach returns the road cells a source covers. A source on a road starts
// there; otherwise it starts from its adjacent road cells.
func Reach(net *roads.Network, s Source) []roads.RoadNode {
	seen := map[roads.RoadNode]bool{}
	var frontier []roads.RoadNode
	if here := (roads.RoadNode{X: s.X, Y: s.Y}); net.Has(here) {
		frontier = append(frontier, here)
	} else {
		for _, nb := range grid.Neighbors4(s.X, s.Y) {
			if n := (roads.RoadNode{X: nb[0], Y: nb[1]}); net.Has(n) {
				frontier = append(frontier, n)
			}
		}
	}
	var out []roads.RoadNode
	for _, n := range frontier {
		seen[n] = true
		out = append(out, n)
	}
	for depth := 0; depth < s.Range && len(frontier) > 0; depth++ {
		var next []roads.RoadNode
		for _, n := range frontier {
			for _, nb := range net.Neighbors(n) {
				if seen[nb] {
					continue
				}
				seen[nb] = true
				out = append(out, nb)
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return out
}

func seep(g *grid.WorldGrid, covered map[roads.RoadNode]bool, power bool) {
	for n := range covered {
		for dy := -SeepRadius; dy <= SeepRadius; dy++ {
			for dx := -SeepRadius; dx <= SeepRadius; dx++ {
				x, y := n.X+dx, n.Y+dy
				if !g.InBounds(x, y) {
					continue
				}
				c := g.At(x, y)
				if c.Type == grid.Road {
					continue
				}
				if power {
					c.HasPower = true
				} else {
					c.HasWater = true
				}
			}
		}
	}
}
