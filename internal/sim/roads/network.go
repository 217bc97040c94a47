// Package roads holds the road adjacency network, the Bézier segment store and
// the CSR graph used for pathfinding.
package roads

import (
	"sort"

	"cityforge.dev/internal/sim/grid"
)

// RoadNode is a road cell.
type RoadNode struct {
	X, Y int
}

// Less orders nodes by (y,x); every iteration over nodes uses it.
func (n RoadNode) Less(o RoadNode) bool {
	if n.Y != o.Y {
		return n.Y < o.Y
	}
	return n.X < o.X
}

func Manhattan(a, b RoadNode) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Network is the sparse grid-aligned adjacency of road cells. It is the union
// of all segment rasterizations plus grid-placed roads.
type Network struct {
	Edges map[RoadNode][]RoadNode
}

func NewNetwork() *Network {
	return &Network{Edges: map[RoadNode][]RoadNode{}}
}

func (n *Network) Reset() { n.Edges = map[RoadNode][]RoadNode{} }

func (n *Network) Len() int { return len(n.Edges) }

func (n *Network) Has(node RoadNode) bool {
	_, ok := n.Edges[node]
	return ok
}

func (n *Network) Neighbors(node RoadNode) []RoadNode { return n.Edges[node] }

// PlaceRoad marks the cell as road and links it to adjacent road cells.
// It reports false when the cell is out of bounds or water.
func (n *Network) PlaceRoad(g *grid.WorldGrid, x, y int, rt grid.RoadType) bool {
	if !g.InBounds(x, y) {
		return false
	}
	c := g.At(x, y)
	if c.Type == grid.Water {
		return false
	}
	c.Type = grid.Road
	c.Road = rt
	c.Zone = grid.ZoneNone
	node := RoadNode{x, y}
	if _, ok := n.Edges[node]; !ok {
		n.Edges[node] = nil
	}
	for _, nb := range grid.Neighbors4(x, y) {
		other := RoadNode{nb[0], nb[1]}
		if g.At(other.X, other.Y).Type != grid.Road {
			continue
		}
		n.link(node, other)
		n.link(other, node)
	}
	return true
}

func (n *Network) link(a, b RoadNode) {
	for _, e := range n.Edges[a] {
		if e == b {
			return
		}
	}
	n.Edges[a] = append(n.Edges[a], b)
}

// RemoveRoad reverts the cell to grass and drops its edges.
func (n *Network) RemoveRoad(g *grid.WorldGrid, x, y int) bool {
	node := RoadNode{x, y}
	nbs, ok := n.Edges[node]
	if !ok {
		return false
	}
	for _, other := range nbs {
		n.unlink(other, node)
	}
	delete(n.Edges, node)
	if g.InBounds(x, y) {
		c := g.At(x, y)
		c.Type = grid.Grass
		c.Road = grid.RoadLocal
		c.HasPower = false
		c.HasWater = false
	}
	return true
}

func (n *Network) unlink(a, b RoadNode) {
	es := n.Edges[a]
	for i, e := range es {
		if e == b {
			n.Edges[a] = append(es[:i], es[i+1:]...)
			return
		}
	}
}

// RebuildFromGrid recomputes adjacency from the grid's road cells.
func (n *Network) RebuildFromGrid(g *grid.WorldGrid) {
	n.Reset()
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.At(x, y).Type == grid.Road {
				n.PlaceRoad(g, x, y, g.At(x, y).Road)
			}
		}
	}
}

// SortedNodes returns all nodes ordered by (y,x).
func (n *Network) SortedNodes() []RoadNode {
	out := make([]RoadNode, 0, len(n.Edges))
	for k := range n.Edges {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// NearestRoad finds the closest road cell to (x,y) within radius, scanning rings
// outward so ties resolve deterministically.
func (n *Network) NearestRoad(x, y, radius int) (RoadNode, bool) {
	if n.Has(RoadNode{x, y}) {
		return RoadNode{x, y}, true
	}
	for r := 1; r <= radius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dx)+abs(dy) != r {
					continue
				}
				c := RoadNode{x + dx, y + dy}
				if n.Has(c) {
					return c, true
				}
			}
		}
	}
	return RoadNode{}, false
}
