package roads

import (
	"container/heap"
	"math"
	"sort"

	"cityforge.dev/internal/sim/grid"
)

// CSRGraph is the road graph in compressed sparse row form. Nodes are sorted
// by (y,x); Neighbors[Offsets[i]:Offsets[i+1]] are node i's out-edges.
type CSRGraph struct {
	Nodes     []RoadNode
	Offsets   []uint32
	Neighbors []uint32
	// Weights is the free-flow time per edge.
	Weights []float32
	index   map[RoadNode]uint32
	// Generation is the segment store generation this graph was built from.
	Generation uint64
	// Version counts rebuilds; consumers compare it to cached values.
	Version uint64
}

// FreeFlowTime is the time to cross one cell of the given road type.
func FreeFlowTime(rt grid.RoadType) float32 {
	return 1 / rt.Speed()
}

// BuildCSR builds the graph from the adjacency network. Reverse edges of
// one-way segments are omitted. segs may be nil.
func BuildCSR(net *Network, g *grid.WorldGrid, segs *SegmentStore) *CSRGraph {
	nodes := net.SortedNodes()
	idx := make(map[RoadNode]uint32, len(nodes))
	for i, n := range nodes {
		idx[n] = uint32(i)
	}

	blocked := map[[2]RoadNode]bool{}
	var gen uint64
	if segs != nil {
		gen = segs.Generation
		for i := range segs.Segments {
			seg := &segs.Segments[i]
			if seg.Removed || seg.OneWay == TwoWay {
				continue
			}
			for k := 0; k+1 < len(seg.Cells); k++ {
				a, b := seg.Cells[k], seg.Cells[k+1]
				if seg.OneWay == OneWayForward {
					blocked[[2]RoadNode{b, a}] = true
				} else {
					blocked[[2]RoadNode{a, b}] = true
				}
			}
		}
	}

	c := &CSRGraph{
		Nodes:      nodes,
		Offsets:    make([]uint32, len(nodes)+1),
		index:      idx,
		Generation: gen,
	}
	for i, n := range nodes {
		nbs := make([]uint32, 0, 4)
		for _, nb := range net.Neighbors(n) {
			if blocked[[2]RoadNode{n, nb}] {
				continue
			}
			if j, ok := idx[nb]; ok {
				nbs = append(nbs, j)
			}
		}
		sort.Slice(nbs, func(a, b int) bool { return nbs[a] < nbs[b] })
		for _, j := range nbs {
			c.Neighbors = append(c.Neighbors, j)
			c.Weights = append(c.Weights, FreeFlowTime(g.At(nodes[j].X, nodes[j].Y).Road))
		}
		c.Offsets[i+1] = uint32(len(c.Neighbors))
	}
	return c
}

func (c *CSRGraph) NodeIndex(n RoadNode) (uint32, bool) {
	i, ok := c.index[n]
	return i, ok
}

func (c *CSRGraph) NodeCount() int { return len(c.Nodes) }

func (c *CSRGraph) EdgeCount() int { return len(c.Neighbors) }

// BPR is the Bureau of Public Roads travel time t0*(1 + alpha*(v/c)^beta).
func BPR(t0, volume, capacity, alpha, beta float64) float64 {
	if capacity <= 0 {
		return t0 * (1 + alpha)
	}
	return t0 * (1 + alpha*math.Pow(volume/capacity, beta))
}

// DensityView is the live traffic density per cell.
type DensityView interface {
	Get(x, y int) uint16
}

// EdgeCost computes the cost of entering a node.
type EdgeCost func(edge int, to RoadNode) float64

// FindPath runs A* with free-flow weights. It returns nil when either endpoint
// is not a road or no route exists.
func (c *CSRGraph) FindPath(from, to RoadNode) []RoadNode {
	return c.findPath(from, to, func(edge int, _ RoadNode) float64 { return float64(c.Weights[edge]) })
}

// FindPathWithTraffic recomputes each edge's cost from the live density grid.
func (c *CSRGraph) FindPathWithTraffic(from, to RoadNode, g *grid.WorldGrid, density DensityView, alpha, beta float64) []RoadNode {
	return c.findPath(from, to, func(edge int, n RoadNode) float64 {
		rt := g.At(n.X, n.Y).Road
		return BPR(float64(c.Weights[edge]), float64(density.Get(n.X, n.Y)), float64(rt.Capacity()), alpha, beta)
	})
}

// FindPathAvoiding is FindPath that never enters a node for which avoid
// returns true, except the destination itself.
func (c *CSRGraph) FindPathAvoiding(from, to RoadNode, avoid func(RoadNode) bool) []RoadNode {
	return c.findPath(from, to, func(edge int, n RoadNode) float64 {
		if n != to && avoid(n) {
			return math.Inf(1)
		}
		return float64(c.Weights[edge])
	})
}

// minWeight keeps the Manhattan heuristic admissible: no cell is cheaper
// than a highway cell at free flow.
var minWeight = float64(FreeFlowTime(grid.RoadHighway))

type openItem struct {
	node uint32
	f    float64
	g    float64
}

type openSet []openItem

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].node < o[j].node
}
func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any) { *o = append(*o, x.(openItem)) }
func (o *openSet) Pop() any {
	old := *o
	it := old[len(old)-1]
	*o = old[:len(old)-1]
	return it
}

func (c *CSRGraph) findPath(from, to RoadNode, cost EdgeCost) []RoadNode {
	s, ok := c.index[from]
	if !ok {
		return nil
	}
	t, ok := c.index[to]
	if !ok {
		return nil
	}
	if s == t {
		return []RoadNode{from}
	}
	h := func(i uint32) float64 {
		return float64(Manhattan(c.Nodes[i], to)) * minWeight
	}

	n := len(c.Nodes)
	gScore := make([]float64, n)
	for i := range gScore {
		gScore[i] = math.Inf(1)
	}
	prev := make([]int32, n)
	for i := range prev {
		prev[i] = -1
	}
	closed := make([]bool, n)

	gScore[s] = 0
	open := &openSet{{node: s, f: h(s)}}
	for open.Len() > 0 {
		cur := heap.Pop(open).(openItem)
		if closed[cur.node] {
			continue
		}
		if cur.node == t {
			break
		}
		closed[cur.node] = true
		for e := c.Offsets[cur.node]; e < c.Offsets[cur.node+1]; e++ {
			nb := c.Neighbors[e]
			if closed[nb] {
				continue
			}
			ng := cur.g + cost(int(e), c.Nodes[nb])
			if ng < gScore[nb] {
				gScore[nb] = ng
				prev[nb] = int32(cur.node)
				heap.Push(open, openItem{node: nb, f: ng + h(nb), g: ng})
			}
		}
	}
	if prev[t] < 0 {
		return nil
	}
	var path []RoadNode
	for i := int32(t); i >= 0; i = prev[i] {
		path = append(path, c.Nodes[i])
		if uint32(i) == s {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathCost sums free-flow weights along a path; it is used for trip estimates.
func PathCost(g *grid.WorldGrid, path []RoadNode) float64 {
	var total float64
	for _, n := range path[min(1, len(path)):] {
		total += float64(FreeFlowTime(g.At(n.X, n.Y).Road))
	}
	return total
}
