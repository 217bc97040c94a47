package roads

import (
	"math"
	"testing"

	"cityforge.dev/internal/sim/grid"
)

func cellCenter(x, y int) Vec2 {
	wx, wy := grid.GridToWorld(x, y)
	return Vec2{wx, wy}
}

func TestAddStraightSegment_RasterizesEveryCell(t *testing.T) {
	g := grid.New()
	net := NewNetwork()
	s := NewSegmentStore(24)
	id, err := s.AddStraightSegment(g, net, cellCenter(90, 100), cellCenter(110, 100), grid.RoadLocal)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	seg, _ := s.Segment(id)
	if len(seg.Cells) != 21 {
		t.Fatalf("cells: got %d want 21", len(seg.Cells))
	}
	for _, c := range seg.Cells {
		if g.At(c.X, c.Y).Type != grid.Road {
			t.Fatalf("cell %v not marked road", c)
		}
		if !net.Has(c) {
			t.Fatalf("cell %v missing from adjacency", c)
		}
	}
	if net.Len() != 21 {
		t.Fatalf("network nodes: got %d", net.Len())
	}
	if want := float32(20 * grid.CellSize); math.Abs(float64(seg.ArcLength-want)) > 0.5 {
		t.Fatalf("arc length: got %v want %v", seg.ArcLength, want)
	}
}

func TestAddSegment_EdgesAndCornersStayInBounds(t *testing.T) {
	g := grid.New()
	net := NewNetwork()
	s := NewSegmentStore(24)
	cases := [][2]Vec2{
		{{0, 0}, {80, 0}},
		{{-200, 4090}, {200, 4090}},
		{{4095, 4095}, {4095, 3900}},
		{{0, 4095}, {4095, 0}},
	}
	for i, c := range cases {
		id, err := s.AddStraightSegment(g, net, c[0], c[1], grid.RoadLocal)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		seg, _ := s.Segment(id)
		if len(seg.Cells) == 0 {
			t.Fatalf("case %d: no cells", i)
		}
		for k, cell := range seg.Cells {
			if !grid.InBounds(cell.X, cell.Y) {
				t.Fatalf("case %d: out of bounds cell %v", i, cell)
			}
			if k > 0 && Manhattan(seg.Cells[k-1], cell) != 1 {
				t.Fatalf("case %d: cells %v -> %v not 4-connected", i, seg.Cells[k-1], cell)
			}
		}
	}
}

func TestFindOrCreateNode_Snaps(t *testing.T) {
	s := NewSegmentStore(24)
	a := s.FindOrCreateNode(Vec2{100, 100})
	b := s.FindOrCreateNode(Vec2{110, 110})
	c := s.FindOrCreateNode(Vec2{200, 200})
	if a != b {
		t.Fatalf("expected snap within radius")
	}
	if a == c {
		t.Fatalf("distant node must not snap")
	}
}

func TestAddSegment_AllWaterIsRejected(t *testing.T) {
	g := grid.New()
	for x := 40; x <= 50; x++ {
		g.At(x, 40).Type = grid.Water
	}
	net := NewNetwork()
	s := NewSegmentStore(24)
	if _, err := s.AddStraightSegment(g, net, cellCenter(40, 40), cellCenter(50, 40), grid.RoadLocal); err != ErrNoCells {
		t.Fatalf("err=%v want ErrNoCells", err)
	}
	if len(s.Segments) != 0 || len(s.Nodes) != 0 {
		t.Fatalf("rejected segment left %d segments and %d nodes", len(s.Segments), len(s.Nodes))
	}
	if net.Len() != 0 {
		t.Fatalf("network nodes: got %d", net.Len())
	}
}

func TestAddSegment_SnappedEndsMeetTheJunction(t *testing.T) {
	g := grid.New()
	net := NewNetwork()
	s := NewSegmentStore(24)
	first, err := s.AddStraightSegment(g, net, cellCenter(10, 10), cellCenter(20, 10), grid.RoadLocal)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	a, _ := s.Segment(first)
	junction := s.Nodes[a.End].Pos

	off := junction.Add(Vec2{5, 7})
	second, err := s.AddStraightSegment(g, net, off, cellCenter(20, 20), grid.RoadLocal)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	b, _ := s.Segment(second)
	if b.Start != a.End {
		t.Fatalf("start node %d, want junction %d", b.Start, a.End)
	}
	if b.P0 != junction || b.Eval(0) != junction {
		t.Fatalf("curve starts at %v, junction is %v", b.Eval(0), junction)
	}
	if got := b.SampleAtDistance(0); got != junction {
		t.Fatalf("sample at 0 = %v want %v", got, junction)
	}
}

func TestSplitAndRemoveSegment(t *testing.T) {
	g := grid.New()
	net := NewNetwork()
	s := NewSegmentStore(24)
	id, err := s.AddStraightSegment(g, net, cellCenter(10, 10), cellCenter(30, 10), grid.RoadAvenue)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	orig, _ := s.Segment(id)
	origCells := len(orig.Cells)
	l, r, err := s.SplitSegment(id, 0.5)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if _, ok := s.Segment(id); ok {
		t.Fatalf("original segment should be removed")
	}
	ls, _ := s.Segment(l)
	rs, _ := s.Segment(r)
	if ls.End != rs.Start {
		t.Fatalf("halves must share the new node")
	}
	union := map[RoadNode]bool{}
	for _, c := range append(append([]RoadNode{}, ls.Cells...), rs.Cells...) {
		union[c] = true
	}
	if len(union) != origCells {
		t.Fatalf("split cells: got %d want %d", len(union), origCells)
	}

	cleared, err := s.RemoveSegment(g, net, l)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(cleared) == 0 {
		t.Fatalf("expected cleared cells")
	}
	for _, c := range cleared {
		if g.At(c.X, c.Y).Type == grid.Road {
			t.Fatalf("cleared cell %v still road", c)
		}
	}
	for _, c := range rs.Cells {
		if g.At(c.X, c.Y).Type != grid.Road {
			t.Fatalf("shared/right cell %v lost", c)
		}
	}
	if _, err := s.RemoveSegment(g, net, l); err == nil {
		t.Fatalf("double remove should fail")
	}
}

func buildLine(g *grid.WorldGrid, net *Network, cells []RoadNode) {
	for _, c := range cells {
		net.PlaceRoad(g, c.X, c.Y, grid.RoadLocal)
	}
}

func TestFindPath_UnreachableIsEmpty(t *testing.T) {
	g := grid.New()
	net := NewNetwork()
	buildLine(g, net, BresenhamLine(0, 0, 5, 0))
	buildLine(g, net, BresenhamLine(20, 20, 25, 20))
	csr := BuildCSR(net, g, nil)
	if p := csr.FindPath(RoadNode{0, 0}, RoadNode{25, 20}); len(p) != 0 {
		t.Fatalf("expected empty path, got %v", p)
	}
	if p := csr.FindPath(RoadNode{0, 0}, RoadNode{100, 100}); p != nil {
		t.Fatalf("non-road target should give nil")
	}
	p := csr.FindPath(RoadNode{0, 0}, RoadNode{5, 0})
	if len(p) != 6 || p[0] != (RoadNode{0, 0}) || p[5] != (RoadNode{5, 0}) {
		t.Fatalf("unexpected path %v", p)
	}
}

func TestCSR_SortedAndOneWay(t *testing.T) {
	g := grid.New()
	net := NewNetwork()
	s := NewSegmentStore(24)
	id, err := s.AddStraightSegment(g, net, cellCenter(5, 5), cellCenter(9, 5), grid.RoadOneWay)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	csr := BuildCSR(net, g, s)
	for i := 1; i < len(csr.Nodes); i++ {
		if !csr.Nodes[i-1].Less(csr.Nodes[i]) {
			t.Fatalf("nodes not sorted at %d", i)
		}
	}
	if p := csr.FindPath(RoadNode{9, 5}, RoadNode{5, 5}); len(p) == 0 {
		t.Fatalf("two-way segment should route in reverse")
	}

	gen := s.Generation
	if err := s.SetOneWay(id, OneWayForward); err != nil {
		t.Fatalf("set one-way: %v", err)
	}
	if s.Generation != gen+1 {
		t.Fatalf("generation not bumped")
	}
	csr = BuildCSR(net, g, s)
	if csr.Generation != s.Generation {
		t.Fatalf("csr generation mismatch")
	}
	if p := csr.FindPath(RoadNode{5, 5}, RoadNode{9, 5}); len(p) != 5 {
		t.Fatalf("forward path: %v", p)
	}
	if p := csr.FindPath(RoadNode{9, 5}, RoadNode{5, 5}); len(p) != 0 {
		t.Fatalf("reverse path should be blocked, got %v", p)
	}
}

type densityMap map[RoadNode]uint16

func (d densityMap) Get(x, y int) uint16 { return d[RoadNode{x, y}] }

func TestFindPathWithTraffic_AvoidsCongestion(t *testing.T) {
	g := grid.New()
	net := NewNetwork()
	buildLine(g, net, BresenhamLine(0, 10, 10, 10))
	buildLine(g, net, BresenhamLine(0, 14, 10, 14))
	buildLine(g, net, BresenhamLine(0, 10, 0, 14))
	buildLine(g, net, BresenhamLine(10, 10, 10, 14))
	csr := BuildCSR(net, g, nil)

	free := csr.FindPath(RoadNode{0, 10}, RoadNode{10, 10})
	if len(free) != 11 {
		t.Fatalf("free-flow path should be the direct row, got %d cells", len(free))
	}

	jam := densityMap{}
	for x := 1; x < 10; x++ {
		jam[RoadNode{x, 10}] = 200
	}
	p := csr.FindPathWithTraffic(RoadNode{0, 10}, RoadNode{10, 10}, g, jam, 0.15, 4)
	for _, n := range p {
		if n.Y == 10 && n.X > 0 && n.X < 10 {
			t.Fatalf("congested path used jammed cell %v", n)
		}
	}
	if len(p) != 19 {
		t.Fatalf("detour length: got %d want 19", len(p))
	}
}

func TestBPR(t *testing.T) {
	if got := BPR(1, 0, 10, 0.15, 4); got != 1 {
		t.Fatalf("free flow: %v", got)
	}
	if got := BPR(2, 10, 10, 0.15, 4); math.Abs(got-2.3) > 1e-9 {
		t.Fatalf("at capacity: %v", got)
	}
}

func TestBresenhamLine_FourConnected(t *testing.T) {
	for _, c := range [][4]int{{0, 0, 7, 3}, {5, 5, 5, 5}, {9, 2, 1, 8}, {3, 0, 3, 6}} {
		line := BresenhamLine(c[0], c[1], c[2], c[3])
		if line[0] != (RoadNode{c[0], c[1]}) || line[len(line)-1] != (RoadNode{c[2], c[3]}) {
			t.Fatalf("endpoints wrong for %v: %v", c, line)
		}
		for i := 1; i < len(line); i++ {
			if Manhattan(line[i-1], line[i]) != 1 {
				t.Fatalf("diagonal step in %v at %d", c, i)
			}
		}
		if want := abs(c[2]-c[0]) + abs(c[3]-c[1]) + 1; len(line) != want {
			t.Fatalf("len %d want %d", len(line), want)
		}
	}
}

func TestCondition_DegradeAndMaintenance(t *testing.T) {
	g := grid.New()
	net := NewNetwork()
	cond := NewCondition()
	for _, c := range BresenhamLine(0, 0, 9, 0) {
		net.PlaceRoad(g, c.X, c.Y, grid.RoadLocal)
		cond.Pave(c.X, c.Y)
	}
	fresh := cond.MaintenanceCost(g)
	if math.Abs(fresh-5) > 1e-9 {
		t.Fatalf("fresh maintenance: %v", fresh)
	}
	for i := 0; i < 200; i++ {
		cond.Degrade(g, densityMap{})
	}
	if cond.PoorFraction(g) != 1 {
		t.Fatalf("all cells should be poor after wear")
	}
	if cond.MaintenanceCost(g) <= fresh {
		t.Fatalf("worn roads should cost more")
	}
}

func TestFindPathAvoiding_DetoursAroundBans(t *testing.T) {
	g := grid.New()
	net := NewNetwork()
	buildLine(g, net, BresenhamLine(0, 10, 10, 10))
	buildLine(g, net, BresenhamLine(0, 14, 10, 14))
	buildLine(g, net, BresenhamLine(0, 10, 0, 14))
	buildLine(g, net, BresenhamLine(10, 10, 10, 14))
	csr := BuildCSR(net, g, nil)

	banned := func(n RoadNode) bool { return n.Y == 10 && n.X == 5 }
	p := csr.FindPathAvoiding(RoadNode{0, 10}, RoadNode{10, 10}, banned)
	if len(p) != 19 {
		t.Fatalf("detour length: got %d want 19", len(p))
	}
	if p := csr.FindPathAvoiding(RoadNode{0, 10}, RoadNode{5, 10}, banned); len(p) != 6 {
		t.Fatalf("banned destination should still be reachable, got %d cells", len(p))
	}
}

func TestSegmentStore_CloneIsIndependent(t *testing.T) {
	g := grid.New()
	net := NewNetwork()
	s := NewSegmentStore(24)
	if _, err := s.AddStraightSegment(g, net, cellCenter(10, 10), cellCenter(20, 10), grid.RoadLocal); err != nil {
		t.Fatalf("AddStraightSegment: %v", err)
	}
	c := s.Clone()
	if _, err := s.RemoveSegment(g, net, 0); err != nil {
		t.Fatalf("RemoveSegment: %v", err)
	}
	if c.LiveSegments() != 1 || len(c.Segments[0].Cells) == 0 {
		t.Fatalf("clone changed with original")
	}
	if len(c.Nodes[0].Segments) != 1 {
		t.Fatalf("clone node lost its segment: %+v", c.Nodes[0])
	}
}
