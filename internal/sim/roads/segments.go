package roads

import (
	"errors"
	"math"

	"cityforge.dev/internal/sim/grid"
)

type Vec2 struct {
	X, Y float32
}

func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Scale(s float32) Vec2 { return Vec2{a.X * s, a.Y * s} }
func (a Vec2) Lerp(b Vec2, t float32) Vec2 { return a.Add(b.Sub(a).Scale(t)) }
func (a Vec2) Dist(b Vec2) float32 {
	return float32(math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y)))
}

type NodeID uint32
type SegmentID uint32

// OneWay is the allowed travel direction along a segment.
type OneWay uint8

const (
	TwoWay OneWay = iota
	OneWayForward
	OneWayReverse
)

// SegmentNode is an endpoint shared by one or more segments. A node with no
// segments left is tombstoned rather than removed so ids stay stable.
type SegmentNode struct {
	ID       NodeID
	Pos      Vec2
	Segments []SegmentID
	Removed  bool
}

// Segment is a cubic Bézier road piece between two nodes.
type Segment struct {
	ID        SegmentID
	Start     NodeID
	End       NodeID
	P0        Vec2
	P1        Vec2
	P2        Vec2
	P3        Vec2
	Road      grid.RoadType
	ArcLength float32
	Cells     []RoadNode
	OneWay    OneWay
	Removed   bool
}

var (
	ErrDegenerateSegment = errors.New("segment has zero length")
	ErrNoCells           = errors.New("segment has no placeable cells")
	ErrUnknownSegment    = errors.New("unknown segment")
)

// SegmentStore is an arena of nodes and segments indexed by their ids.
type SegmentStore struct {
	Nodes      []SegmentNode
	Segments   []Segment
	SnapRadius float32
	// Generation bumps on every one-way change so CSR consumers can detect staleness.
	Generation uint64
}

func NewSegmentStore(snapRadius float32) *SegmentStore {
	return &SegmentStore{SnapRadius: snapRadius}
}

func (s *SegmentStore) Reset() {
	s.Nodes = nil
	s.Segments = nil
	s.Generation = 0
}

func (s *SegmentStore) Node(id NodeID) (*SegmentNode, bool) {
	if int(id) >= len(s.Nodes) || s.Nodes[id].Removed {
		return nil, false
	}
	return &s.Nodes[id], true
}

func (s *SegmentStore) Segment(id SegmentID) (*Segment, bool) {
	if int(id) >= len(s.Segments) || s.Segments[id].Removed {
		return nil, false
	}
	return &s.Segments[id], true
}

// LiveSegments counts segments not removed.
func (s *SegmentStore) LiveSegments() int {
	n := 0
	for i := range s.Segments {
		if !s.Segments[i].Removed {
			n++
		}
	}
	return n
}

// FindOrCreateNode snaps to the nearest live node within SnapRadius.
func (s *SegmentStore) FindOrCreateNode(pos Vec2) NodeID {
	if i := s.nearestNode(pos); i >= 0 {
		return NodeID(i)
	}
	id := NodeID(len(s.Nodes))
	s.Nodes = append(s.Nodes, SegmentNode{ID: id, Pos: pos})
	return id
}

func (s *SegmentStore) nearestNode(pos Vec2) int {
	best := -1
	bestD := s.SnapRadius
	for i := range s.Nodes {
		if s.Nodes[i].Removed {
			continue
		}
		if d := s.Nodes[i].Pos.Dist(pos); d <= bestD {
			best, bestD = i, d
		}
	}
	return best
}

// SnapEnds moves each endpoint onto the node it would join, if any.
func (s *SegmentStore) SnapEnds(p0, p3 Vec2) (Vec2, Vec2) {
	if i := s.nearestNode(p0); i >= 0 {
		p0 = s.Nodes[i].Pos
	}
	if i := s.nearestNode(p3); i >= 0 {
		p3 = s.Nodes[i].Pos
	}
	return p0, p3
}

// Eval returns the point at parameter t.
func (seg *Segment) Eval(t float32) Vec2 {
	return bezier(seg.P0, seg.P1, seg.P2, seg.P3, t)
}

func bezier(p0, p1, p2, p3 Vec2, t float32) Vec2 {
	u := 1 - t
	a := p0.Scale(u * u * u)
	b := p1.Scale(3 * u * u * t)
	c := p2.Scale(3 * u * t * t)
	d := p3.Scale(t * t * t)
	return a.Add(b).Add(c).Add(d)
}

const arcSamples = 64

// arcTable returns cumulative lengths at arcSamples+1 uniform parameters.
func arcTable(p0, p1, p2, p3 Vec2) []float32 {
	out := make([]float32, arcSamples+1)
	prev := p0
	for i := 1; i <= arcSamples; i++ {
		p := bezier(p0, p1, p2, p3, float32(i)/arcSamples)
		out[i] = out[i-1] + prev.Dist(p)
		prev = p
	}
	return out
}

func ArcLength(p0, p1, p2, p3 Vec2) float32 {
	t := arcTable(p0, p1, p2, p3)
	return t[arcSamples]
}

// ParamAtDistance inverts the arc-length table.
func (seg *Segment) ParamAtDistance(d float32) float32 {
	tbl := arcTable(seg.P0, seg.P1, seg.P2, seg.P3)
	return paramAt(tbl, d)
}

func paramAt(tbl []float32, d float32) float32 {
	total := tbl[len(tbl)-1]
	if d <= 0 || total == 0 {
		return 0
	}
	if d >= total {
		return 1
	}
	for i := 1; i < len(tbl); i++ {
		if tbl[i] >= d {
			span := tbl[i] - tbl[i-1]
			f := float32(0)
			if span > 0 {
				f = (d - tbl[i-1]) / span
			}
			return (float32(i-1) + f) / arcSamples
		}
	}
	return 1
}

// SampleAtDistance returns the point at arc distance d from P0.
func (seg *Segment) SampleAtDistance(d float32) Vec2 {
	return seg.Eval(seg.ParamAtDistance(d))
}

// Rasterize samples the curve at half-cell arc-length steps and returns the
// 4-connected in-bounds cells it covers in travel order.
func Rasterize(p0, p1, p2, p3 Vec2) []RoadNode {
	tbl := arcTable(p0, p1, p2, p3)
	total := tbl[arcSamples]
	step := float32(grid.CellSize) / 2
	n := int(math.Ceil(float64(total/step))) + 1
	var out []RoadNode
	var last RoadNode
	have := false
	push := func(c RoadNode) {
		if !grid.InBounds(c.X, c.Y) {
			return
		}
		if have && c == last {
			return
		}
		out = append(out, c)
		last, have = c, true
	}
	for i := 0; i < n; i++ {
		d := total * float32(i) / float32(max(n-1, 1))
		p := bezier(p0, p1, p2, p3, paramAt(tbl, d))
		x, y := grid.WorldToGrid(p.X, p.Y)
		c := RoadNode{x, y}
		if have && c.X != last.X && c.Y != last.Y {
			// Diagonal step: insert the horizontal neighbor to keep the run 4-connected.
			push(RoadNode{c.X, last.Y})
		}
		push(c)
	}
	return out
}

// AddSegment inserts a cubic segment, rasterizes it and writes the cells into
// the grid and the adjacency network. Endpoints are snapped onto existing
// nodes first. Water cells along the way are skipped; a segment with no
// placeable cell is rejected with ErrNoCells.
func (s *SegmentStore) AddSegment(g *grid.WorldGrid, net *Network, p0, p1, p2, p3 Vec2, rt grid.RoadType) (SegmentID, error) {
	p0, p3 = s.SnapEnds(p0, p3)
	length := ArcLength(p0, p1, p2, p3)
	if length < 1e-3 {
		return 0, ErrDegenerateSegment
	}
	var cells []RoadNode
	for _, c := range Rasterize(p0, p1, p2, p3) {
		if g.InBounds(c.X, c.Y) && g.At(c.X, c.Y).Type != grid.Water {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		return 0, ErrNoCells
	}
	start := s.FindOrCreateNode(p0)
	end := s.FindOrCreateNode(p3)
	id := SegmentID(len(s.Segments))
	seg := Segment{
		ID:        id,
		Start:     start,
		End:       end,
		P0:        p0,
		P1:        p1,
		P2:        p2,
		P3:        p3,
		Road:      rt,
		ArcLength: length,
	}
	for _, c := range cells {
		if net.PlaceRoad(g, c.X, c.Y, rt) {
			seg.Cells = append(seg.Cells, c)
		}
	}
	s.Segments = append(s.Segments, seg)
	s.Nodes[start].Segments = append(s.Nodes[start].Segments, id)
	s.Nodes[end].Segments = append(s.Nodes[end].Segments, id)
	return id, nil
}

// AddStraightSegment places a straight segment with evenly spaced control points.
func (s *SegmentStore) AddStraightSegment(g *grid.WorldGrid, net *Network, from, to Vec2, rt grid.RoadType) (SegmentID, error) {
	return s.AddSegment(g, net, from, from.Lerp(to, 1.0/3), from.Lerp(to, 2.0/3), to, rt)
}

// SplitSegment cuts a segment at parameter t into two segments that share a
// new node. The original id is removed; the two new ids are returned.
func (s *SegmentStore) SplitSegment(id SegmentID, t float32) (SegmentID, SegmentID, error) {
	seg, ok := s.Segment(id)
	if !ok {
		return 0, 0, ErrUnknownSegment
	}
	if t <= 0 || t >= 1 {
		return 0, 0, ErrDegenerateSegment
	}
	orig := *seg
	// de Casteljau subdivision.
	a := orig.P0.Lerp(orig.P1, t)
	b := orig.P1.Lerp(orig.P2, t)
	c := orig.P2.Lerp(orig.P3, t)
	ab := a.Lerp(b, t)
	bc := b.Lerp(c, t)
	mid := ab.Lerp(bc, t)

	midID := NodeID(len(s.Nodes))
	s.Nodes = append(s.Nodes, SegmentNode{ID: midID, Pos: mid})

	left := Segment{Start: orig.Start, End: midID, P0: orig.P0, P1: a, P2: ab, P3: mid, Road: orig.Road, OneWay: orig.OneWay}
	right := Segment{Start: midID, End: orig.End, P0: mid, P1: bc, P2: c, P3: orig.P3, Road: orig.Road, OneWay: orig.OneWay}

	s.Segments[id].Removed = true
	s.detach(orig.Start, id)
	s.detach(orig.End, id)

	ids := [2]SegmentID{}
	for i, part := range []Segment{left, right} {
		part.ID = SegmentID(len(s.Segments))
		part.ArcLength = ArcLength(part.P0, part.P1, part.P2, part.P3)
		part.Cells = splitCells(orig.Cells, part)
		s.Segments = append(s.Segments, part)
		s.Nodes[part.Start].Segments = append(s.Nodes[part.Start].Segments, part.ID)
		s.Nodes[part.End].Segments = append(s.Nodes[part.End].Segments, part.ID)
		s.Nodes[part.Start].Removed = false
		s.Nodes[part.End].Removed = false
		ids[i] = part.ID
	}
	return ids[0], ids[1], nil
}

// splitCells keeps the original cells that the part's own rasterization covers,
// so no new road cells appear in the grid on a split.
func splitCells(orig []RoadNode, part Segment) []RoadNode {
	own := map[RoadNode]bool{}
	for _, c := range Rasterize(part.P0, part.P1, part.P2, part.P3) {
		own[c] = true
	}
	var out []RoadNode
	for _, c := range orig {
		if own[c] {
			out = append(out, c)
		}
	}
	return out
}

func (s *SegmentStore) detach(n NodeID, id SegmentID) {
	node := &s.Nodes[n]
	for i, sid := range node.Segments {
		if sid == id {
			node.Segments = append(node.Segments[:i], node.Segments[i+1:]...)
			break
		}
	}
	if len(node.Segments) == 0 {
		node.Removed = true
	}
}

// RemoveSegment deletes a segment and clears its cells from the grid unless
// another live segment still covers them.
func (s *SegmentStore) RemoveSegment(g *grid.WorldGrid, net *Network, id SegmentID) ([]RoadNode, error) {
	seg, ok := s.Segment(id)
	if !ok {
		return nil, ErrUnknownSegment
	}
	seg.Removed = true
	s.detach(seg.Start, id)
	s.detach(seg.End, id)

	shared := map[RoadNode]bool{}
	for i := range s.Segments {
		if s.Segments[i].Removed {
			continue
		}
		for _, c := range s.Segments[i].Cells {
			shared[c] = true
		}
	}
	var cleared []RoadNode
	for _, c := range seg.Cells {
		if shared[c] {
			continue
		}
		if net.RemoveRoad(g, c.X, c.Y) {
			cleared = append(cleared, c)
		}
	}
	return cleared, nil
}

// Trim drops cells from every live segment. A segment left without cells is
// removed. It reports whether any segment changed.
func (s *SegmentStore) Trim(cells map[RoadNode]bool) bool {
	changed := false
	for i := range s.Segments {
		seg := &s.Segments[i]
		if seg.Removed {
			continue
		}
		kept := seg.Cells[:0:0]
		for _, c := range seg.Cells {
			if !cells[c] {
				kept = append(kept, c)
			}
		}
		if len(kept) == len(seg.Cells) {
			continue
		}
		changed = true
		seg.Cells = kept
		if len(kept) == 0 {
			seg.Removed = true
			s.detach(seg.Start, seg.ID)
			s.detach(seg.End, seg.ID)
		}
	}
	return changed
}

// SetOneWay changes a segment's direction and bumps Generation.
func (s *SegmentStore) SetOneWay(id SegmentID, dir OneWay) error {
	seg, ok := s.Segment(id)
	if !ok {
		return ErrUnknownSegment
	}
	if seg.OneWay == dir {
		return nil
	}
	seg.OneWay = dir
	s.Generation++
	return nil
}

// SegmentsAt lists live segments whose rasterization contains the cell.
func (s *SegmentStore) SegmentsAt(c RoadNode) []SegmentID {
	var out []SegmentID
	for i := range s.Segments {
		if s.Segments[i].Removed {
			continue
		}
		for _, sc := range s.Segments[i].Cells {
			if sc == c {
				out = append(out, s.Segments[i].ID)
				break
			}
		}
	}
	return out
}

// Restore reapplies saved segments to a freshly reset grid and network.
func (s *SegmentStore) Restore(g *grid.WorldGrid, net *Network) {
	for i := range s.Segments {
		seg := &s.Segments[i]
		if seg.Removed {
			continue
		}
		for _, c := range seg.Cells {
			net.PlaceRoad(g, c.X, c.Y, seg.Road)
		}
	}
}

// Clone deep-copies the store so it can be restored later.
func (s *SegmentStore) Clone() *SegmentStore {
	c := &SegmentStore{SnapRadius: s.SnapRadius, Generation: s.Generation}
	c.Nodes = make([]SegmentNode, len(s.Nodes))
	for i, n := range s.Nodes {
		n.Segments = append([]SegmentID(nil), n.Segments...)
		c.Nodes[i] = n
	}
	c.Segments = make([]Segment, len(s.Segments))
	for i, seg := range s.Segments {
		seg.Cells = append([]RoadNode(nil), seg.Cells...)
		c.Segments[i] = seg
	}
	return c
}
