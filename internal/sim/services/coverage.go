package services

import (
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
)

// CoverageGrid is the packed per-cell category bitset.
type CoverageGrid struct {
	Flags []uint8
}

func NewCoverageGrid() *CoverageGrid { return &CoverageGrid{Flags: make([]uint8, grid.NumCells)} }

func (c *CoverageGrid) Get(x, y int) uint8 {
	if !grid.InBounds(x, y) {
		return 0
	}
	return c.Flags[grid.Index(x, y)]
}

func (c *CoverageGrid) Has(x, y int, bit uint8) bool { return c.Get(x, y)&bit != 0 }

func (c *CoverageGrid) Clear() { clear(c.Flags) }

// RadiusCells converts a world-unit radius to cells.
func RadiusCells(r float32) float32 { return r / grid.CellSize }

// Rebuild clears the grid and ORs each site's bit into every cell within its
// radius (squared-distance test in cell units).
func (c *CoverageGrid) Rebuild(sites []Site) {
	c.Clear()
	for _, s := range sites {
		bit := s.Type.Bit()
		if bit == 0 {
			continue
		}
		rc := RadiusCells(s.Radius)
		r := int(rc)
		r2 := rc * rc
		for dy := -r; dy <= r; dy++ {
			y := s.Y + dy
			if y < 0 || y >= grid.Height {
				continue
			}
			for dx := -r; dx <= r; dx++ {
				x := s.X + dx
				if x < 0 || x >= grid.Width {
					continue
				}
				if float32(dx*dx+dy*dy) <= r2 {
					c.Flags[y*grid.Width+x] |= bit
				}
			}
		}
	}
}

// Covers reports whether s's radius contains (x,y).
func Covers(s Site, x, y int) bool {
	rc := RadiusCells(s.Radius)
	dx, dy := x-s.X, y-s.Y
	return float32(dx*dx+dy*dy) <= rc*rc
}

// Categories lists the coverage bits in hybrid-layer order.
var Categories = []uint8{BitHealth, BitEducation, BitPolice, BitPark, BitEntertainment, BitTelecom, BitTransport, BitFire}

func categoryIndex(bit uint8) int {
	for i, b := range Categories {
		if b == bit {
			return i
		}
	}
	return -1
}

// CategoryName maps a coverage bit to the budget department it is paid from.
func CategoryName(bit uint8) string {
	switch bit {
	case BitHealth:
		return "health"
	case BitEducation:
		return "education"
	case BitPolice:
		return "police"
	case BitPark:
		return "park"
	case BitEntertainment:
		return "entertainment"
	case BitTelecom:
		return "telecom"
	case BitTransport:
		return "transport"
	case BitFire:
		return "fire"
	default:
		return ""
	}
}

// HybridInputs parameterize the road-reach quality pass.
type HybridInputs struct {
	Grid    *grid.WorldGrid
	Network *roads.Network
	Sites   []Site
	// Demand is the population each category must serve.
	Demand uint32
	// BudgetFactor returns the funding quality for a category bit.
	BudgetFactor func(bit uint8) float32
}

// TierStats counts cells whose best tier is 1, 2 or 3.
type TierStats struct {
	Fire   [3]uint32
	Police [3]uint32
}

// Hybrid is the road-reach coverage quality per category, 0..255.
type Hybrid struct {
	Quality [8][]uint8
	// BestTier holds the best fire tier (low nibble) and police tier (high nibble) per cell.
	BestTier []uint8
	Tiers    TierStats
}

func NewHybrid() *Hybrid {
	h := &Hybrid{BestTier: make([]uint8, grid.NumCells)}
	for i := range h.Quality {
		h.Quality[i] = make([]uint8, grid.NumCells)
	}
	return h
}

// QualityAt returns the quality for a category bit at (x,y).
func (h *Hybrid) QualityAt(bit uint8, x, y int) uint8 {
	i := categoryIndex(bit)
	if i < 0 || !grid.InBounds(x, y) {
		return 0
	}
	return h.Quality[i][grid.Index(x, y)]
}

// Compute runs a BFS over roads from each site's nearest road cell, bounded by
// radius/CellSize hops, and stamps the quality factor onto visited roads and
// their immediate neighbors. Each cell keeps the best quality seen.
func (h *Hybrid) Compute(in HybridInputs) {
	for i := range h.Quality {
		clear(h.Quality[i])
	}
	clear(h.BestTier)
	h.Tiers = TierStats{}

	var capacity [8]uint32
	for _, s := range in.Sites {
		if i := categoryIndex(s.Type.Bit()); i >= 0 {
			capacity[i] += s.Capacity
		}
	}

	for _, s := range in.Sites {
		bit := s.Type.Bit()
		ci := categoryIndex(bit)
		if ci < 0 {
			continue
		}
		start, ok := in.Network.NearestRoad(s.X, s.Y, 2)
		if !ok {
			continue
		}
		q := QualityFor(s.Type, budget(in.BudgetFactor, bit), capacity[ci], in.Demand)
		qb := grid.ClampU8F(q * 255)
		hops := int(RadiusCells(s.Radius))
		visit := func(x, y int) {
			idx := grid.Index(x, y)
			if h.Quality[ci][idx] < qb {
				h.Quality[ci][idx] = qb
			}
			switch {
			case s.Type.IsFire():
				if t := s.Type.Tier(); t > h.BestTier[idx]&0x0f {
					h.BestTier[idx] = h.BestTier[idx]&0xf0 | t
				}
			case s.Type.IsPolice():
				if t := s.Type.Tier(); t > h.BestTier[idx]>>4 {
					h.BestTier[idx] = h.BestTier[idx]&0x0f | t<<4
				}
			}
		}
		visit(s.X, s.Y)
		roadBFS(in.Network, start, hops, func(n roads.RoadNode) {
			visit(n.X, n.Y)
			for _, nb := range grid.Neighbors4(n.X, n.Y) {
				if in.Grid.At(nb[0], nb[1]).Type != grid.Road {
					visit(nb[0], nb[1])
				}
			}
		})
	}

	for _, v := range h.BestTier {
		if f := v & 0x0f; f > 0 {
			h.Tiers.Fire[f-1]++
		}
		if p := v >> 4; p > 0 {
			h.Tiers.Police[p-1]++
		}
	}
}

func budget(f func(uint8) float32, bit uint8) float32 {
	if f == nil {
		return 1
	}
	return f(bit)
}

// QualityFor is base × budget × min(1, capacity/demand). Uncapacitated
// categories ignore demand.
func QualityFor(t Type, budgetFactor float32, capacity, demand uint32) float32 {
	base := 0.6 + 0.2*float32(t.Tier()-1)
	q := base * budgetFactor
	if capacity > 0 && demand > capacity {
		q *= float32(capacity) / float32(demand)
	}
	if q > 1 {
		q = 1
	}
	if q < 0 {
		q = 0
	}
	return q
}

func roadBFS(net *roads.Network, start roads.RoadNode, hops int, fn func(roads.RoadNode)) {
	seen := map[roads.RoadNode]bool{start: true}
	frontier := []roads.RoadNode{start}
	fn(start)
	for depth := 0; depth < hops && len(frontier) > 0; depth++ {
		var next []roads.RoadNode
		for _, n := range frontier {
			for _, nb := range net.Neighbors(n) {
				if seen[nb] {
					continue
				}
				seen[nb] = true
				fn(nb)
				next = append(next, nb)
			}
		}
		frontier = next
	}
}
