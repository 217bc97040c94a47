// Package traffic holds the live road density grid, freight trucks and
// transit vehicles.
package traffic

import (
	"cityforge.dev/internal/sim/grid"
)

// DensityGrid counts vehicle equivalents per cell. It satisfies
// roads.DensityView.
type DensityGrid struct {
	Cells []uint16
}

func NewDensity() *DensityGrid { return &DensityGrid{Cells: make([]uint16, grid.NumCells)} }

func (d *DensityGrid) Get(x, y int) uint16 {
	if !grid.InBounds(x, y) {
		return 0
	}
	return d.Cells[grid.Index(x, y)]
}

func (d *DensityGrid) Set(x, y int, v uint16) {
	if grid.InBounds(x, y) {
		d.Cells[grid.Index(x, y)] = v
	}
}

// Add saturates at the uint16 limit.
func (d *DensityGrid) Add(x, y int, n uint16) {
	if !grid.InBounds(x, y) {
		return
	}
	i := grid.Index(x, y)
	if v := uint32(d.Cells[i]) + uint32(n); v > 0xFFFF {
		d.Cells[i] = 0xFFFF
	} else {
		d.Cells[i] = uint16(v)
	}
}

func (d *DensityGrid) Clear() { clear(d.Cells) }

// Decay scales every cell by f, rounding down.
func (d *DensityGrid) Decay(f float32) {
	if f >= 1 {
		return
	}
	for i, v := range d.Cells {
		if v != 0 {
			d.Cells[i] = uint16(float32(v) * max(f, 0))
		}
	}
}

func (d *DensityGrid) IsZero() bool {
	for _, v := range d.Cells {
		if v != 0 {
			return false
		}
	}
	return true
}

// Ratio is volume over capacity on a road cell; 0 off-road.
func (d *DensityGrid) Ratio(g *grid.WorldGrid, x, y int) float32 {
	c := g.At(x, y)
	if c.Type != grid.Road {
		return 0
	}
	return float32(d.Get(x, y)) / c.Road.Capacity()
}

// CongestionThreshold is the volume/capacity ratio above which a cell counts
// as congested.
const CongestionThreshold = 0.9

// Congested reports whether any road cell within radius of (x,y) is
// congested.
func (d *DensityGrid) Congested(g *grid.WorldGrid, x, y, radius int) bool {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			nx, ny := x+dx, y+dy
			if grid.InBounds(nx, ny) && d.Ratio(g, nx, ny) >= CongestionThreshold {
				return true
			}
		}
	}
	return false
}

// Summary is the network-wide congestion picture.
type Summary struct {
	RoadCells      int
	CongestedCells int
	MeanRatio      float32
	ByGrade        [GradeF + 1]int
}

func (d *DensityGrid) Summarize(g *grid.WorldGrid) Summary {
	var s Summary
	var total float32
	for i := range g.Cells {
		if g.Cells[i].Type != grid.Road {
			continue
		}
		r := float32(d.Cells[i]) / g.Cells[i].Road.Capacity()
		s.RoadCells++
		total += r
		if r >= CongestionThreshold {
			s.CongestedCells++
		}
		s.ByGrade[GradeFor(r)]++
	}
	if s.RoadCells > 0 {
		s.MeanRatio = total / float32(s.RoadCells)
	}
	return s
}

// Grade is the level of service from free flow (A) to breakdown (F).
type Grade uint8

const (
	GradeA Grade = iota
	GradeB
	GradeC
	GradeD
	GradeE
	GradeF
)

func (g Grade) String() string { return string(rune('A' + g)) }

// GradeFor maps a volume/capacity ratio to a level of service.
func GradeFor(vc float32) Grade {
	switch {
	case vc < 0.35:
		return GradeA
	case vc < 0.55:
		return GradeB
	case vc < 0.77:
		return GradeC
	case vc < 0.90:
		return GradeD
	case vc < 1:
		return GradeE
	}
	return GradeF
}
