package env

import (
	"math"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
)

const (
	IndustrialDB = 75
	StadiumDB    = 70
	AirportDB    = 70
	HeatingDB    = 60
	// BarrierDB is subtracted for each building cell between source and receiver.
	BarrierDB   = 5
	NoiseRadius = 12
)

type NoiseSource struct {
	X, Y int
	DB   float32
}

// Attenuate is the level at distance d cells from a source of level l0.
func Attenuate(l0, d float32) float32 {
	return max(l0-20*float32(math.Log10(float64(max(d, 1)))), 0)
}

// RoadDB scales a road type's base level by the traffic on the cell.
func RoadDB(rt grid.RoadType, traffic uint8) float32 {
	if traffic == 0 {
		return rt.NoiseDB() - 10
	}
	return rt.NoiseDB() + 10*float32(math.Log10(1+float64(traffic)/32))
}

// ComputeNoise rebuilds out. Levels from different sources combine on an
// energy basis; buildings along the line of sight act as barriers.
func ComputeNoise(g *grid.WorldGrid, sources []NoiseSource, out *grid.U8Grid) {
	energy := make([]float64, grid.NumCells)
	for _, s := range sources {
		if s.DB <= 0 {
			continue
		}
		for dy := -NoiseRadius; dy <= NoiseRadius; dy++ {
			for dx := -NoiseRadius; dx <= NoiseRadius; dx++ {
				x, y := s.X+dx, s.Y+dy
				if !grid.InBounds(x, y) {
					continue
				}
				d := float32(math.Hypot(float64(dx), float64(dy)))
				if d > NoiseRadius {
					continue
				}
				l := Attenuate(s.DB, d) - BarrierDB*float32(barriers(g, s.X, s.Y, x, y))
				if l <= 0 {
					continue
				}
				energy[grid.Index(x, y)] += math.Pow(10, float64(l)/10)
			}
		}
	}
	for i, e := range energy {
		if e <= 1 {
			out.Cells[i] = 0
			continue
		}
		out.Cells[i] = grid.ClampU8F(float32(10 * math.Log10(e)))
	}
}

// barriers counts building cells strictly between the endpoints.
func barriers(g *grid.WorldGrid, x0, y0, x1, y1 int) int {
	if max(abs(x1-x0), abs(y1-y0)) < 2 {
		return 0
	}
	n := 0
	line := roads.BresenhamLine(x0, y0, x1, y1)
	for _, c := range line[1 : len(line)-1] {
		if g.At(c.X, c.Y).HasBuilding() {
			n++
		}
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
