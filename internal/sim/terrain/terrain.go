// Package terrain generates the deterministic procedural elevation field.
package terrain

import (
	"math"

	"github.com/ojrac/opensimplex-go"

	"cityforge.dev/internal/sim/grid"
)

type Params struct {
	Seed        int64
	Octaves     int
	Scale       float64
	Persistence float64
	// CenterBias lifts the middle of the map so the playable area is mostly land.
	CenterBias float64
}

func DefaultParams(seed int64) Params {
	return Params{
		Seed:        seed,
		Octaves:     5,
		Scale:       0.012,
		Persistence: 0.5,
		CenterBias:  0.25,
	}
}

func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, persistence float64) float64 {
	var total, amp, maxAmp float64 = 0, 1, 0
	freq := 1.0
	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*freq, y*freq) * amp
		maxAmp += amp
		amp *= persistence
		freq *= 2
	}
	return total / maxAmp
}

// Generate writes elevation into every cell and marks cells below the water
// threshold as Water. Zones, roads and buildings are cleared.
func Generate(g *grid.WorldGrid, p Params) {
	noise := opensimplex.NewNormalized(p.Seed)
	cx, cy := float64(g.Width)/2, float64(g.Height)/2
	maxD := math.Hypot(cx, cy)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			e := octaveNoise(noise, float64(x)*p.Scale, float64(y)*p.Scale, p.Octaves, p.Persistence)
			d := math.Hypot(float64(x)-cx, float64(y)-cy) / maxD
			e += p.CenterBias * (0.5 - d)
			e = math.Max(0, math.Min(1, e))

			c := g.At(x, y)
			*c = grid.Cell{Elevation: float32(e)}
			if e < grid.WaterThreshold {
				c.Type = grid.Water
			}
		}
	}
}

// WaterFraction is the share of water cells, used by tests and the new-game log line.
func WaterFraction(g *grid.WorldGrid) float64 {
	n := 0
	for i := range g.Cells {
		if g.Cells[i].Type == grid.Water {
			n++
		}
	}
	return float64(n) / float64(len(g.Cells))
}
