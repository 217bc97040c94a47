// Package env holds the environmental field grids and their update rules.
// Every update is a pure function of its inputs and the previous grid so the
// world can run them on the slow tick in a fixed order.
package env

import "cityforge.dev/internal/sim/grid"

// Source is a point contribution to a field.
type Source struct {
	X, Y int
	V    float32
}

// Diffuse blurs vals in place with a 4-neighbor kernel. Each iteration moves
// rate of a cell's value toward the mean of its neighbors. When mask is non
// nil only cells where it returns true take part.
func Diffuse(vals []float32, iterations int, rate float32, mask func(i int) bool) {
	if iterations <= 0 || rate <= 0 {
		return
	}
	next := make([]float32, len(vals))
	for it := 0; it < iterations; it++ {
		for y := 0; y < grid.Height; y++ {
			for x := 0; x < grid.Width; x++ {
				i := grid.Index(x, y)
				if mask != nil && !mask(i) {
					next[i] = vals[i]
					continue
				}
				var sum float32
				n := 0
				for _, d := range dirs {
					nx, ny := x+d[0], y+d[1]
					if !grid.InBounds(nx, ny) {
						continue
					}
					j := grid.Index(nx, ny)
					if mask != nil && !mask(j) {
						continue
					}
					sum += vals[j]
					n++
				}
				if n == 0 {
					next[i] = vals[i]
					continue
				}
				next[i] = vals[i] + rate*(sum/float32(n)-vals[i])
			}
		}
		copy(vals, next)
	}
}

var dirs = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// Stamp adds each source's value to its cell.
func Stamp(vals []float32, sources []Source) {
	for _, s := range sources {
		if grid.InBounds(s.X, s.Y) {
			vals[grid.Index(s.X, s.Y)] += s.V
		}
	}
}

// Store clamps vals into out.
func Store(vals []float32, out *grid.U8Grid) {
	for i, v := range vals {
		out.Cells[i] = grid.ClampU8F(v)
	}
}

func clamp01(v float32) float32 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
