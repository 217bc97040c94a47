package terrain

import (
	"testing"

	"cityforge.dev/internal/sim/grid"
)

func TestGenerate_DeterministicPerSeed(t *testing.T) {
	a, b := grid.New(), grid.New()
	Generate(a, DefaultParams(99))
	Generate(b, DefaultParams(99))
	for i := range a.Cells {
		if a.Cells[i] != b.Cells[i] {
			t.Fatalf("cell %d differs for the same seed", i)
		}
	}
}

func TestGenerate_WaterMatchesThreshold(t *testing.T) {
	g := grid.New()
	Generate(g, DefaultParams(7))
	for i, c := range g.Cells {
		if c.Elevation < 0 || c.Elevation > 1 {
			t.Fatalf("cell %d elevation out of range: %v", i, c.Elevation)
		}
		isWater := c.Elevation < grid.WaterThreshold
		if isWater != (c.Type == grid.Water) {
			t.Fatalf("cell %d: elevation %v type %v", i, c.Elevation, c.Type)
		}
	}
	if f := WaterFraction(g); f > 0.9 {
		t.Fatalf("map is almost all water: %.2f", f)
	}
}
