package roads

import "cityforge.dev/internal/sim/grid"

// Condition tracks pavement quality per road cell; 255 is new.
type Condition struct {
	Grid *grid.U8Grid
}

func NewCondition() *Condition { return &Condition{Grid: grid.NewU8()} }

// Pave sets a freshly placed cell to full condition.
func (c *Condition) Pave(x, y int) { c.Grid.Set(x, y, 255) }

// Degrade wears every road cell by traffic load; heavy cells lose up to 3 points.
func (c *Condition) Degrade(g *grid.WorldGrid, density DensityView) {
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			if g.At(x, y).Type != grid.Road {
				continue
			}
			wear := 1
			if v := density.Get(x, y); v > 0 {
				wear += min(int(v)/10, 2)
			}
			c.Grid.AddSat(x, y, -wear)
		}
	}
}

// Repair restores up to amount points on every road cell.
func (c *Condition) Repair(g *grid.WorldGrid, amount int) {
	for i := range g.Cells {
		if g.Cells[i].Type == grid.Road {
			c.Grid.Cells[i] = grid.ClampU8(int(c.Grid.Cells[i]) + amount)
		}
	}
}

// PoorFraction is the share of road cells below 80 condition.
func (c *Condition) PoorFraction(g *grid.WorldGrid) float32 {
	total, poor := 0, 0
	for i := range g.Cells {
		if g.Cells[i].Type != grid.Road {
			continue
		}
		total++
		if c.Grid.Cells[i] < 80 {
			poor++
		}
	}
	if total == 0 {
		return 0
	}
	return float32(poor) / float32(total)
}

// MaintenanceCost scales each cell's upkeep by its wear: worn roads cost more.
func (c *Condition) MaintenanceCost(g *grid.WorldGrid) float64 {
	var total float64
	for i := range g.Cells {
		cell := &g.Cells[i]
		if cell.Type != grid.Road {
			continue
		}
		wear := 1 - float64(c.Grid.Cells[i])/255
		total += cell.Road.Maintenance() * (1 + wear)
	}
	return total
}
