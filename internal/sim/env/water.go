package env

import "cityforge.dev/internal/sim/grid"

// Treatment is the level of wastewater treatment applied to a discharge.
type Treatment uint8

const (
	TreatmentNone Treatment = iota
	TreatmentPrimary
	TreatmentSecondary
	TreatmentTertiary
	TreatmentAdvanced
)

var treatmentReduction = [...]float32{0, 0.60, 0.85, 0.95, 0.99}

func (t Treatment) Reduction() float32 {
	if int(t) < len(treatmentReduction) {
		return treatmentReduction[t]
	}
	return 0
}

// Discharge loads per source type.
const (
	LoadSewageOutfall = 40
	LoadHeavyIndustry = 25
	LoadLightIndustry = 10
	LoadThermal       = 8
	LoadLeachate      = 15
	LoadAgricultural  = 5
)

type WaterSource struct {
	X, Y      int
	Load      float32
	Treatment Treatment
}

const outfallSearch = 4

// ComputeWaterPollution deposits each source's treated load into the nearest
// water cell and diffuses it over water only.
func ComputeWaterPollution(g *grid.WorldGrid, sources []WaterSource, out *grid.U8Grid) {
	acc := make([]float32, grid.NumCells)
	for _, s := range sources {
		x, y, ok := nearestWater(g, s.X, s.Y, outfallSearch)
		if !ok {
			continue
		}
		acc[grid.Index(x, y)] += s.Load * (1 - s.Treatment.Reduction())
	}
	Diffuse(acc, 4, 0.5, func(i int) bool { return g.Cells[i].Type == grid.Water })
	Store(acc, out)
}

// nearestWater scans rings outward in row-major order within each ring.
func nearestWater(g *grid.WorldGrid, cx, cy, r int) (int, int, bool) {
	for d := 0; d <= r; d++ {
		for y := cy - d; y <= cy+d; y++ {
			for x := cx - d; x <= cx+d; x++ {
				if max(abs(x-cx), abs(y-cy)) != d || !grid.InBounds(x, y) {
					continue
				}
				if g.At(x, y).Type == grid.Water {
					return x, y, true
				}
			}
		}
	}
	return 0, 0, false
}

// Groundwater tracks aquifer level and quality, both u8.
type Groundwater struct {
	Level   *grid.U8Grid
	Quality *grid.U8Grid
}

const (
	DefaultGroundwaterLevel   = 128
	DefaultGroundwaterQuality = 200
	pumpDrawdown              = 12
	pumpRadius                = 6
)

func NewGroundwater() *Groundwater {
	gw := &Groundwater{Level: grid.NewU8(), Quality: grid.NewU8()}
	gw.Reset()
	return gw
}

func (gw *Groundwater) Reset() {
	for i := range gw.Level.Cells {
		gw.Level.Cells[i] = DefaultGroundwaterLevel
		gw.Quality.Cells[i] = DefaultGroundwaterQuality
	}
}

// Update recharges permeable cells from precipitation, draws down around
// pumps, degrades quality under polluted and industrial cells and recovers it
// elsewhere.
func (gw *Groundwater) Update(g *grid.WorldGrid, precipitation float32, pumps []Source, pollution, waterPollution *grid.U8Grid) {
	recharge := int(precipitation * 6)
	for i := range g.Cells {
		c := &g.Cells[i]
		if c.Type == grid.Grass && !c.HasBuilding() {
			gw.Level.Cells[i] = grid.ClampU8(int(gw.Level.Cells[i]) + recharge)
		}
		if c.Type == grid.Water {
			gw.Level.Cells[i] = 255
		}
		q := int(gw.Quality.Cells[i])
		switch {
		case c.Zone == grid.ZoneIndustrial && c.HasBuilding():
			q -= 2
		case pollution.Cells[i] > 100 || waterPollution.Cells[i] > 50:
			q--
		case q < DefaultGroundwaterQuality:
			q++
		}
		gw.Quality.Cells[i] = grid.ClampU8(q)
	}
	for _, p := range pumps {
		for dy := -pumpRadius; dy <= pumpRadius; dy++ {
			for dx := -pumpRadius; dx <= pumpRadius; dx++ {
				x, y := p.X+dx, p.Y+dy
				d := max(abs(dx), abs(dy))
				if !grid.InBounds(x, y) || d > pumpRadius {
					continue
				}
				draw := int(float32(pumpDrawdown*(pumpRadius+1-d)) / float32(pumpRadius+1) * max(p.V, 1))
				gw.Level.AddSat(x, y, -draw)
			}
		}
	}
}

// WaterQuality is the drinkable fraction of pumped groundwater at (x,y).
func (gw *Groundwater) WaterQuality(x, y int) float32 {
	return float32(gw.Quality.Get(x, y)) / 255
}
