package env

import (
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/rng"
	"cityforge.dev/internal/sim/weather"
)

// ComputeCrime stamps per-building crime sources, diffuses them and removes
// the share police coverage suppresses. police holds per-cell quality 0..255.
func ComputeCrime(sources []Source, police grid.U8View, policyMult float32, out *grid.U8Grid) {
	acc := make([]float32, grid.NumCells)
	Stamp(acc, sources)
	Diffuse(acc, 3, 0.5, nil)
	for i := range acc {
		x, y := i%grid.Width, i/grid.Width
		q := float32(police.Get(x, y)) / 255
		acc[i] *= policyMult * (1 - 0.7*q)
	}
	Store(acc, out)
}

// CrimeSource is the base crime a building generates.
func CrimeSource(occupants uint32, landValue uint8, unemployedShare float32) float32 {
	base := 4 + float32(occupants)*0.2
	if landValue < 60 {
		base *= 1.5
	}
	return base * (1 + unemployedShare)
}

// Fire tracks structure fire intensity.
type Fire struct {
	Intensity *grid.U8Grid
}

func NewFire() *Fire { return &Fire{Intensity: grid.NewU8()} }

// Update rebuilds the intensity field from burning buildings. Fire coverage
// quality scales the heat that reaches neighbors.
func (f *Fire) Update(burning []Source, fireQuality grid.U8View) {
	acc := make([]float32, grid.NumCells)
	Stamp(acc, burning)
	Diffuse(acc, 1, 0.3, nil)
	for i := range acc {
		q := float32(fireQuality.Get(i%grid.Width, i/grid.Width)) / 255
		acc[i] *= 1 - 0.5*q
	}
	Store(acc, f.Intensity)
}

// Building fire rules.
const (
	IgnitionChance       = 0.00005
	IndustrialIgnition   = 0.0002
	FireGrowth           = 4
	FireSuppressPerTier  = 6
	FireBurnoutTicks     = 300
	FireDestroyIntensity = 100
)

// StepBuildingFire grows or suppresses one burning building. bestTier is
// the best fire service tier covering the cell (0 for none). It returns the
// new intensity and whether the fire is out.
func StepBuildingFire(intensity float32, ticks uint32, bestTier uint8, c weather.Condition) (float32, bool) {
	delta := float32(FireGrowth) - float32(bestTier)*FireSuppressPerTier
	switch c {
	case weather.Rain:
		delta -= 2
	case weather.HeavyRain, weather.Storm:
		delta -= 4
	}
	intensity = min(max(intensity+delta, 0), 255)
	return intensity, intensity == 0 || ticks >= FireBurnoutTicks
}

// ForestFire tracks wildfire intensity on unbuilt grass.
type ForestFire struct {
	Intensity *grid.U8Grid
}

func NewForestFire() *ForestFire { return &ForestFire{Intensity: grid.NewU8()} }

const (
	LightningChance     = 0.00002
	forestInitial       = 30
	forestBurnout       = 2
	forestRainReduce    = 8
	forestStormReduce   = 15
	forestSpreadChance  = 0.15
	BuildingIgniteLevel = 100
	ForestElevation     = 0.5
)

// IsForest reports whether a cell can carry wildfire.
func IsForest(c *grid.Cell) bool {
	return c.Type == grid.Grass && c.Zone == grid.ZoneNone && !c.HasBuilding() && c.Elevation >= ForestElevation
}

// Update ignites, spreads and burns out wildfire. It returns building cells
// adjacent to intense fire, in row-major order.
func (f *ForestFire) Update(g *grid.WorldGrid, w *weather.Weather, r *rng.SimRng) [][2]int {
	cur := f.Intensity.Cells
	next := make([]uint8, len(cur))
	copy(next, cur)
	dry := w.Condition == weather.Sunny && w.Temperature > 25
	lightning := w.Condition == weather.Storm || dry
	var threatened [][2]int
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			i := grid.Index(x, y)
			c := &g.Cells[i]
			v := int(cur[i])
			if v == 0 {
				if lightning && IsForest(c) && r.Chance(LightningChance) {
					next[i] = forestInitial
				}
				continue
			}
			v -= forestBurnout
			switch w.Condition {
			case weather.Rain, weather.HeavyRain, weather.Snow:
				v -= forestRainReduce
			case weather.Storm:
				v -= forestStormReduce
			}
			next[i] = grid.ClampU8(v)
			for _, d := range dirs {
				nx, ny := x+d[0], y+d[1]
				if !grid.InBounds(nx, ny) {
					continue
				}
				j := grid.Index(nx, ny)
				n := &g.Cells[j]
				if IsForest(n) && cur[j] == 0 && next[j] == 0 && r.Chance(forestSpreadChance) {
					next[j] = forestInitial
				}
				if n.HasBuilding() && int(cur[i]) >= BuildingIgniteLevel {
					threatened = append(threatened, [2]int{nx, ny})
				}
			}
		}
	}
	copy(cur, next)
	return threatened
}

// Snow tracks depth in inches.
type Snow struct {
	Depth *grid.F32Grid
}

func NewSnow() *Snow { return &Snow{Depth: grid.NewF32()} }

const (
	SnowAccumulation = 0.5
	SnowMeltPerDeg   = 0.1
	MaxSnowDepth     = 24
	PlowTrigger      = 2
	PlowRemoval      = 6
	PlowCostPerCell  = 500.0
)

// Update accumulates snow below freezing and melts it above. With plowing
// on, road cells deeper than PlowTrigger are cleared by PlowRemoval; the
// number of plowed cells is returned.
func (s *Snow) Update(g *grid.WorldGrid, w *weather.Weather, plow bool) int {
	add := float32(0)
	if w.Temperature <= 0 {
		add = SnowAccumulation * w.Precipitation
	}
	melt := float32(0)
	if w.Temperature > 0 {
		melt = SnowMeltPerDeg * w.Temperature
	}
	plowed := 0
	for i := range s.Depth.Cells {
		if g.Cells[i].Type == grid.Water {
			s.Depth.Cells[i] = 0
			continue
		}
		d := min(max(s.Depth.Cells[i]+add-melt, 0), MaxSnowDepth)
		if plow && g.Cells[i].Type == grid.Road && d > PlowTrigger {
			d = max(d-PlowRemoval, 0)
			plowed++
		}
		s.Depth.Cells[i] = d
	}
	return plowed
}

// SnowSpeedFactor is the travel speed multiplier on a cell with depth inches.
func SnowSpeedFactor(depth float32) float32 {
	return 1 - min(0.05*depth, 0.8)
}

// HeatingDemand is the fraction of full heating load at temperature t.
func HeatingDemand(t float32) float32 { return clamp01((18 - t) / 30) }

// ComputeHeating marks cells within radius of heating plants.
func ComputeHeating(plants []Source, radius int, out *grid.U8Grid) {
	out.Clear()
	for _, p := range plants {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				x, y := p.X+dx, p.Y+dy
				if !grid.InBounds(x, y) || dx*dx+dy*dy > radius*radius {
					continue
				}
				d := max(abs(dx), abs(dy))
				v := 255 - d*255/(radius+1)
				if v > int(out.Get(x, y)) {
					out.Set(x, y, uint8(v))
				}
			}
		}
	}
}

// LandValueInputs are the fields land value reads.
type LandValueInputs struct {
	Coverage  func(x, y int) uint8
	Pollution grid.U8View
	Crime     grid.U8View
	Noise     grid.U8View
	Garbage   grid.U8View
	Flood     grid.F32View
}

// ComputeLandValue rebuilds out from location amenities and disamenities,
// then smooths it.
func ComputeLandValue(g *grid.WorldGrid, in LandValueInputs, out *grid.U8Grid) {
	acc := make([]float32, grid.NumCells)
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := g.At(x, y)
			if c.Type == grid.Water {
				continue
			}
			v := float32(50)
			if g.IsRoadAdjacent(x, y) {
				v += 10
			}
			if nearWater(g, x, y, 3) {
				v += 15
			}
			if in.Coverage != nil {
				cov := in.Coverage(x, y)
				for b := uint8(1); b != 0; b <<= 1 {
					if cov&b != 0 {
						v += 6
					}
				}
			}
			v -= float32(in.Pollution.Get(x, y)) / 4
			v -= float32(in.Crime.Get(x, y)) / 5
			v -= float32(in.Noise.Get(x, y)) / 8
			v -= float32(in.Garbage.Get(x, y)) / 10
			if in.Flood != nil && in.Flood.Get(x, y) >= DepthThreshold {
				v -= 20
			}
			acc[grid.Index(x, y)] = v
		}
	}
	Diffuse(acc, 2, 0.25, func(i int) bool { return g.Cells[i].Type != grid.Water })
	Store(acc, out)
}

func nearWater(g *grid.WorldGrid, cx, cy, r int) bool {
	_, _, ok := nearestWater(g, cx, cy, r)
	return ok
}

// Urban heat island terms in degrees Celsius.
const (
	uhiAsphalt      = 2.0
	uhiConcrete     = 1.5
	uhiWater        = -2.0
	uhiVegetation   = -1.5
	uhiGreenBase    = 0.6
	uhiDeficitScale = 8.0
	uhiCanyonLevel  = 4
	uhiCanyonScale  = 1.5
	uhiNightAmplify = 2.0
)

// ComputeUHI rebuilds the temperature offset per cell. level returns the
// building level on a cell or 0.
func ComputeUHI(g *grid.WorldGrid, level func(x, y int) uint8, night bool, out *grid.F32Grid) {
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := g.At(x, y)
			var v float32
			switch {
			case c.Type == grid.Water:
				v = uhiWater
			case c.Type == grid.Road:
				v = uhiAsphalt
			case c.HasBuilding():
				v = uhiConcrete
				if l := level(x, y); l >= uhiCanyonLevel {
					v += uhiCanyonScale * float32(l-uhiCanyonLevel+1)
				}
			default:
				v = uhiVegetation
			}
			v += uhiDeficitScale * max(uhiGreenBase-greenFraction(g, x, y), 0)
			if night {
				v *= uhiNightAmplify
			}
			out.Set(x, y, v)
		}
	}
}

func greenFraction(g *grid.WorldGrid, cx, cy int) float32 {
	green, total := 0, 0
	for y := cy - 2; y <= cy+2; y++ {
		for x := cx - 2; x <= cx+2; x++ {
			if !grid.InBounds(x, y) {
				continue
			}
			total++
			c := g.At(x, y)
			if c.Type != grid.Road && !c.HasBuilding() {
				green++
			}
		}
	}
	return float32(green) / float32(total)
}

// Garbage tracks uncollected waste per cell and the landfill it drains into.
type Garbage struct {
	Level    *grid.U8Grid
	Landfill Landfill
}

// Landfill capacity is in tons.
type Landfill struct {
	Capacity float64
	Used     float64
	// Warned is the highest warning tier already emitted.
	Warned uint8
}

// Landfill warning tiers by remaining share.
var LandfillWarnings = [...]float64{0.25, 0.10, 0.05, 0}

func NewGarbage() *Garbage { return &Garbage{Level: grid.NewU8()} }

// Update adds each source's tons. Cells within collection coverage send their
// waste (scaled by recycling) to the landfill; others accumulate. It returns
// a new warning tier when the landfill crosses one, or 0.
func (gb *Garbage) Update(sources []Source, collected func(x, y int) bool, recyclingMult float32) uint8 {
	for i, v := range gb.Level.Cells {
		if v > 0 {
			gb.Level.Cells[i] = v - 1
		}
	}
	for _, s := range sources {
		if !grid.InBounds(s.X, s.Y) {
			continue
		}
		if collected(s.X, s.Y) {
			gb.Landfill.Used += float64(s.V * recyclingMult)
			continue
		}
		gb.Level.AddSat(s.X, s.Y, int(s.V*4)+1)
	}
	if gb.Landfill.Capacity <= 0 {
		return 0
	}
	remaining := max(gb.Landfill.Capacity-gb.Landfill.Used, 0) / gb.Landfill.Capacity
	tier := uint8(0)
	for i, th := range LandfillWarnings {
		if remaining <= th {
			tier = uint8(i + 1)
		}
	}
	if tier > gb.Landfill.Warned {
		gb.Landfill.Warned = tier
		return tier
	}
	return 0
}
