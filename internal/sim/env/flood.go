package env

import (
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/rng"
)

const (
	SoilPermeability = 0.6
	DrainRate        = 0.1
	// RunoffRetention is the share of stored runoff left after infiltration
	// and evaporation each update.
	RunoffRetention = 0.95

	OverflowTrigger   = 10
	RunoffToDepth     = 0.1
	SpreadIterations  = 5
	SpreadRate        = 0.25
	NaturalDrain      = 0.01
	StormDrainBonus   = 0.04
	DepthThreshold    = 0.5
	FloodClearUpdates = 5
	// ElevationFeet converts normalized elevation to the depth unit.
	ElevationFeet = 20
)

// Imperviousness is the runoff fraction of a cell's surface.
func Imperviousness(c *grid.Cell) float32 {
	switch {
	case c.Type == grid.Water:
		return 0
	case c.Type == grid.Road:
		return 0.95
	case c.HasBuilding():
		return 0.9
	default:
		return 0.1
	}
}

// Runoff is the water a cell sheds for precipitation intensity p in [0,1].
func Runoff(c *grid.Cell, p float32) float32 {
	r := p * Imperviousness(c)
	if c.Type == grid.Grass && !c.HasBuilding() {
		r *= 1 - SoilPermeability
	}
	return r
}

// Stormwater accumulates runoff per cell.
type Stormwater struct {
	Runoff *grid.F32Grid
	// Retention holds per-cell local absorption from ponds and rain gardens.
	Retention *grid.F32Grid
}

func NewStormwater() *Stormwater {
	return &Stormwater{Runoff: grid.NewF32(), Retention: grid.NewF32()}
}

// Update adds this update's runoff, drains road cells and lets stored water
// soak away. It returns the number of cells above OverflowTrigger.
func (s *Stormwater) Update(g *grid.WorldGrid, precipitation float32) int {
	overflow := 0
	for i := range g.Cells {
		c := &g.Cells[i]
		v := s.Runoff.Cells[i]*RunoffRetention + Runoff(c, precipitation) - s.Retention.Cells[i]
		if c.Type == grid.Road {
			v -= DrainRate
		}
		v = max(v, 0)
		s.Runoff.Cells[i] = v
		if v > OverflowTrigger {
			overflow++
		}
	}
	return overflow
}

func (s *Stormwater) Total() float64 { return s.Runoff.Sum() }

// ProtectionKind is a flood barrier type.
type ProtectionKind uint8

const (
	Levee ProtectionKind = iota
	Seawall
	Floodgate
)

func (k ProtectionKind) DesignHeight() float32 {
	switch k {
	case Seawall:
		return 15
	case Floodgate:
		return 12
	default:
		return 10
	}
}

const (
	ProtectionDegradePerUpdate = 0.002
	ProtectionRecoverPerUpdate = 0.001
	baseFailure                = 0.0001
	ageFailurePerYear          = 0.00005
	OvertopAmplification       = 1.5
	ProtectionMaintenanceYear  = 2000.0
)

// Barrier is a levee, seawall or floodgate on a cell.
type Barrier struct {
	X, Y       int
	Kind       ProtectionKind
	Condition  float32
	AgeDays    uint32
	Maintained bool
	Failed     bool
}

// FailureProbability grows with age in years and with the square of neglect.
func (b *Barrier) FailureProbability() float64 {
	years := float64(b.AgeDays) / 360
	neglect := float64(1 - b.Condition)
	return baseFailure + ageFailurePerYear*years + 0.01*neglect*neglect
}

// Protection is the set of barriers plus a cell lookup.
type Protection struct {
	Barriers []Barrier
	byCell   map[int]int
}

func (p *Protection) Add(b Barrier) {
	if b.Condition == 0 {
		b.Condition = 1
	}
	p.Barriers = append(p.Barriers, b)
	p.byCell = nil
}

func (p *Protection) At(x, y int) (*Barrier, bool) {
	if p == nil {
		return nil, false
	}
	if p.byCell == nil {
		p.byCell = make(map[int]int, len(p.Barriers))
		for i, b := range p.Barriers {
			p.byCell[grid.Index(b.X, b.Y)] = i
		}
	}
	i, ok := p.byCell[grid.Index(x, y)]
	if !ok {
		return nil, false
	}
	return &p.Barriers[i], true
}

// Replace swaps in a copy of bs.
func (p *Protection) Replace(bs []Barrier) {
	p.Barriers = append([]Barrier(nil), bs...)
	p.byCell = nil
}

// Remove drops the barrier on a cell.
func (p *Protection) Remove(x, y int) bool {
	for i, b := range p.Barriers {
		if b.X == x && b.Y == y {
			p.Barriers = append(p.Barriers[:i], p.Barriers[i+1:]...)
			p.byCell = nil
			return true
		}
	}
	return false
}

// Age advances barriers by one update: condition decays unless maintained,
// and each intact barrier may fail. It returns the number of new failures.
func (p *Protection) Age(days uint32, r *rng.SimRng) int {
	failed := 0
	for i := range p.Barriers {
		b := &p.Barriers[i]
		b.AgeDays += days
		if b.Maintained {
			b.Condition = min(b.Condition+ProtectionRecoverPerUpdate, 1)
		} else {
			b.Condition = max(b.Condition-ProtectionDegradePerUpdate, 0)
		}
		if !b.Failed && r.Chance(b.FailureProbability()) {
			b.Failed = true
			failed++
		}
	}
	return failed
}

// MaintenanceCost is the monthly cost of maintained barriers.
func (p *Protection) MaintenanceCost() float64 {
	n := 0
	for _, b := range p.Barriers {
		if b.Maintained {
			n++
		}
	}
	return float64(n) * ProtectionMaintenanceYear / 12
}

// Flood is the flood depth grid and its event state.
type Flood struct {
	Depth        *grid.F32Grid
	Active       bool
	CalmUpdates  uint32
	FloodedCells uint32
	MaxDepth     float32
}

func NewFlood() *Flood { return &Flood{Depth: grid.NewF32()} }

// Update seeds depth from overflowing runoff, spreads it downhill, drains it
// and clears the grid once runoff has stayed below the trigger for
// FloodClearUpdates consecutive updates.
func (f *Flood) Update(g *grid.WorldGrid, sw *Stormwater, overflowCells int, prot *Protection, hasDrains bool) {
	triggered := overflowCells > 0
	if triggered {
		f.CalmUpdates = 0
		for i, v := range sw.Runoff.Cells {
			if v > OverflowTrigger {
				f.Depth.Cells[i] += (v - OverflowTrigger) * RunoffToDepth
			}
		}
	} else {
		f.CalmUpdates++
		if f.CalmUpdates >= FloodClearUpdates {
			f.Depth.Clear()
			f.Active, f.FloodedCells, f.MaxDepth = false, 0, 0
			return
		}
	}
	if f.Depth.IsZero() {
		f.Active, f.FloodedCells, f.MaxDepth = false, 0, 0
		return
	}

	snap := make([]float32, grid.NumCells)
	for it := 0; it < SpreadIterations; it++ {
		copy(snap, f.Depth.Cells)
		for y := 0; y < grid.Height; y++ {
			for x := 0; x < grid.Width; x++ {
				f.spread(g, snap, prot, x, y)
			}
		}
	}

	f.FloodedCells, f.MaxDepth = 0, 0
	for i := range f.Depth.Cells {
		d := f.Depth.Cells[i]
		if d <= 0 {
			continue
		}
		drain := float32(NaturalDrain)
		if hasDrains && g.Cells[i].Type == grid.Road {
			drain += StormDrainBonus
		}
		d = max(d-drain, 0)
		f.Depth.Cells[i] = d
		if d >= DepthThreshold {
			f.FloodedCells++
		}
		f.MaxDepth = max(f.MaxDepth, d)
	}
	f.Active = f.FloodedCells > 0
}

// spread moves SpreadRate of a cell's depth to its lower neighbours,
// weighted by surface drop. Water overtopping an intact barrier lands with
// OvertopAmplification times its share, capped by the source depth.
func (f *Flood) spread(g *grid.WorldGrid, snap []float32, prot *Protection, x, y int) {
	i := grid.Index(x, y)
	depth := snap[i]
	if depth <= 0 {
		return
	}
	surface := g.Cells[i].Elevation*ElevationFeet + depth
	var lower [4]struct {
		j         int
		diff, amp float32
	}
	n := 0
	var total float32
	for _, d := range dirs {
		nx, ny := x+d[0], y+d[1]
		if !grid.InBounds(nx, ny) {
			continue
		}
		j := grid.Index(nx, ny)
		ground := g.Cells[j].Elevation * ElevationFeet
		diff := surface - (ground + snap[j])
		if diff <= 0 {
			continue
		}
		amp := float32(1)
		if b, ok := prot.At(nx, ny); ok && !b.Failed {
			if surface-ground <= b.Kind.DesignHeight() {
				continue
			}
			amp = OvertopAmplification
		}
		lower[n].j, lower[n].diff, lower[n].amp = j, diff, amp
		total += diff
		n++
	}
	if n == 0 {
		return
	}
	move := depth * SpreadRate
	var out [4]float32
	var sum float32
	for k, l := range lower[:n] {
		out[k] = move * l.diff / total * l.amp
		sum += out[k]
	}
	scale := float32(1)
	if sum > depth {
		scale = depth / sum
		sum = depth
	}
	f.Depth.Cells[i] -= sum
	for k, l := range lower[:n] {
		f.Depth.Cells[l.j] += out[k] * scale
	}
}

var (
	damageDepths      = [5]float32{0, 1, 3, 6, 10}
	residentialDamage = [5]float32{0, 0.10, 0.35, 0.65, 0.90}
	commercialDamage  = [5]float32{0, 0.05, 0.20, 0.50, 0.80}
	industrialDamage  = [5]float32{0, 0.03, 0.15, 0.40, 0.70}
)

func interpolate(depth float32, ys [5]float32) float32 {
	if depth <= damageDepths[0] {
		return ys[0]
	}
	for i := 1; i < len(damageDepths); i++ {
		if depth <= damageDepths[i] {
			t := (depth - damageDepths[i-1]) / (damageDepths[i] - damageDepths[i-1])
			return ys[i-1] + t*(ys[i]-ys[i-1])
		}
	}
	return ys[len(ys)-1]
}

// DamageFraction is the share of property value lost at depth. Office and
// mixed use follow the commercial curve.
func DamageFraction(z grid.ZoneType, depth float32) float32 {
	switch {
	case z == grid.ZoneIndustrial:
		return interpolate(depth, industrialDamage)
	case z == grid.ZoneOffice || z.IsCommercial():
		return interpolate(depth, commercialDamage)
	case z.IsResidential():
		return interpolate(depth, residentialDamage)
	}
	return 0
}

// PropertyValue estimates the value flood damage is charged against.
func PropertyValue(capacity uint32, level uint8) float64 {
	return float64(capacity) * float64(level) * 1000
}

// SewerCapacity is the combined sewer throughput per update in runoff units.
const SewerCapacity = 2000

// CombinedSewerOverflow is the runoff plus sewage exceeding capacity; a
// positive value is an overflow event.
func CombinedSewerOverflow(totalRunoff, sewage, capacity float64) float64 {
	return max(totalRunoff+sewage-capacity, 0)
}
