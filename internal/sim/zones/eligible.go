package zones

import (
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/rng"
)

// EligibleCells caches, per zone, the cell indices where a building may spawn.
// Lists are in row-major order.
type EligibleCells struct {
	ByZone [grid.ZoneMixedUse + 1][]int
}

// Eligible reports whether a building may spawn on c.
func Eligible(g *grid.WorldGrid, x, y int) bool {
	c := g.At(x, y)
	return c.Zone != grid.ZoneNone && c.Type == grid.Grass && c.HasPower && c.HasWater &&
		!c.HasBuilding() && g.HasRoadAccess(x, y)
}

// Rebuild rescans the grid. Cells listed in occupied (services, utilities)
// are skipped even though they carry no building back-reference.
func (e *EligibleCells) Rebuild(g *grid.WorldGrid, occupied map[int]bool) {
	for z := range e.ByZone {
		e.ByZone[z] = e.ByZone[z][:0]
	}
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			if !Eligible(g, x, y) || occupied[grid.Index(x, y)] {
				continue
			}
			z := g.At(x, y).Zone
			e.ByZone[z] = append(e.ByZone[z], grid.Index(x, y))
		}
	}
}

func (e *EligibleCells) Count(z grid.ZoneType) int {
	if int(z) >= len(e.ByZone) {
		return 0
	}
	return len(e.ByZone[z])
}

func (e *EligibleCells) Total() int {
	n := 0
	for _, l := range e.ByZone {
		n += len(l)
	}
	return n
}

// Contains reports whether (x,y) is currently eligible for any zone.
func (e *EligibleCells) Contains(x, y int) bool {
	idx := grid.Index(x, y)
	for _, l := range e.ByZone {
		for _, i := range l {
			if i == idx {
				return true
			}
		}
	}
	return false
}

// Transect tiers cap building level per cell. TransectNone leaves the zone's
// own cap in place; T1 forbids building entirely.
type Transect uint8

const (
	TransectNone Transect = iota
	T1Natural
	T2Rural
	T3Suburban
	T4Urban
	T5Center
	T6Core
)

func (t Transect) LevelCap() uint8 {
	if t == TransectNone {
		return MaxLevel
	}
	return uint8(t) - 1
}

// Overlays holds the form-based and preservation layers set by the player.
type Overlays struct {
	Transect *grid.U8Grid
	Historic *grid.U8Grid
}

func NewOverlays() *Overlays {
	return &Overlays{Transect: grid.NewU8(), Historic: grid.NewU8()}
}

// MaxLevelAt combines the zone cap with the transect overlay.
func (o *Overlays) MaxLevelAt(x, y int, z grid.ZoneType) uint8 {
	return min(z.MaxLevel(), Transect(o.Transect.Get(x, y)).LevelCap())
}

func (o *Overlays) IsHistoric(x, y int) bool { return o.Historic.Get(x, y) != 0 }

// Candidate is a cell chosen by the spawner.
type Candidate struct {
	X, Y int
	Zone grid.ZoneType
}

// PickCandidates draws up to n distinct cells from zones with positive
// demand. Zones are visited in code order so the RNG draw sequence only
// depends on the cached lists.
func PickCandidates(e *EligibleCells, d ZoneDemand, o *Overlays, r *rng.SimRng, n int) []Candidate {
	var pool []Candidate
	for _, z := range grid.AllZones {
		if d.For(z) <= 0 {
			continue
		}
		for _, idx := range e.ByZone[z] {
			x, y := idx%grid.Width, idx/grid.Width
			if o != nil && (o.IsHistoric(x, y) || o.MaxLevelAt(x, y, z) == 0) {
				continue
			}
			pool = append(pool, Candidate{X: x, Y: y, Zone: z})
		}
	}
	var out []Candidate
	for len(out) < n && len(pool) > 0 {
		i := r.IntN(len(pool))
		out = append(out, pool[i])
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	return out
}

// AffordableUnits is the number of units inclusionary zoning reserves.
func AffordableUnits(z grid.ZoneType, capacity uint32, fraction float32) uint32 {
	if !z.IsResidential() || fraction <= 0 {
		return 0
	}
	return min(capacity, uint32(float32(capacity)*fraction))
}
