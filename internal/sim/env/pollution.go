package env

import (
	"math"

	"cityforge.dev/internal/sim/grid"
)

// EmissionKind tags the source category so policies can scale whole groups.
type EmissionKind uint8

const (
	EmitPowerPlant EmissionKind = iota
	EmitIndustrial
	EmitRoad
	EmitService
	EmitHeating
	emitKinds
)

// EmissionSource is one emitter with rate Q.
type EmissionSource struct {
	Kind EmissionKind
	X, Y int
	Q    float32
}

// Emission rates per source type.
const (
	QIndustrialPerLevel = 12
	QRoadPerTraffic     = 0.08
	QRoadBase           = 1
)

const (
	PlumeRadius = 10
	plumeSigma  = 2.5
)

// PlumeParams carries wind and per-kind policy multipliers.
type PlumeParams struct {
	// WindDir is the direction the wind blows toward, in radians.
	WindDir    float32
	WindSpeed  float32
	Multiplier [emitKinds]float32
}

func DefaultPlume() PlumeParams {
	p := PlumeParams{}
	for i := range p.Multiplier {
		p.Multiplier[i] = 1
	}
	return p
}

// ComputePollution rebuilds out from sources with a truncated Gaussian
// plume. Wind stretches the plume downwind and narrows it crosswind; the
// normalization keeps the integral fixed so zero wind is isotropic.
func ComputePollution(sources []EmissionSource, p PlumeParams, out *grid.U8Grid) {
	acc := make([]float32, grid.NumCells)
	k := min(max(p.WindSpeed, 0)/10, 2)
	sa := plumeSigma * (1 + k)
	sc := plumeSigma / (1 + 0.5*k)
	shift := k * plumeSigma
	norm := plumeSigma * plumeSigma / (sa * sc)
	wx := float32(math.Cos(float64(p.WindDir)))
	wy := float32(math.Sin(float64(p.WindDir)))
	r := PlumeRadius + int(math.Ceil(float64(shift)))

	for _, s := range sources {
		q := s.Q * p.Multiplier[s.Kind]
		if q <= 0 {
			continue
		}
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				x, y := s.X+dx, s.Y+dy
				if !grid.InBounds(x, y) {
					continue
				}
				fx, fy := float32(dx), float32(dy)
				along := fx*wx + fy*wy - shift
				cross := -fx*wy + fy*wx
				e := along*along/(2*sa*sa) + cross*cross/(2*sc*sc)
				if e > 12 {
					continue
				}
				acc[grid.Index(x, y)] += q * norm * float32(math.Exp(float64(-e)))
			}
		}
	}
	Store(acc, out)
}
