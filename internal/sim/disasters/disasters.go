// Package disasters rolls and resolves tornadoes, earthquakes and floods.
// At most one disaster is active at a time. All randomness comes from the
// world's SimRng so a replay strikes the same cells.
package disasters

import (
	"fmt"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/rng"
)

type Kind uint8

const (
	Tornado Kind = iota
	Earthquake
	Flood
	numKinds
)

func (k Kind) String() string {
	switch k {
	case Tornado:
		return "Tornado"
	case Earthquake:
		return "Earthquake"
	case Flood:
		return "Flood"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) Valid() bool { return k < numKinds }

const (
	DefaultChance = 0.0005

	TornadoRadius      = 5
	TornadoDuration    = 50
	TornadoDestroy     = 0.30
	EarthquakeRadius   = 10
	EarthquakeDuration = 20
	EarthquakeDestroy  = 0.10
	FloodRadius        = 8
	FloodDuration      = 100
	FloodElevation     = 0.45

	landAttempts = 20
)

// Params returns the radius and duration in ticks for a kind.
func (k Kind) Params() (radius int, duration uint32) {
	switch k {
	case Tornado:
		return TornadoRadius, TornadoDuration
	case Earthquake:
		return EarthquakeRadius, EarthquakeDuration
	default:
		return FloodRadius, FloodDuration
	}
}

type Instance struct {
	Kind           Kind
	CenterX        int
	CenterY        int
	Radius         int
	TicksRemaining uint32
	DamageApplied  bool
}

// Covers reports whether (x,y) is inside the disaster radius.
func (in *Instance) Covers(x, y int) bool {
	dx, dy := x-in.CenterX, y-in.CenterY
	return dx*dx+dy*dy <= in.Radius*in.Radius
}

// Active is the disaster resource. Current is nil when calm.
type Active struct {
	Current *Instance
}

func (a *Active) Reset() { a.Current = nil }

// Roll may start a random disaster on a land cell. It is called on the slow
// tick; nothing happens while one is already active.
func (a *Active) Roll(g *grid.WorldGrid, r *rng.SimRng, chance float64) (*Instance, bool) {
	if a.Current != nil || !r.Chance(chance) {
		return nil, false
	}
	kind := Kind(r.IntN(int(numKinds)))
	for i := 0; i < landAttempts; i++ {
		x, y := r.IntN(grid.Width), r.IntN(grid.Height)
		if g.At(x, y).Type != grid.Water {
			return a.Trigger(kind, x, y), true
		}
	}
	return nil, false
}

// Trigger starts a disaster of kind at (x,y). If one is already active it
// is returned unchanged.
func (a *Active) Trigger(kind Kind, x, y int) *Instance {
	if a.Current != nil {
		return a.Current
	}
	radius, duration := kind.Params()
	a.Current = &Instance{Kind: kind, CenterX: x, CenterY: y, Radius: radius, TicksRemaining: duration}
	return a.Current
}

// NeedsDamage reports whether the next Step will resolve damage and so
// needs the building list.
func (a *Active) NeedsDamage() bool { return a.Current != nil && !a.Current.DamageApplied }

// Target is a building the disaster may hit.
type Target struct {
	X, Y      int
	Level     uint8
	Elevation float32
}

// Damage lists indices into the Step targets slice.
type Damage struct {
	Destroyed  []int
	Downgraded []int
}

func (d Damage) Empty() bool { return len(d.Destroyed) == 0 && len(d.Downgraded) == 0 }

// Step resolves damage on the first tick of a disaster, counts it down and
// clears it at zero. targets must be in stable order.
func (a *Active) Step(r *rng.SimRng, targets []Target) (dmg Damage, ended bool) {
	in := a.Current
	if in == nil {
		return Damage{}, false
	}
	if !in.DamageApplied {
		in.DamageApplied = true
		dmg = in.resolve(r, targets)
	}
	if in.TicksRemaining > 0 {
		in.TicksRemaining--
	}
	if in.TicksRemaining == 0 {
		a.Current = nil
		ended = true
	}
	return dmg, ended
}

func (in *Instance) resolve(r *rng.SimRng, targets []Target) Damage {
	var d Damage
	for i, t := range targets {
		if !in.Covers(t.X, t.Y) {
			continue
		}
		switch in.Kind {
		case Tornado:
			if r.Chance(TornadoDestroy) {
				d.Destroyed = append(d.Destroyed, i)
			}
		case Earthquake:
			if r.Chance(EarthquakeDestroy) {
				d.Destroyed = append(d.Destroyed, i)
			} else if t.Level > 1 {
				d.Downgraded = append(d.Downgraded, i)
			}
		case Flood:
			if t.Elevation < FloodElevation {
				d.Destroyed = append(d.Destroyed, i)
			}
		}
	}
	return d
}

// Storm wind damage.
const (
	WindDamageSpeed  = 15
	WindDamageChance = 0.002
)

// WindDamage rolls whether a storm with the given wind speed downgrades one
// building this slow tick.
func WindDamage(r *rng.SimRng, windSpeed float32) bool {
	if windSpeed < WindDamageSpeed {
		return false
	}
	return r.Chance(WindDamageChance * float64(windSpeed/WindDamageSpeed))
}
