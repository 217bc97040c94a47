package citizen

import (
	"math"

	"cityforge.dev/internal/sim/grid"
)

type Mode uint8

const (
	Drive Mode = iota
	Walk
	Bike
	Transit
)

func (m Mode) String() string {
	switch m {
	case Drive:
		return "drive"
	case Walk:
		return "walk"
	case Bike:
		return "bike"
	case Transit:
		return "transit"
	default:
		return "unknown"
	}
}

func (m Mode) SpeedMultiplier() float32 {
	switch m {
	case Walk:
		return 0.3
	case Bike:
		return 0.6
	case Transit:
		return 0.8
	default:
		return 1
	}
}

func (m Mode) Comfort() float32 {
	switch m {
	case Walk:
		return 1
	case Bike:
		return 0.95
	case Transit:
		return 0.85
	default:
		return 0.9
	}
}

const (
	maxBikeDistance     = 80
	transitAccessCells  = 15
	parkingOverhead     = 5
	transitWaitOverhead = 8
)

// ModeInputs gates each mode on the infrastructure near a trip's ends.
type ModeInputs struct {
	// Distance is the Manhattan trip length in cells.
	Distance      float32
	RoadAccess    bool
	BikeAccess    bool
	TransitOrigin bool
	TransitDest   bool
}

// PerceivedTime is travel time divided by comfort; ok is false when the mode
// is unavailable.
func PerceivedTime(m Mode, in ModeInputs) (float32, bool) {
	switch m {
	case Walk:
		return in.Distance / m.SpeedMultiplier() / m.Comfort(), true
	case Bike:
		if !in.BikeAccess || in.Distance > maxBikeDistance {
			return 0, false
		}
		return in.Distance / m.SpeedMultiplier() / m.Comfort(), true
	case Drive:
		if !in.RoadAccess {
			return 0, false
		}
		return (in.Distance + parkingOverhead) / m.SpeedMultiplier() / m.Comfort(), true
	case Transit:
		if !in.TransitOrigin || !in.TransitDest {
			return 0, false
		}
		total := transitAccessCells + transitWaitOverhead + in.Distance/m.SpeedMultiplier()
		return total / m.Comfort(), true
	}
	return 0, false
}

// ChooseMode picks the available mode with the lowest perceived time. Walking
// is always available; ties keep the earlier mode in Drive, Walk, Bike,
// Transit order.
func ChooseMode(in ModeInputs) Mode {
	best, bestT := Walk, float32(math.MaxFloat32)
	for _, m := range []Mode{Drive, Walk, Bike, Transit} {
		if t, ok := PerceivedTime(m, in); ok && t < bestT {
			best, bestT = m, t
		}
	}
	return best
}

// BaseSpeed is world units per tick at multiplier 1.
const BaseSpeed = 24

// Epsilon is the arrival tolerance in world units.
const Epsilon = 2

// Advance moves a citizen along its path by speed world units. It returns
// true once the final waypoint is reached.
func Advance(pos *Position, vel *Velocity, path *PathCache, speed float32) bool {
	budget := speed
	for budget > 0 {
		target, ok := path.Target()
		if !ok {
			break
		}
		tx, ty := grid.GridToWorld(target.X, target.Y)
		dx, dy := tx-pos.X, ty-pos.Y
		dist := float32(math.Hypot(float64(dx), float64(dy)))
		if dist <= Epsilon || dist <= budget {
			pos.X, pos.Y = tx, ty
			budget -= dist
			path.Index++
			continue
		}
		vel.X, vel.Y = dx/dist*budget, dy/dist*budget
		pos.X += vel.X
		pos.Y += vel.Y
		budget = 0
	}
	pos.X, pos.Y = grid.ClampWorld(pos.X, pos.Y)
	if path.Complete() {
		vel.X, vel.Y = 0, 0
		return true
	}
	return false
}
