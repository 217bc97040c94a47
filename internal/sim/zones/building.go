package zones

import (
	"cityforge.dev/internal/sim/catalogs"
	"cityforge.dev/internal/sim/grid"
)

const MaxLevel = 5

// Building is the core building component.
type Building struct {
	ID        uint32
	Zone      grid.ZoneType
	Level     uint8
	GridX     int
	GridY     int
	Capacity  uint32
	Occupants uint32
	// AffordableUnits are reserved by inclusionary zoning.
	AffordableUnits uint32
	// UtilityLossStreak counts consecutive slow ticks without power or water.
	UtilityLossStreak uint16
	// EmptyStreak counts consecutive slow ticks with zero occupants.
	EmptyStreak uint16
}

// UnderConstruction marks a building that is not yet operational. Carry holds
// fractional progress between ticks.
type UnderConstruction struct {
	TicksRemaining uint32
	TotalTicks     uint32
	Carry          float32
}

// Advance applies speed ticks of work and reports completion.
func (u *UnderConstruction) Advance(speed float32) bool {
	if speed > 0 {
		u.Carry += speed
		for u.Carry >= 1 && u.TicksRemaining > 0 {
			u.TicksRemaining--
			u.Carry--
		}
	}
	return u.TicksRemaining == 0
}

type OnFire struct {
	Intensity    float32
	TicksBurning uint32
}

type Abandoned struct {
	TicksAbandoned uint32
}

// Capacity looks up the per-level capacity of zone z.
func Capacity(cat *catalogs.BuildingCatalog, z grid.ZoneType, level uint8) uint32 {
	def, ok := cat.ByZone[z.String()]
	if !ok || level == 0 {
		return 0
	}
	return def.Capacity[min(int(level), MaxLevel)-1]
}

// EnergyKWh looks up monthly energy demand.
func EnergyKWh(cat *catalogs.BuildingCatalog, z grid.ZoneType, level uint8) float32 {
	def, ok := cat.ByZone[z.String()]
	if !ok || level == 0 {
		return 0
	}
	return def.EnergyKWh[min(int(level), MaxLevel)-1]
}

// Decision is the slow-tick level change for a building.
type Decision uint8

const (
	Hold Decision = iota
	Upgrade
	Downgrade
	Abandon
)

// LevelInputs feed Evolve.
type LevelInputs struct {
	Level     uint8
	MaxLevel  uint8
	LandValue uint8
	// Happiness is the mean happiness of the building's residents or workers.
	Happiness   float32
	HasPower    bool
	HasWater    bool
	Occupancy   float32
	LossStreak  uint16
	EmptyStreak uint16
}

// Thresholds for Evolve.
const (
	UpgradeHappiness    = 60
	DowngradeHappiness  = 25
	LossStreakDowngrade = 3
	LossStreakAbandon   = 6
	EmptyStreakAbandon  = 10
)

// Evolve decides whether a building changes level or is abandoned.
func Evolve(in LevelInputs) Decision {
	if !in.HasPower && !in.HasWater && in.LossStreak >= LossStreakAbandon {
		return Abandon
	}
	if in.Level > 1 && in.EmptyStreak >= EmptyStreakAbandon {
		return Abandon
	}
	if in.LossStreak >= LossStreakDowngrade || in.Happiness < DowngradeHappiness {
		if in.Level > 1 {
			return Downgrade
		}
		return Hold
	}
	needLV := 40 + 30*int(in.Level)
	if in.Level < in.MaxLevel && int(in.LandValue) >= min(needLV, 220) &&
		in.Happiness >= UpgradeHappiness && in.Occupancy >= 0.9 && in.HasPower && in.HasWater {
		return Upgrade
	}
	return Hold
}
