package citizen

import "cityforge.dev/internal/sim/services"

const (
	BaseHappiness     = 50
	EmployedBonus     = 15
	ShortCommuteBonus = 10
	PowerBonus        = 5
	NoPowerPenalty    = 25
	WaterBonus        = 5
	NoWaterPenalty    = 20
	HighTaxPenalty    = 8
	CongestionPenalty = 5
	GarbagePenalty    = 5
	CrimePenaltyMax   = 15
	PoorRoadPenalty   = 3
	HomelessPenalty   = 30
	ShelteredPenalty  = 10

	// ShortCommuteCells is the Manhattan distance below which a commute counts as short.
	ShortCommuteCells = 20
	HighTaxRate       = 0.15
)

var coverageBonus = [...]struct {
	bit   uint8
	bonus float32
}{
	{services.BitHealth, 5},
	{services.BitEducation, 3},
	{services.BitPolice, 5},
	{services.BitPark, 8},
	{services.BitEntertainment, 5},
	{services.BitTelecom, 3},
	{services.BitTransport, 4},
}

// HappinessInputs is everything the happiness score reads for one citizen.
type HappinessInputs struct {
	Employed     bool
	CommuteCells int
	HasPower     bool
	HasWater     bool
	Coverage     uint8
	TaxRate      float32
	// Congestion is traffic load near home in [0,1].
	Congestion float32
	Garbage    uint8
	Crime      uint8
	Pollution  uint8
	Noise      uint8
	LandValue  uint8
	PoorRoad   bool
	Homeless   bool
	Sheltered  bool
	Health     float32
	Needs      Needs
	// Modifier carries city-wide policy and weather adjustments.
	Modifier float32
}

// ComputeHappiness scores a citizen in [0,100].
func ComputeHappiness(in HappinessInputs) float32 {
	h := float32(BaseHappiness)
	if in.Employed {
		h += EmployedBonus
		if in.CommuteCells < ShortCommuteCells {
			h += ShortCommuteBonus
		}
	}
	if in.HasPower {
		h += PowerBonus
	} else {
		h -= NoPowerPenalty
	}
	if in.HasWater {
		h += WaterBonus
	} else {
		h -= NoWaterPenalty
	}
	for _, c := range coverageBonus {
		if in.Coverage&c.bit != 0 {
			h += c.bonus
		}
	}
	if in.TaxRate > HighTaxRate {
		h -= HighTaxPenalty
	}
	h -= clamp(in.Congestion, 0, 1) * CongestionPenalty
	if in.Garbage > 10 {
		h -= GarbagePenalty
	}
	h -= min(float32(in.Crime)/25, 1) * CrimePenaltyMax
	h -= float32(in.Pollution) / 25
	h -= float32(in.Noise) / 20
	h += float32(in.LandValue) / 50
	if in.PoorRoad {
		h -= PoorRoadPenalty
	}
	h += (in.Needs.Overall() - 0.5) * 35
	if in.Health < 50 {
		h -= (50 - in.Health) * 0.3
	} else if in.Health > 80 {
		h += 3
	}
	if in.Homeless {
		if in.Sheltered {
			h -= ShelteredPenalty
		} else {
			h -= HomelessPenalty
		}
	}
	h += in.Modifier
	return clamp(h, 0, 100)
}

func clamp(v, lo, hi float32) float32 {
	if v != v {
		return lo
	}
	return min(max(v, lo), hi)
}
