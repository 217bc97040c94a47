package stats

import (
	"strings"

	"cityforge.dev/internal/sim/zones"
)

// CityWarning is one observation flag.
type CityWarning uint8

const (
	TradeDeficit CityWarning = iota
	LowTreasury
	PowerShortage
	WaterShortage
	HighUnemployment
	Homelessness
	HighCrime
	Pollution
	warningCount
)

var warningNames = [warningCount]string{
	"TradeDeficit", "LowTreasury", "PowerShortage", "WaterShortage",
	"HighUnemployment", "Homelessness", "HighCrime", "Pollution",
}

func (w CityWarning) String() string {
	if w < warningCount {
		return warningNames[w]
	}
	return "Unknown"
}

// Warnings is a set of CityWarning.
type Warnings uint16

func (s Warnings) Has(w CityWarning) bool { return s&(1<<w) != 0 }

func (s *Warnings) Add(w CityWarning) { *s |= 1 << w }

func (s Warnings) List() []CityWarning {
	var out []CityWarning
	for w := CityWarning(0); w < warningCount; w++ {
		if s.Has(w) {
			out = append(out, w)
		}
	}
	return out
}

func (s Warnings) String() string {
	parts := make([]string, 0, warningCount)
	for _, w := range s.List() {
		parts = append(parts, w.String())
	}
	return strings.Join(parts, ",")
}

// Warning thresholds.
const (
	LowTreasuryLevel      = 1000
	CoverageShortage      = 0.9
	UnemploymentThreshold = 0.15
	HomelessThreshold     = 0.02
	CrimeThreshold        = 60
	PollutionThreshold    = 50
)

// Observation is the read-only view rebuilt every PostSim.
type Observation struct {
	Tick         uint64
	Day          uint32
	Hour         float32
	Population   int
	Treasury     float64
	TradeBalance float64
	Demand       zones.ZoneDemand
	Employed     int
	Unemployment float32
	Tier         Tier
	TierProgress float32
	Warnings     Warnings
	Stats        CityStats
}

// ObservationInputs gathers what Observe reads besides the stats.
type ObservationInputs struct {
	Tick         uint64
	Day          uint32
	Hour         float32
	Treasury     float64
	TradeBalance float64
	Demand       zones.ZoneDemand
	Progress     Progress
	PowerDemand  float32
	PowerSupply  float32
}

func Observe(s *CityStats, in ObservationInputs) Observation {
	o := Observation{
		Tick:         in.Tick,
		Day:          in.Day,
		Hour:         in.Hour,
		Population:   s.Population,
		Treasury:     in.Treasury,
		TradeBalance: in.TradeBalance,
		Demand:       in.Demand,
		Employed:     s.Employed,
		Unemployment: s.UnemploymentRate(),
		Tier:         in.Progress.Current,
		TierProgress: in.Progress.Fraction(s.Population),
		Stats:        *s,
	}
	if in.TradeBalance < 0 {
		o.Warnings.Add(TradeDeficit)
	}
	if in.Treasury < LowTreasuryLevel {
		o.Warnings.Add(LowTreasury)
	}
	if (s.Buildings > 0 && s.PowerCoverage < CoverageShortage) || in.PowerSupply < in.PowerDemand {
		o.Warnings.Add(PowerShortage)
	}
	if s.Buildings > 0 && s.WaterCoverage < CoverageShortage {
		o.Warnings.Add(WaterShortage)
	}
	if o.Unemployment > UnemploymentThreshold {
		o.Warnings.Add(HighUnemployment)
	}
	if s.Population > 0 && float32(s.Homeless)/float32(s.Population) > HomelessThreshold {
		o.Warnings.Add(Homelessness)
	}
	if s.AvgCrime > CrimeThreshold {
		o.Warnings.Add(HighCrime)
	}
	if s.AvgPollution > PollutionThreshold {
		o.Warnings.Add(Pollution)
	}
	return o
}
