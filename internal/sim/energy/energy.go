// Package energy aggregates building demand and dispatches generators and
// batteries in merit order.
package energy

import (
	"math"
	"sort"

	"cityforge.dev/internal/sim/weather"
)

const (
	HoursPerMonth = 30 * 24
	// PeakMultiplier applies 17:00-21:00; OffPeakMultiplier 23:00-06:00.
	PeakMultiplier    = 1.3
	OffPeakMultiplier = 0.7
)

// Fuel identifies a generator technology.
type Fuel uint8

const (
	FuelCoal Fuel = iota
	FuelGas
	FuelOil
	FuelNuclear
	FuelSolar
	FuelWind
	FuelHydro
	FuelGeothermal
	FuelBiomass
	FuelWTE
	FuelStorage
)

func ParseFuel(s string) Fuel {
	switch s {
	case "gas":
		return FuelGas
	case "oil":
		return FuelOil
	case "nuclear":
		return FuelNuclear
	case "solar":
		return FuelSolar
	case "wind":
		return FuelWind
	case "hydro":
		return FuelHydro
	case "geothermal":
		return FuelGeothermal
	case "biomass":
		return FuelBiomass
	case "wte":
		return FuelWTE
	case "storage":
		return FuelStorage
	default:
		return FuelCoal
	}
}

func (f Fuel) Renewable() bool {
	switch f {
	case FuelSolar, FuelWind, FuelHydro, FuelGeothermal:
		return true
	}
	return false
}

// Priority classes for load shedding; higher sheds first.
type Priority uint8

const (
	PriorityCritical Priority = iota
	PriorityResidential
	PriorityCommercial
	PriorityIndustrial
)

// Consumer is one building's demand as seen by the aggregator.
type Consumer struct {
	X, Y     int
	KWhMonth float32
	Priority Priority
}

// Generator is one dispatchable unit.
type Generator struct {
	X, Y        int
	Fuel        Fuel
	NameplateMW float32
	// FuelCost is the marginal cost per MWh and the merit-order key.
	FuelCost  float32
	CO2PerMWh float32
	Outage    bool
	// Set by Dispatch.
	AvailableMW  float32
	DispatchedMW float32
}

type Battery struct {
	CapacityMWh float32
	StoredMWh   float32
}

// Conditions are the ambient inputs to capacity factors and load.
type Conditions struct {
	Season      weather.Season
	Condition   weather.Condition
	WindSpeed   float32
	Temperature float32
	Hour        float32
}

// TimeOfUse is the demand multiplier for an hour of day.
func TimeOfUse(hour float32) float32 {
	switch {
	case hour >= 17 && hour < 21:
		return PeakMultiplier
	case hour >= 23 || hour < 6:
		return OffPeakMultiplier
	default:
		return 1
	}
}

// WeatherLoad is the heating/cooling multiplier.
func WeatherLoad(tempC float32) float32 {
	switch {
	case tempC < 10:
		return 1 + (10-tempC)*0.02
	case tempC > 25:
		return 1 + (tempC-25)*0.03
	default:
		return 1
	}
}

// KWhMonthToMW converts monthly energy to average power.
func KWhMonthToMW(kwh float32) float32 { return kwh / HoursPerMonth / 1000 }

// Demand sums consumers into MW, applying time-of-use, weather load and a policy multiplier.
func Demand(consumers []Consumer, c Conditions, policyMult float32) float32 {
	var kwh float64
	for _, x := range consumers {
		kwh += float64(x.KWhMonth)
	}
	return KWhMonthToMW(float32(kwh)) * TimeOfUse(c.Hour) * WeatherLoad(c.Temperature) * policyMult
}

// CapacityFactor is the fraction of nameplate available under c.
func CapacityFactor(f Fuel, c Conditions) float32 {
	switch f {
	case FuelSolar:
		if c.Hour < 6 || c.Hour > 19 {
			return 0
		}
		sun := float32(math.Sin(math.Pi * float64(c.Hour-6) / 13))
		season := float32(1)
		switch c.Season {
		case weather.Summer:
			season = 1.1
		case weather.Winter:
			season = 0.6
		}
		return clamp01(sun * (1 - 0.9*c.Condition.CloudCover()) * season)
	case FuelWind:
		if c.WindSpeed > 25 {
			return 0
		}
		return clamp01(c.WindSpeed / 12)
	case FuelHydro:
		switch c.Season {
		case weather.Spring:
			return 1
		case weather.Summer:
			return 0.8
		case weather.Winter:
			return 0.7
		default:
			return 0.9
		}
	case FuelNuclear:
		return 0.92
	case FuelStorage:
		return 0
	default:
		return 1
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Grid is the dispatch result resource.
type Grid struct {
	TotalDemandMW   float32
	TotalSupplyMW   float32
	ServedMW        float32
	UnservedMW      float32
	ReserveMargin   float32
	PriceMultiplier float32
	Blackout        bool
	// Accrued since the last monthly collection.
	FuelCostAccrued float64
	CO2Accrued      float64
	MWhAccrued      float64
}

// DispatchParams carries the tuning for one dispatch.
type DispatchParams struct {
	Hours                 float32
	RoundTrip             float32
	ScarcityThreshold     float32
	MaxScarcityMultiplier float32
}

// Dispatch serves demand from gens in ascending FuelCost order (ties by
// index), discharges batteries to cover any shortfall and charges them from
// surplus. Generator AvailableMW/DispatchedMW are written back.
func Dispatch(demandMW float32, gens []Generator, batteries []Battery, c Conditions, p DispatchParams, out *Grid) {
	order := make([]int, len(gens))
	var supply float32
	for i := range gens {
		order[i] = i
		g := &gens[i]
		g.DispatchedMW = 0
		g.AvailableMW = 0
		if !g.Outage {
			g.AvailableMW = g.NameplateMW * CapacityFactor(g.Fuel, c)
		}
		supply += g.AvailableMW
	}
	sort.SliceStable(order, func(a, b int) bool { return gens[order[a]].FuelCost < gens[order[b]].FuelCost })

	remaining := demandMW
	for _, i := range order {
		if remaining <= 0 {
			break
		}
		g := &gens[i]
		take := min(g.AvailableMW, remaining)
		g.DispatchedMW = take
		remaining -= take
		mwh := float64(take * p.Hours)
		out.FuelCostAccrued += mwh * float64(g.FuelCost)
		out.CO2Accrued += mwh * float64(g.CO2PerMWh)
		out.MWhAccrued += mwh
	}

	for i := range batteries {
		b := &batteries[i]
		if remaining > 0 && p.Hours > 0 {
			can := b.StoredMWh / p.Hours
			take := min(can, remaining)
			b.StoredMWh -= take * p.Hours
			remaining -= take
		}
	}
	surplus := supply - (demandMW - max(remaining, 0))
	if remaining <= 0 && surplus > 0 {
		charge := surplus * p.Hours * p.RoundTrip
		for i := range batteries {
			b := &batteries[i]
			room := b.CapacityMWh - b.StoredMWh
			add := min(room, charge)
			b.StoredMWh += add
			charge -= add
			if charge <= 0 {
				break
			}
		}
	}

	out.TotalDemandMW = demandMW
	out.TotalSupplyMW = supply
	out.UnservedMW = max(remaining, 0)
	out.ServedMW = demandMW - out.UnservedMW
	out.Blackout = out.UnservedMW > 0
	if demandMW > 0 {
		out.ReserveMargin = (supply - demandMW) / demandMW
	} else {
		out.ReserveMargin = 1
	}
	out.PriceMultiplier = ScarcityMultiplier(out.ReserveMargin, p.ScarcityThreshold, p.MaxScarcityMultiplier)
}

// ScarcityMultiplier rises linearly from 1 at the threshold to max at zero
// (or negative) reserve.
func ScarcityMultiplier(reserve, threshold, maxMult float32) float32 {
	if reserve >= threshold || threshold <= 0 {
		return 1
	}
	if reserve <= 0 {
		return maxMult
	}
	return 1 + (maxMult-1)*(1-reserve/threshold)
}

// Shed picks consumers to cut so that shed demand covers unservedMW. Consumers
// are cut highest priority class first, then by (y,x). It returns indices into consumers.
func Shed(consumers []Consumer, unservedMW float32) []int {
	if unservedMW <= 0 {
		return nil
	}
	idx := make([]int, len(consumers))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ca, cb := consumers[idx[a]], consumers[idx[b]]
		if ca.Priority != cb.Priority {
			return ca.Priority > cb.Priority
		}
		if ca.Y != cb.Y {
			return ca.Y < cb.Y
		}
		return ca.X < cb.X
	})
	var cut float32
	var out []int
	for _, i := range idx {
		if cut >= unservedMW {
			break
		}
		if consumers[i].Priority == PriorityCritical {
			continue
		}
		cut += KWhMonthToMW(consumers[i].KWhMonth)
		out = append(out, i)
	}
	return out
}
