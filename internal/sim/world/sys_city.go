package world

import (
	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/energy"
	"cityforge.dev/internal/sim/stats"
	"cityforge.dev/internal/sim/utilities"
	"cityforge.dev/internal/sim/weather"
)

// stormOutageChance is the per-slow-tick chance that a storm knocks out a
// given power source.
const stormOutageChance = 0.2

// sysWeather smooths temperature every tick and rerolls the condition on a
// new day. Cold snaps and heat waves are observed once per day.
func (w *World) sysWeather() {
	prev := w.weather.Condition
	if w.weather.Update(w.clock.Day, w.clock.Hour(), w.climate.Offset) {
		w.events.emit(WeatherChangeEvent{From: prev, To: w.weather.Condition})
		if w.weather.IsStorm() {
			w.notify("A storm is approaching", stats.Warning, nil)
		}
	}
	if !w.dayRolled {
		return
	}
	day, temp := w.clock.Day, w.weather.Temperature
	if started, ended := w.coldSnap.Observe(day, temp); started || ended {
		w.events.emit(ColdSnapEvent{Started: started, Day: day})
		if started {
			w.notify("Cold snap: heating demand is rising", stats.Warning, nil)
		}
	}
	if started, ended := w.heatWave.Observe(day, temp); started || ended {
		w.events.emit(HeatWaveEvent{Started: started, Day: day})
		if started {
			w.notify("Heat wave: fire risk is elevated", stats.Warning, nil)
		}
	}
}

// sysUtilities re-propagates power and water on the slow tick. During a
// storm random power sources go down; they come back when it clears.
func (w *World) sysUtilities() {
	storm := w.weather.IsStorm()
	for _, e := range w.ecs.utilityEntities() {
		u := w.ecs.utilities.Get(e)
		switch {
		case !storm && u.Outage:
			u.Outage = false
			w.utilitiesDirty = true
		case storm && !u.Outage && u.Type.IsPower() && w.slowTick() && w.rng.Chance(stormOutageChance):
			u.Outage = true
			w.utilitiesDirty = true
			w.notify("Storm damage knocked out a power source", stats.Emergency, &stats.Location{X: u.X, Y: u.Y})
		}
	}
	if w.slowTick() {
		w.utilitiesDirty = true
	}
	w.refreshUtilities()
}

// sysServices rebuilds coverage on the slow tick. Placement and bulldozing
// refresh it immediately as well.
func (w *World) sysServices() {
	if !w.slowTick() {
		return
	}
	w.refreshCoverage()
}

// generators reads power utilities as dispatchable units. Battery storage
// is handled separately.
func (w *World) generators() []energy.Generator {
	var out []energy.Generator
	for _, e := range w.ecs.utilityEntities() {
		u := w.ecs.utilities.Get(e)
		if !u.Type.IsPower() || u.Type == utilities.BatteryStorage {
			continue
		}
		def, ok := w.cats.Generators.ByID[u.Type.String()]
		if !ok {
			continue
		}
		out = append(out, energy.Generator{
			X:           u.X,
			Y:           u.Y,
			Fuel:        energy.ParseFuel(def.Fuel),
			NameplateMW: def.CapacityMW,
			FuelCost:    def.FuelCost,
			CO2PerMWh:   def.CO2PerMWh,
			Outage:      u.Outage,
		})
	}
	return out
}

// sysEnergy dispatches generation against demand every DispatchInterval
// ticks. Shed buildings lose power until the next dispatch restores them.
func (w *World) sysEnergy() {
	if !w.every(w.tun.Energy.DispatchInterval) {
		return
	}
	if w.power.Blackout {
		w.utilitiesDirty = true
		w.refreshUtilities()
	}

	var consumers []energy.Consumer
	for _, e := range w.ecs.buildingEntities() {
		if !w.ecs.operational(e) {
			continue
		}
		c := w.ecs.consumers.Get(e)
		if !w.grid.At(c.X, c.Y).HasPower {
			continue
		}
		consumers = append(consumers, *c)
	}

	var batteryEntities []ecs.Entity
	var batteries []energy.Battery
	for _, e := range w.ecs.utilityEntities() {
		if w.ecs.batteries.Has(e) && !w.ecs.utilities.Get(e).Outage {
			batteryEntities = append(batteryEntities, e)
			batteries = append(batteries, *w.ecs.batteries.Get(e))
		}
	}

	cond := energy.Conditions{
		Season:      weather.SeasonForDay(w.clock.Day),
		Condition:   w.weather.Condition,
		WindSpeed:   w.weather.WindSpeed,
		Temperature: w.weather.Temperature,
		Hour:        w.clock.Hour(),
	}
	params := energy.DispatchParams{
		Hours:                 float32(w.tun.Energy.DispatchInterval*w.tun.MinutesPerTick) / 60,
		RoundTrip:             w.tun.Energy.BatteryRoundTrip,
		ScarcityThreshold:     w.tun.Energy.ScarcityThreshold,
		MaxScarcityMultiplier: w.tun.Energy.MaxScarcityMultiplier,
	}
	demand := energy.Demand(consumers, cond, w.policies.EnergyDemandMult())
	wasBlackout := w.power.Blackout
	co2 := w.power.CO2Accrued
	energy.Dispatch(demand, w.generators(), batteries, cond, params, &w.power)
	w.climate.AddEmissions(w.power.CO2Accrued - co2)

	for i, e := range batteryEntities {
		*w.ecs.batteries.Get(e) = batteries[i]
	}
	for _, i := range energy.Shed(consumers, w.power.UnservedMW) {
		w.grid.At(consumers[i].X, consumers[i].Y).HasPower = false
	}
	if w.power.Blackout && !wasBlackout {
		w.notify("Power shortage: some buildings are without electricity", stats.Warning, nil)
	}
}
