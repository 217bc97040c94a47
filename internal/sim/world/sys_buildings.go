package world

import (
	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/citizen"
	"cityforge.dev/internal/sim/env"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/stats"
	"cityforge.dev/internal/sim/zones"
)

// buildingAt returns the live building entity on a cell.
func (w *World) buildingAt(x, y int) (ecs.Entity, bool) {
	if !grid.InBounds(x, y) {
		return ecs.Entity{}, false
	}
	c := w.grid.At(x, y)
	if !c.HasBuilding() || !w.ecs.world.Alive(c.Building) || !w.ecs.buildings.Has(c.Building) {
		return ecs.Entity{}, false
	}
	return c.Building, true
}

// sysReconcileOccupancy recounts residents and workers per building. Homes
// and jobs that no longer exist, are not operational or are over capacity
// are released in citizen ID order.
func (w *World) sysReconcileOccupancy() {
	residents := map[ecs.Entity]uint32{}
	workers := map[ecs.Entity]uint32{}
	var evicted, laidOff []ecs.Entity

	for _, e := range w.ecs.citizenEntities() {
		if !w.ecs.homeless.Has(e) {
			h := w.ecs.homes.Get(e)
			be, ok := w.buildingAt(h.GridX, h.GridY)
			if ok {
				b := w.ecs.buildings.Get(be)
				ok = b.Zone.IsResidential() && w.ecs.operational(be) && residents[be] < b.Capacity
			}
			if ok {
				residents[be]++
			} else {
				evicted = append(evicted, e)
			}
		}
		if w.ecs.works.Has(e) {
			wl := w.ecs.works.Get(e)
			be, ok := w.buildingAt(wl.GridX, wl.GridY)
			if ok {
				b := w.ecs.buildings.Get(be)
				ok = b.Zone.IsJobZone() && w.ecs.operational(be) && workers[be] < b.Capacity
			}
			if ok {
				workers[be]++
			} else {
				laidOff = append(laidOff, e)
			}
		}
	}
	for _, e := range evicted {
		w.ecs.homeless.Add(e, &citizen.Homeless{})
	}
	for _, e := range laidOff {
		w.fire(e)
	}

	q := w.ecs.buildingFilter.Query()
	for q.Next() {
		e := q.Entity()
		b := q.Get()
		if b.Zone.IsResidential() {
			b.Occupants = residents[e]
		} else {
			b.Occupants = workers[e]
		}
	}
}

// occupancyByCategory sums operational capacity and use per demand category.
func (w *World) occupancyByCategory() (res, com, ind, off zones.Occupancy) {
	q := w.ecs.buildingFilter.Query()
	for q.Next() {
		e := q.Entity()
		if !w.ecs.operational(e) {
			continue
		}
		b := q.Get()
		var o *zones.Occupancy
		switch {
		case b.Zone.IsResidential():
			o = &res
		case b.Zone == grid.ZoneIndustrial:
			o = &ind
		case b.Zone == grid.ZoneOffice:
			o = &off
		default:
			o = &com
		}
		o.Capacity += b.Capacity
		o.Occupants += b.Occupants
	}
	return res, com, ind, off
}

func (w *World) sysComputeDemand() {
	in := zones.DemandInputs{}
	in.Residential, in.Commercial, in.Industrial, in.Office = w.occupancyByCategory()
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		e := q.Entity()
		in.Population++
		if w.ecs.works.Has(e) {
			in.Employed++
		}
		if w.ecs.details.Get(e).Education >= 2 {
			in.Educated++
		}
	}
	w.demand = zones.ComputeDemand(in)
}

// sysRebuildEligible refreshes the road graph and utility reach first so a
// placement made this tick is eligible immediately.
func (w *World) sysRebuildEligible() {
	w.refreshRoads()
	w.refreshUtilities()
	w.refreshEligible()
}

func (w *World) sysSpawnBuildings() {
	n := w.tun.Spawner.SpawnPerTick
	if n <= 0 || w.eligible.Total() == 0 {
		return
	}
	ticks := uint32(max(w.tun.Spawner.ConstructionTicks, 1))
	for _, c := range zones.PickCandidates(&w.eligible, w.demand, w.overlays, w.rng, n) {
		capacity := zones.Capacity(&w.cats.Buildings, c.Zone, 1)
		b := zones.Building{
			Zone:            c.Zone,
			Level:           1,
			GridX:           c.X,
			GridY:           c.Y,
			Capacity:        capacity,
			AffordableUnits: zones.AffordableUnits(c.Zone, capacity, w.tun.Spawner.AffordableFraction),
		}
		w.spawnBuilding(b, &zones.UnderConstruction{TicksRemaining: ticks, TotalTicks: ticks})
	}
}

// sysProgressConstruction advances every site by the weather's construction
// speed. Storms and hard frost stop work; Carry keeps fractional progress.
func (w *World) sysProgressConstruction() {
	speed := w.weather.ConstructionSpeed(w.clock.Day)
	var done []ecs.Entity
	for _, e := range w.ecs.buildingEntities() {
		if !w.ecs.construction.Has(e) {
			continue
		}
		if w.ecs.construction.Get(e).Advance(speed) {
			done = append(done, e)
		}
	}
	for _, e := range done {
		w.ecs.construction.Remove(e)
	}
	if len(done) > 0 {
		w.sfx("construction_complete")
	}
}

// happinessByCell averages resident and worker happiness per building cell.
func (w *World) happinessByCell() map[int]float32 {
	sum := map[int]float32{}
	cnt := map[int]float32{}
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		e := q.Entity()
		h := w.ecs.details.Get(e).Happiness
		if !w.ecs.homeless.Has(e) {
			home := w.ecs.homes.Get(e)
			i := grid.Index(home.GridX, home.GridY)
			sum[i] += h
			cnt[i]++
		}
		if w.ecs.works.Has(e) {
			wl := w.ecs.works.Get(e)
			i := grid.Index(wl.GridX, wl.GridY)
			sum[i] += h
			cnt[i]++
		}
	}
	for i := range sum {
		sum[i] /= cnt[i]
	}
	return sum
}

// sysEvolveBuildings applies the slow-tick upgrade, downgrade and
// abandonment rules. Historic cells never change level.
func (w *World) sysEvolveBuildings() {
	if !w.slowTick() {
		return
	}
	happy := w.happinessByCell()
	fallback := float32(50)
	if w.stats.Population > 0 {
		fallback = w.stats.AvgHappiness
	}
	var abandon []ecs.Entity
	for _, e := range w.ecs.buildingEntities() {
		if !w.ecs.operational(e) {
			continue
		}
		b := w.ecs.buildings.Get(e)
		c := w.grid.At(b.GridX, b.GridY)
		if c.HasPower && c.HasWater {
			b.UtilityLossStreak = 0
		} else {
			b.UtilityLossStreak++
		}
		if b.Occupants == 0 {
			b.EmptyStreak++
		} else {
			b.EmptyStreak = 0
		}
		h, ok := happy[grid.Index(b.GridX, b.GridY)]
		if !ok {
			h = fallback
		}
		occ := float32(0)
		if b.Capacity > 0 {
			occ = float32(b.Occupants) / float32(b.Capacity)
		}
		d := zones.Evolve(zones.LevelInputs{
			Level:       b.Level,
			MaxLevel:    w.overlays.MaxLevelAt(b.GridX, b.GridY, b.Zone),
			LandValue:   w.landValue.Get(b.GridX, b.GridY),
			Happiness:   h,
			HasPower:    c.HasPower,
			HasWater:    c.HasWater,
			Occupancy:   occ,
			LossStreak:  b.UtilityLossStreak,
			EmptyStreak: b.EmptyStreak,
		})
		historic := w.overlays.IsHistoric(b.GridX, b.GridY)
		switch d {
		case zones.Upgrade:
			if !historic {
				w.setLevel(e, b.Level+1)
			}
		case zones.Downgrade:
			if !historic {
				w.setLevel(e, b.Level-1)
			}
		case zones.Abandon:
			abandon = append(abandon, e)
		}
	}
	for _, e := range abandon {
		w.abandon(e)
	}
}

// abandon empties a building and starts its demolition countdown.
func (w *World) abandon(e ecs.Entity) {
	b := w.ecs.buildings.Get(e)
	b.Occupants = 0
	x, y := b.GridX, b.GridY
	w.ecs.abandoned.Add(e, &zones.Abandoned{})
	if w.ecs.onFire.Has(e) {
		w.ecs.onFire.Remove(e)
	}
	w.releaseOccupants(x, y)
	w.notify("A building has been abandoned", stats.Attention, &stats.Location{X: x, Y: y})
}

// sysAbandonment demolishes buildings that stayed abandoned long enough.
func (w *World) sysAbandonment() {
	limit := uint32(max(w.tun.Spawner.AbandonDemolishTicks, 1))
	var gone []ecs.Entity
	for _, e := range w.ecs.buildingEntities() {
		if !w.ecs.abandoned.Has(e) {
			continue
		}
		a := w.ecs.abandoned.Get(e)
		a.TicksAbandoned++
		if a.TicksAbandoned >= limit {
			gone = append(gone, e)
		}
	}
	for _, e := range gone {
		w.demolish(e)
	}
}

// sysBuildingFire ignites, grows and puts out structure fires. The best
// covering fire tier sets suppression; a fire that reaches the destroy
// intensity takes the building with it.
func (w *World) sysBuildingFire() {
	heat := float64(1)
	if w.heatWave.Active {
		heat = 2
	}
	var ignite, out, destroyed []ecs.Entity
	for _, e := range w.ecs.buildingEntities() {
		if !w.ecs.operational(e) {
			continue
		}
		b := w.ecs.buildings.Get(e)
		if !w.ecs.onFire.Has(e) {
			chance := float64(env.IgnitionChance)
			if b.Zone == grid.ZoneIndustrial {
				chance = env.IndustrialIgnition
			}
			if w.rng.Chance(chance * heat) {
				ignite = append(ignite, e)
			}
			continue
		}
		f := w.ecs.onFire.Get(e)
		f.TicksBurning++
		tier := w.hybrid.BestTier[grid.Index(b.GridX, b.GridY)] & 0x0f
		intensity, extinguished := env.StepBuildingFire(f.Intensity, f.TicksBurning, tier, w.weather.Condition)
		f.Intensity = intensity
		switch {
		case intensity >= env.FireDestroyIntensity:
			destroyed = append(destroyed, e)
		case extinguished:
			out = append(out, e)
		}
	}
	for _, e := range ignite {
		w.igniteBuilding(e)
	}
	for _, e := range out {
		w.ecs.onFire.Remove(e)
	}
	for _, e := range destroyed {
		b := *w.ecs.buildings.Get(e)
		w.demolish(e)
		w.notify("A building burned down", stats.Emergency, &stats.Location{X: b.GridX, Y: b.GridY})
	}
}

const igniteIntensity = 20

func (w *World) igniteBuilding(e ecs.Entity) {
	if w.ecs.onFire.Has(e) || !w.ecs.operational(e) {
		return
	}
	w.ecs.onFire.Add(e, &zones.OnFire{Intensity: igniteIntensity})
	b := w.ecs.buildings.Get(e)
	w.notify("Fire reported", stats.Warning, &stats.Location{X: b.GridX, Y: b.GridY})
	w.sfx("fire_alarm")
}
