package world

import (
	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/disasters"
	"cityforge.dev/internal/sim/economy"
	"cityforge.dev/internal/sim/env"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/stats"
	"cityforge.dev/internal/sim/utilities"
)

const (
	// garbagePerOccupant is the tonnage one resident or worker produces per
	// slow tick.
	garbagePerOccupant  = 0.05
	recyclingCenterMult = 0.8
	incineratorMult     = 0.5
	// sewagePerResident feeds the combined sewer alongside runoff.
	sewagePerResident   = 0.05
)

// qualityView exposes one hybrid coverage category as a field.
type qualityView struct {
	h   *services.Hybrid
	bit uint8
}

func (v qualityView) Get(x, y int) uint8 { return v.h.QualityAt(v.bit, x, y) }

// fillQuality copies a coverage category into a stored grid.
func fillQuality(out *grid.U8Grid, h *services.Hybrid, bit uint8) {
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			out.Set(x, y, h.QualityAt(bit, x, y))
		}
	}
}

// envSnapshot gathers the building, service and utility views the field
// updates share.
type envSnapshot struct {
	buildings []ecs.Entity
	sites     []services.Site
	sources   []utilities.Source
	roads     [][2]int
	residents uint32
}

func (w *World) envSnapshot() envSnapshot {
	s := envSnapshot{sites: w.ecs.serviceSites(), sources: w.ecs.utilitySources()}
	for _, e := range w.ecs.buildingEntities() {
		if !w.ecs.operational(e) {
			continue
		}
		s.buildings = append(s.buildings, e)
		if b := w.ecs.buildings.Get(e); b.Zone.IsResidential() {
			s.residents += b.Occupants
		}
	}
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			if w.grid.At(x, y).Type == grid.Road {
				s.roads = append(s.roads, [2]int{x, y})
			}
		}
	}
	return s
}

func (s *envSnapshot) hasService(t services.Type) bool {
	for _, site := range s.sites {
		if site.Type == t {
			return true
		}
	}
	return false
}

func (s *envSnapshot) hasUtility(t utilities.Type) bool {
	for _, u := range s.sources {
		if u.Type == t && !u.Outage {
			return true
		}
	}
	return false
}

// sysEnvironment ages flood protection once a day and rebuilds every
// environmental field on the slow tick, in dependency order.
func (w *World) sysEnvironment() {
	if w.dayRolled {
		if failed := w.protection.Age(1, w.rng); failed > 0 {
			w.notify("A flood barrier has failed", stats.Emergency, nil)
		}
	}
	if !w.slowTick() {
		return
	}
	s := w.envSnapshot()
	w.updatePollution(&s)
	w.updateNoise(&s)
	w.updateWater(&s)
	w.updateFlood(&s)
	w.updateCrime(&s)
	w.updateFire(&s)
	w.updateForestFire()
	w.updateSnow()
	w.updateHeating(&s)
	fillQuality(w.education, w.hybrid, services.BitEducation)
	fillQuality(w.health, w.hybrid, services.BitHealth)
	w.updateGarbage(&s)
	env.ComputeLandValue(w.grid, env.LandValueInputs{
		Coverage:  w.coverage.Get,
		Pollution: w.pollution,
		Crime:     w.crime,
		Noise:     w.noise,
		Garbage:   w.garbage.Level,
		Flood:     w.flood.Depth,
	}, w.landValue)
	env.ComputeUHI(w.grid, w.levelAt, w.clock.IsNight(), w.uhi)
	w.windDamage(&s)
}

func (w *World) levelAt(x, y int) uint8 {
	if e, ok := w.buildingAt(x, y); ok {
		return w.ecs.buildings.Get(e).Level
	}
	return 0
}

func (w *World) updatePollution(s *envSnapshot) {
	var src []env.EmissionSource
	for _, u := range s.sources {
		if def, ok := w.cats.Generators.ByID[u.Type.String()]; ok && def.Emission > 0 && !u.Outage {
			src = append(src, env.EmissionSource{Kind: env.EmitPowerPlant, X: u.X, Y: u.Y, Q: def.Emission})
		}
	}
	for _, e := range s.buildings {
		if b := w.ecs.buildings.Get(e); b.Zone == grid.ZoneIndustrial {
			src = append(src, env.EmissionSource{Kind: env.EmitIndustrial, X: b.GridX, Y: b.GridY, Q: env.QIndustrialPerLevel * float32(b.Level)})
		}
	}
	for _, c := range s.roads {
		q := env.QRoadBase + env.QRoadPerTraffic*float32(w.density.Get(c[0], c[1]))
		src = append(src, env.EmissionSource{Kind: env.EmitRoad, X: c[0], Y: c[1], Q: q})
	}
	for _, site := range s.sites {
		def, ok := w.cats.Services.ByID[site.Type.String()]
		if !ok || def.Emission <= 0 {
			continue
		}
		kind := env.EmitService
		if site.Type.IsHeating() {
			kind = env.EmitHeating
		}
		src = append(src, env.EmissionSource{Kind: kind, X: site.X, Y: site.Y, Q: def.Emission})
	}
	p := env.DefaultPlume()
	p.WindDir = w.weather.WindDir
	p.WindSpeed = w.weather.WindSpeed
	p.Multiplier[env.EmitPowerPlant] = w.policies.PowerPlantEmissionMult()
	p.Multiplier[env.EmitRoad] = w.policies.RoadEmissionMult()
	env.ComputePollution(src, p, w.pollution)
}

func (w *World) updateNoise(s *envSnapshot) {
	var src []env.NoiseSource
	for _, c := range s.roads {
		rt := w.grid.At(c[0], c[1]).Road
		src = append(src, env.NoiseSource{X: c[0], Y: c[1], DB: env.RoadDB(rt, grid.ClampU8(int(w.density.Get(c[0], c[1]))))})
	}
	for _, e := range s.buildings {
		if b := w.ecs.buildings.Get(e); b.Zone == grid.ZoneIndustrial {
			src = append(src, env.NoiseSource{X: b.GridX, Y: b.GridY, DB: env.IndustrialDB})
		}
	}
	for _, site := range s.sites {
		var db float32
		switch {
		case site.Type == services.Stadium:
			db = env.StadiumDB
		case site.Type == services.Airport:
			db = env.AirportDB
		case site.Type.IsHeating():
			db = env.HeatingDB
		default:
			if def, ok := w.cats.Services.ByID[site.Type.String()]; ok {
				db = def.NoiseDB
			}
		}
		if db > 0 {
			src = append(src, env.NoiseSource{X: site.X, Y: site.Y, DB: db})
		}
	}
	for _, u := range s.sources {
		if def, ok := w.cats.Generators.ByID[u.Type.String()]; ok && def.NoiseDB > 0 {
			src = append(src, env.NoiseSource{X: u.X, Y: u.Y, DB: def.NoiseDB})
		}
	}
	env.ComputeNoise(w.grid, src, w.noise)
}

// updateWater discharges industry, thermal plants, landfills and sewage.
// Without a sewage plant residents discharge untreated at home.
func (w *World) updateWater(s *envSnapshot) {
	var src []env.WaterSource
	for _, e := range s.buildings {
		b := w.ecs.buildings.Get(e)
		if b.Zone == grid.ZoneIndustrial {
			load := float32(env.LoadLightIndustry)
			if b.Level >= 3 {
				load = env.LoadHeavyIndustry
			}
			src = append(src, env.WaterSource{X: b.GridX, Y: b.GridY, Load: load})
		}
	}
	treatment := env.TreatmentSecondary
	if s.hasService(services.WaterTreatment) {
		treatment = env.TreatmentTertiary
	}
	sewered := false
	for _, u := range s.sources {
		switch u.Type {
		case utilities.SewagePlant:
			if !u.Outage {
				sewered = true
				src = append(src, env.WaterSource{X: u.X, Y: u.Y, Load: env.LoadSewageOutfall, Treatment: treatment})
			}
		case utilities.PowerPlant, utilities.NuclearPlant, utilities.GasPlant, utilities.OilPlant, utilities.BiomassPlant:
			src = append(src, env.WaterSource{X: u.X, Y: u.Y, Load: env.LoadThermal})
		}
	}
	if !sewered {
		for _, e := range s.buildings {
			b := w.ecs.buildings.Get(e)
			if b.Zone.IsResidential() && b.Occupants > 0 {
				load := env.LoadSewageOutfall * float32(b.Occupants) / 100
				src = append(src, env.WaterSource{X: b.GridX, Y: b.GridY, Load: load})
			}
		}
	}
	for _, site := range s.sites {
		if site.Type == services.Landfill {
			src = append(src, env.WaterSource{X: site.X, Y: site.Y, Load: env.LoadLeachate})
		}
	}
	env.ComputeWaterPollution(w.grid, src, w.waterPollution)

	var pumps []env.Source
	for _, u := range s.sources {
		if u.Type == utilities.WaterPump && !u.Outage {
			pumps = append(pumps, env.Source{X: u.X, Y: u.Y, V: 1})
		}
	}
	w.groundwater.Update(w.grid, w.weather.Precipitation, pumps, w.pollution, w.waterPollution)
}

// updateFlood runs stormwater, the combined sewer and flood spread, and
// charges flood damage against buildings standing in deep water.
func (w *World) updateFlood(s *envSnapshot) {
	clear(w.storm.Retention.Cells)
	for _, site := range s.sites {
		if !site.Type.IsStormwater() {
			continue
		}
		r := int(services.RadiusCells(site.Radius))
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				x, y := site.X+dx, site.Y+dy
				if grid.InBounds(x, y) && dx*dx+dy*dy <= r*r {
					w.storm.Retention.Cells[grid.Index(x, y)] = env.DrainRate
				}
			}
		}
	}
	overflow := w.storm.Update(w.grid, w.weather.Precipitation)
	sewage := float64(s.residents) * sewagePerResident
	if v := env.CombinedSewerOverflow(w.storm.Total(), sewage, env.SewerCapacity); v > 0 {
		w.events.emit(CsoEvent{Volume: v})
	}

	wasActive := w.flood.Active
	w.flood.Update(w.grid, w.storm, overflow, &w.protection, s.hasUtility(utilities.SewagePlant))
	if w.flood.Active && !wasActive {
		w.notify("Flooding reported", stats.Emergency, nil)
	}
	if !w.flood.Active {
		return
	}
	for _, e := range s.buildings {
		b := w.ecs.buildings.Get(e)
		depth := w.flood.Depth.Get(b.GridX, b.GridY)
		if depth < env.DepthThreshold {
			continue
		}
		w.city.FloodLosses += float64(env.DamageFraction(b.Zone, depth)) * env.PropertyValue(b.Capacity, b.Level)
	}
}

func (w *World) updateCrime(s *envSnapshot) {
	unemployed := w.stats.UnemploymentRate()
	var src []env.Source
	for _, e := range s.buildings {
		b := w.ecs.buildings.Get(e)
		if b.Occupants == 0 {
			continue
		}
		v := env.CrimeSource(b.Occupants, w.landValue.Get(b.GridX, b.GridY), unemployed)
		src = append(src, env.Source{X: b.GridX, Y: b.GridY, V: v})
	}
	env.ComputeCrime(src, qualityView{w.hybrid, services.BitPolice}, w.policies.CrimeMult(), w.crime)
}

func (w *World) updateFire(s *envSnapshot) {
	var burning []env.Source
	for _, e := range s.buildings {
		if w.ecs.onFire.Has(e) {
			b := w.ecs.buildings.Get(e)
			burning = append(burning, env.Source{X: b.GridX, Y: b.GridY, V: w.ecs.onFire.Get(e).Intensity})
		}
	}
	w.fire.Update(burning, qualityView{w.hybrid, services.BitFire})
}

// updateForestFire spreads wildfire and ignites buildings it reaches.
func (w *World) updateForestFire() {
	for _, c := range w.forestFire.Update(w.grid, &w.weather, w.rng) {
		if e, ok := w.buildingAt(c[0], c[1]); ok {
			w.igniteBuilding(e)
		}
	}
}

func (w *World) updateSnow() {
	plowed := w.snow.Update(w.grid, &w.weather, w.policies.Has(economy.PolicySnowPlowing))
	w.city.PlowCost += float64(plowed) * env.PlowCostPerCell
}

func (w *World) updateHeating(s *envSnapshot) {
	var plants []env.Source
	radius := 0
	for _, site := range s.sites {
		if !site.Type.IsHeating() {
			continue
		}
		plants = append(plants, env.Source{X: site.X, Y: site.Y, V: 1})
		radius = max(radius, int(services.RadiusCells(site.Radius)))
	}
	env.ComputeHeating(plants, radius, w.heating)
}

// updateGarbage routes building waste to the landfill where a garbage
// service covers it and lets it pile up elsewhere.
func (w *World) updateGarbage(s *envSnapshot) {
	collected := make([]bool, grid.NumCells)
	capacity := float64(landfillCapacity)
	mult := w.policies.GarbageMult()
	for _, site := range s.sites {
		if !site.Type.IsGarbage() {
			continue
		}
		switch site.Type {
		case services.Landfill:
			capacity += float64(site.Capacity)
		case services.RecyclingCenter:
			mult *= recyclingCenterMult
		case services.Incinerator:
			mult *= incineratorMult
		}
		r := int(services.RadiusCells(site.Radius))
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				x, y := site.X+dx, site.Y+dy
				if grid.InBounds(x, y) && services.Covers(site, x, y) {
					collected[grid.Index(x, y)] = true
				}
			}
		}
	}
	w.garbage.Landfill.Capacity = capacity

	var src []env.Source
	for _, e := range s.buildings {
		b := w.ecs.buildings.Get(e)
		if b.Occupants > 0 {
			src = append(src, env.Source{X: b.GridX, Y: b.GridY, V: float32(b.Occupants) * garbagePerOccupant})
		}
	}
	tier := w.garbage.Update(src, func(x, y int) bool { return collected[grid.Index(x, y)] }, mult)
	if tier == 0 {
		return
	}
	lf := w.garbage.Landfill
	remaining := max(lf.Capacity-lf.Used, 0) / lf.Capacity
	w.events.emit(LandfillWarningEvent{Tier: tier, Fraction: remaining})
	prio := stats.Warning
	if tier >= uint8(len(env.LandfillWarnings)) {
		prio = stats.Emergency
	}
	w.notify("The landfill is filling up", prio, nil)
}

// windDamage may downgrade one building while a storm blows.
func (w *World) windDamage(s *envSnapshot) {
	if !w.weather.IsStorm() || len(s.buildings) == 0 || !disasters.WindDamage(w.rng, w.weather.WindSpeed) {
		return
	}
	e := s.buildings[w.rng.IntN(len(s.buildings))]
	b := w.ecs.buildings.Get(e)
	if b.Level > 1 {
		w.setLevel(e, b.Level-1)
	}
	w.events.emit(WindDamageEvent{X: b.GridX, Y: b.GridY})
}

// sysDisasters may start a disaster on the slow tick and resolves the
// active one every tick.
func (w *World) sysDisasters() {
	d := w.tun.Disasters
	if d.Enabled && w.slowTick() {
		if in, ok := w.disasters.Roll(w.grid, w.rng, d.Chance); ok {
			w.announceDisaster(in)
		}
	}
	if w.disasters.Current == nil {
		return
	}
	var targets []disasters.Target
	var ents []ecs.Entity
	if w.disasters.NeedsDamage() {
		for _, e := range w.ecs.buildingEntities() {
			if !w.ecs.operational(e) {
				continue
			}
			b := w.ecs.buildings.Get(e)
			targets = append(targets, disasters.Target{
				X:         b.GridX,
				Y:         b.GridY,
				Level:     b.Level,
				Elevation: w.grid.At(b.GridX, b.GridY).Elevation,
			})
			ents = append(ents, e)
		}
	}
	kind := w.disasters.Current.Kind
	dmg, ended := w.disasters.Step(w.rng, targets)
	for _, i := range dmg.Downgraded {
		w.setLevel(ents[i], targets[i].Level-1)
	}
	for _, i := range dmg.Destroyed {
		w.demolish(ents[i])
	}
	if !dmg.Empty() {
		w.log.Printf("[world] %s destroyed=%d downgraded=%d", kind, len(dmg.Destroyed), len(dmg.Downgraded))
	}
	if ended {
		w.notify(kind.String()+" has passed", stats.Info, nil)
	}
}

func (w *World) announceDisaster(in *disasters.Instance) {
	w.notify(in.Kind.String()+" strikes the city", stats.Emergency, &stats.Location{X: in.CenterX, Y: in.CenterY})
	w.sfx("disaster")
}
