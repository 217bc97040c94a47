package world

import (
	"sort"

	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/citizen"
	"cityforge.dev/internal/sim/env"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/stats"
)

const (
	// Citizens older than this may die on any day with deathChance.
	oldAge      = 85
	deathChance = 0.02
	maxAge      = 110

	savingsRate = 0.1
	// roadSearch is how far from a building the nearest road is looked up.
	roadSearch = 3
	// poorRoadCondition marks pavement bad enough to annoy residents.
	poorRoadCondition = 64
	jobSearchCells    = 60
)

// sysCitizenLife runs the daily and monthly life rules: aging, schooling,
// health, retirement, death and salary.
func (w *World) sysCitizenLife() {
	if !w.dayRolled {
		return
	}
	day := w.clock.Day
	payday := day%MonthDays == 0
	var died, retired []ecs.Entity
	for _, e := range w.ecs.citizenEntities() {
		d := w.ecs.details.Get(e)
		if day%citizen.AgeDaysPerYear == 0 && d.Age < maxAge {
			d.Age++
		}
		if d.Age >= oldAge && w.rng.Chance(deathChance) {
			died = append(died, e)
			continue
		}
		home := w.ecs.homes.Get(e)
		homeless := w.ecs.homeless.Has(e)
		edu := !homeless && w.coverage.Has(home.GridX, home.GridY, services.BitEducation)
		d.Education = citizen.AdvanceEducation(d, *w.ecs.personality.Get(e), edu, day)

		target := float32(60)
		if !homeless {
			if w.coverage.Has(home.GridX, home.GridY, services.BitHealth) {
				target += 25
			}
			target -= float32(w.pollution.Get(home.GridX, home.GridY)) / 8
		}
		d.Health += (target - d.Health) * 0.1
		d.Health = min(max(d.Health, 0), 100)

		if !w.ecs.works.Has(e) {
			continue
		}
		if !d.Stage().CanWork() {
			retired = append(retired, e)
			continue
		}
		d.Salary = citizen.SalaryFor(d.Education)
		if payday {
			d.Savings += d.Salary * savingsRate
		}
	}
	for _, e := range retired {
		w.fire(e)
	}
	for _, e := range died {
		w.ecs.remove(e)
	}
}

func (w *World) sysCitizenNeeds() {
	if !w.every(citizen.NeedsInterval) {
		return
	}
	night := w.clock.IsNight()
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		e := q.Entity()
		power, water := false, false
		if !w.ecs.homeless.Has(e) {
			h := w.ecs.homes.Get(e)
			if grid.InBounds(h.GridX, h.GridY) {
				c := w.grid.At(h.GridX, h.GridY)
				power, water = c.HasPower, c.HasWater
			}
		}
		w.ecs.needs.Get(e).Update(*w.ecs.states.Get(e), night, power, water)
	}
}

type jobSlot struct {
	x, y   int
	e      ecs.Entity
	office bool
}

// sysJobMatching gives each unemployed working-age resident the nearest
// open job they qualify for. Offices want at least high school.
func (w *World) sysJobMatching() {
	if !w.every(w.tun.Citizens.JobSeekInterval) {
		return
	}
	var slots []jobSlot
	for _, e := range w.ecs.buildingEntities() {
		b := w.ecs.buildings.Get(e)
		if b.Zone.IsJobZone() && w.ecs.operational(e) && b.Occupants < b.Capacity {
			slots = append(slots, jobSlot{b.GridX, b.GridY, e, b.Zone == grid.ZoneOffice})
		}
	}
	if len(slots) == 0 {
		return
	}
	type hiring struct {
		e  ecs.Entity
		wl citizen.WorkLocation
	}
	var hired []hiring
	for _, e := range w.ecs.citizenEntities() {
		if w.ecs.works.Has(e) || w.ecs.homeless.Has(e) {
			continue
		}
		d := w.ecs.details.Get(e)
		if !d.Stage().CanWork() {
			continue
		}
		home := w.ecs.homes.Get(e)
		at := roads.RoadNode{X: home.GridX, Y: home.GridY}
		best, bestD := -1, jobSearchCells+1
		for i, s := range slots {
			b := w.ecs.buildings.Get(s.e)
			if b.Occupants >= b.Capacity || (s.office && d.Education < 2) {
				continue
			}
			if dist := roads.Manhattan(at, roads.RoadNode{X: s.x, Y: s.y}); dist < bestD {
				best, bestD = i, dist
			}
		}
		if best < 0 {
			continue
		}
		s := slots[best]
		w.ecs.buildings.Get(s.e).Occupants++
		hired = append(hired, hiring{e, citizen.WorkLocation{GridX: s.x, GridY: s.y}})
	}
	for _, h := range hired {
		w.hire(h.e, h.wl)
	}
}

// destinations indexes shops, leisure and schools for the routine.
type destinations struct {
	shops, leisure, schools [][2]int
}

func (w *World) destinations() *destinations {
	d := &destinations{}
	for _, e := range w.ecs.buildingEntities() {
		b := w.ecs.buildings.Get(e)
		if b.Zone.IsCommercial() && w.ecs.operational(e) {
			d.shops = append(d.shops, [2]int{b.GridX, b.GridY})
		}
	}
	for _, s := range w.ecs.serviceSites() {
		switch s.Type.Bit() {
		case services.BitPark, services.BitEntertainment:
			d.leisure = append(d.leisure, [2]int{s.X, s.Y})
		case services.BitEducation:
			d.schools = append(d.schools, [2]int{s.X, s.Y})
		}
	}
	return d
}

func (d *destinations) Nearest(kind citizen.Destination, x, y, maxDist int) (int, int, bool) {
	var list [][2]int
	switch kind {
	case citizen.Shop:
		list = d.shops
	case citizen.Leisure:
		list = d.leisure
	case citizen.School:
		list = d.schools
	}
	at := roads.RoadNode{X: x, Y: y}
	best, bestD := -1, maxDist+1
	for i, p := range list {
		if dist := roads.Manhattan(at, roads.RoadNode{X: p[0], Y: p[1]}); dist < bestD {
			best, bestD = i, dist
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return list[best][0], list[best][1], true
}

// sysCitizenStateMachine advances every daily routine. New trips are
// requested through deferred commands so the pathfinder sees them after the
// flush that follows this system.
func (w *World) sysCitizenStateMachine() {
	dest := w.destinations()
	hour, minute := w.clock.HourOfDay(), w.clock.MinuteOfHour()
	for _, e := range w.ecs.citizenEntities() {
		if w.ecs.homeless.Has(e) || w.ecs.requests.Has(e) || w.ecs.computing.Has(e) {
			continue
		}
		d := w.ecs.details.Get(e)
		pos := w.ecs.positions.Get(e)
		path := w.ecs.paths.Get(e)
		state := w.ecs.states.Get(e)
		timer := w.ecs.timers.Get(e)
		cx, cy := grid.WorldToGrid(pos.X, pos.Y)
		in := citizen.RoutineInputs{
			Jitter:       citizen.JitterFor(w.ecs.citizens.Get(e).ID),
			State:        *state,
			Stage:        d.Stage(),
			Hour:         hour,
			Minute:       minute,
			Home:         *w.ecs.homes.Get(e),
			CellX:        cx,
			CellY:        cy,
			Needs:        *w.ecs.needs.Get(e),
			PathComplete: path.Complete(),
		}
		if w.ecs.works.Has(e) {
			wl := *w.ecs.works.Get(e)
			in.Work = &wl
		}
		step := citizen.Decide(in, timer.Ticks, dest)
		if in.State.IsCommuting() && !step.Next.IsCommuting() {
			*path = citizen.PathCache{}
		}
		*state = step.Next
		if step.ResetTimer {
			timer.Ticks = 0
		} else {
			timer.Ticks++
		}
		if step.Request != nil {
			req := *step.Request
			w.deferCmd(func() {
				if w.ecs.world.Alive(e) && !w.ecs.requests.Has(e) {
					w.ecs.requests.Add(e, &req)
				}
			})
		}
	}
}

type pendingPath struct {
	id uint32
	e  ecs.Entity
}

// sysProcessPathRequests solves short trips at once. Long trips are marked
// ComputingPath and solved on a later tick, at most PathsPerTick per tick.
func (w *World) sysProcessPathRequests() {
	var pending []pendingPath
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		e := q.Entity()
		if w.ecs.requests.Has(e) {
			pending = append(pending, pendingPath{q.Get().ID, e})
		}
	}
	if len(pending) == 0 {
		return
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].id < pending[j].id })

	budget := w.tun.Citizens.PathsPerTick
	for _, p := range pending {
		req := *w.ecs.requests.Get(p.e)
		computing := w.ecs.computing.Has(p.e)
		dist := roads.Manhattan(roads.RoadNode{X: req.FromX, Y: req.FromY}, roads.RoadNode{X: req.ToX, Y: req.ToY})
		if !computing && dist > w.tun.Citizens.SyncPathMaxDistance {
			w.ecs.computing.Add(p.e, &citizen.ComputingPath{})
			continue
		}
		if computing {
			if budget <= 0 {
				continue
			}
			budget--
			w.ecs.computing.Remove(p.e)
		}
		w.ecs.requests.Remove(p.e)
		w.solvePath(p.e, req)
	}
}

// solvePath routes one trip and starts it, or sends the citizen home when no
// road route exists.
func (w *World) solvePath(e ecs.Entity, req citizen.PathRequest) {
	w.refreshRoads()
	from, ok1 := w.network.NearestRoad(req.FromX, req.FromY, roadSearch)
	to, ok2 := w.network.NearestRoad(req.ToX, req.ToY, roadSearch)
	var route []roads.RoadNode
	if ok1 && ok2 {
		route = w.csr.FindPathWithTraffic(from, to, w.grid, w.density, w.tun.Roads.BPRAlpha, w.tun.Roads.BPRBeta)
	}
	if len(route) == 0 {
		*w.ecs.states.Get(e) = citizen.AtHome
		*w.ecs.paths.Get(e) = citizen.PathCache{}
		home := w.ecs.homes.Get(e)
		p := w.ecs.positions.Get(e)
		p.X, p.Y = grid.GridToWorld(home.GridX, home.GridY)
		return
	}
	if end := (roads.RoadNode{X: req.ToX, Y: req.ToY}); end != route[len(route)-1] {
		route = append(route, end)
	}
	w.ecs.modes.Get(e).Mode = citizen.ChooseMode(citizen.ModeInputs{
		Distance:      float32(roads.Manhattan(from, to)),
		RoadAccess:    w.grid.At(from.X, from.Y).Road.AllowsVehicles(),
		BikeAccess:    w.bikeAccess(from),
		TransitOrigin: w.transit.Access(req.FromX, req.FromY),
		TransitDest:   w.transit.Access(req.ToX, req.ToY),
	})
	*w.ecs.paths.Get(e) = citizen.PathCache{Waypoints: route}
	*w.ecs.states.Get(e) = req.Target
}

// bikeAccess reports a path or local road at the trip origin.
func (w *World) bikeAccess(n roads.RoadNode) bool {
	rt := w.grid.At(n.X, n.Y).Road
	return rt == grid.RoadPath || rt == grid.RoadLocal
}

// sysCitizenMovement walks commuters along their paths. Snow slows
// everyone down.
func (w *World) sysCitizenMovement() {
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		e := q.Entity()
		if !w.ecs.states.Get(e).IsCommuting() {
			continue
		}
		path := w.ecs.paths.Get(e)
		if path.Complete() {
			continue
		}
		pos := w.ecs.positions.Get(e)
		cx, cy := grid.WorldToGrid(pos.X, pos.Y)
		speed := citizen.BaseSpeed * w.ecs.modes.Get(e).Mode.SpeedMultiplier() * env.SnowSpeedFactor(w.snow.Depth.Get(cx, cy))
		citizen.Advance(pos, w.ecs.velocities.Get(e), path, speed)
	}
}

// sysHomelessness rehouses homeless citizens where there is room and sends
// away those who stayed homeless too long.
func (w *World) sysHomelessness() {
	var homes []ecs.Entity
	shelter := false
	for _, e := range w.ecs.buildingEntities() {
		b := w.ecs.buildings.Get(e)
		if b.Zone.IsResidential() && w.ecs.operational(e) && b.Occupants < b.Capacity {
			homes = append(homes, e)
		}
	}
	for _, s := range w.ecs.serviceSites() {
		if s.Type == services.HomelessShelter {
			shelter = true
			break
		}
	}
	limit := uint32(max(w.tun.Citizens.HomelessEmigrateTicks, 1))
	left := 0
	for _, e := range w.ecs.citizenEntities() {
		if !w.ecs.homeless.Has(e) {
			continue
		}
		if home, ok := w.freeHome(homes); ok {
			b := w.ecs.buildings.Get(home)
			b.Occupants++
			*w.ecs.homes.Get(e) = citizen.HomeLocation{GridX: b.GridX, GridY: b.GridY}
			p := w.ecs.positions.Get(e)
			p.X, p.Y = grid.GridToWorld(b.GridX, b.GridY)
			*w.ecs.states.Get(e) = citizen.AtHome
			*w.ecs.paths.Get(e) = citizen.PathCache{}
			w.ecs.homeless.Remove(e)
			continue
		}
		h := w.ecs.homeless.Get(e)
		h.Sheltered = shelter
		if h.Tick(limit) {
			w.ecs.remove(e)
			left++
		}
	}
	if left > 0 {
		w.notify("Homeless residents have left the city", stats.Attention, nil)
	}
}

func (w *World) freeHome(homes []ecs.Entity) (ecs.Entity, bool) {
	for _, e := range homes {
		if b := w.ecs.buildings.Get(e); b.Occupants < b.Capacity {
			return e, true
		}
	}
	return ecs.Entity{}, false
}

// sysCitizenHappiness rescores every citizen on the slow tick.
func (w *World) sysCitizenHappiness() {
	if !w.slowTick() {
		return
	}
	mod := float32(0)
	if w.coldSnap.Active {
		mod -= 3
	}
	if w.heatWave.Active {
		mod -= 3
	}
	if w.power.Blackout {
		mod -= 2
	}
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		e := q.Entity()
		d := w.ecs.details.Get(e)
		home := *w.ecs.homes.Get(e)
		homeless := w.ecs.homeless.Has(e)
		in := citizen.HappinessInputs{
			Homeless: homeless,
			Health:   d.Health,
			Needs:    *w.ecs.needs.Get(e),
			TaxRate:  w.budget.Rates.ForZone(grid.ZoneResidentialLow),
			Modifier: mod,
		}
		if homeless {
			in.Sheltered = w.ecs.homeless.Get(e).Sheltered
		} else if grid.InBounds(home.GridX, home.GridY) {
			x, y := home.GridX, home.GridY
			c := w.grid.At(x, y)
			in.HasPower, in.HasWater = c.HasPower, c.HasWater
			in.Coverage = w.coverage.Get(x, y)
			in.TaxRate = w.budget.Rates.ForZone(c.Zone)
			in.Garbage = w.garbage.Level.Get(x, y)
			in.Crime = w.crime.Get(x, y)
			in.Pollution = w.pollution.Get(x, y)
			in.Noise = w.noise.Get(x, y)
			in.LandValue = w.landValue.Get(x, y)
			if r, ok := w.network.NearestRoad(x, y, roadSearch); ok {
				in.Congestion = w.density.Ratio(w.grid, r.X, r.Y)
				in.PoorRoad = w.condition.Grid.Get(r.X, r.Y) < poorRoadCondition
			}
		}
		if w.ecs.works.Has(e) {
			wl := w.ecs.works.Get(e)
			in.Employed = true
			in.CommuteCells = roads.Manhattan(roads.RoadNode{X: home.GridX, Y: home.GridY}, roads.RoadNode{X: wl.GridX, Y: wl.GridY})
		}
		d.Happiness = citizen.ComputeHappiness(in)
	}
}
