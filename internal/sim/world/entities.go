package world

import (
	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/citizen"
	"cityforge.dev/internal/sim/energy"
	"cityforge.dev/internal/sim/env"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/traffic"
	"cityforge.dev/internal/sim/utilities"
	"cityforge.dev/internal/sim/zones"
)

func consumerPriority(z grid.ZoneType) energy.Priority {
	switch {
	case z == grid.ZoneIndustrial:
		return energy.PriorityIndustrial
	case z.IsResidential() && z != grid.ZoneMixedUse:
		return energy.PriorityResidential
	default:
		return energy.PriorityCommercial
	}
}

func (w *World) consumerFor(b *zones.Building) energy.Consumer {
	return energy.Consumer{
		X:        b.GridX,
		Y:        b.GridY,
		KWhMonth: zones.EnergyKWh(&w.cats.Buildings, b.Zone, b.Level),
		Priority: consumerPriority(b.Zone),
	}
}

// spawnBuilding creates the entity and writes the grid back-reference. It is
// a structural change and must not run inside a query.
func (w *World) spawnBuilding(b zones.Building, uc *zones.UnderConstruction) ecs.Entity {
	if b.ID == 0 {
		w.city.NextBuildingID++
		b.ID = w.city.NextBuildingID
	}
	e := w.ecs.buildings.NewEntity(&b)
	c := w.consumerFor(&b)
	w.ecs.consumers.Add(e, &c)
	if uc != nil {
		w.ecs.construction.Add(e, uc)
	}
	w.grid.At(b.GridX, b.GridY).Building = e
	return e
}

// setLevel changes a building's level and the capacity and demand that follow it.
func (w *World) setLevel(e ecs.Entity, level uint8) {
	b := w.ecs.buildings.Get(e)
	b.Level = level
	b.Capacity = zones.Capacity(&w.cats.Buildings, b.Zone, level)
	b.Occupants = min(b.Occupants, b.Capacity)
	b.AffordableUnits = zones.AffordableUnits(b.Zone, b.Capacity, w.tun.Spawner.AffordableFraction)
	*w.ecs.consumers.Get(e) = w.consumerFor(b)
}

// displaced lists the citizens a demolition evicted or laid off.
type displaced struct {
	evicted []uint32
	laidOff []actions.Layoff
}

// demolish removes a building and evicts or lays off its occupants. The grid
// reference is cleared immediately.
func (w *World) demolish(e ecs.Entity) displaced {
	if !w.ecs.world.Alive(e) {
		return displaced{}
	}
	b := *w.ecs.buildings.Get(e)
	if grid.InBounds(b.GridX, b.GridY) {
		if c := w.grid.At(b.GridX, b.GridY); c.Building == e {
			c.Building = ecs.Entity{}
		}
	}
	w.ecs.remove(e)
	return w.releaseOccupants(b.GridX, b.GridY)
}

// releaseOccupants detaches citizens living or working at a cell.
func (w *World) releaseOccupants(x, y int) displaced {
	var homeless, jobless []ecs.Entity
	var out displaced
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		e := q.Entity()
		id := w.ecs.citizens.Get(e).ID
		if h := w.ecs.homes.Get(e); h.GridX == x && h.GridY == y && !w.ecs.homeless.Has(e) {
			homeless = append(homeless, e)
			out.evicted = append(out.evicted, id)
		}
		if w.ecs.works.Has(e) {
			if wl := w.ecs.works.Get(e); wl.GridX == x && wl.GridY == y {
				jobless = append(jobless, e)
				out.laidOff = append(out.laidOff, actions.Layoff{Citizen: id, Work: *wl})
			}
		}
	}
	for _, e := range homeless {
		w.ecs.homeless.Add(e, &citizen.Homeless{})
	}
	for _, e := range jobless {
		w.fire(e)
	}
	return out
}

// hire gives e a job at wl. Adding the component moves e to another table,
// so details are fetched only after it.
func (w *World) hire(e ecs.Entity, wl citizen.WorkLocation) {
	w.ecs.works.Add(e, &wl)
	d := w.ecs.details.Get(e)
	d.Salary = citizen.SalaryFor(d.Education)
}

// fire drops e's job and salary.
func (w *World) fire(e ecs.Entity) {
	w.ecs.works.Remove(e)
	w.ecs.details.Get(e).Salary = 0
}

func (w *World) serviceSite(t services.Type, x, y int) services.Site {
	s := services.Site{Type: t, X: x, Y: y}
	if def, ok := w.cats.Services.ByID[t.String()]; ok {
		s.Radius = def.RadiusCells * grid.CellSize
		s.Capacity = uint32(def.Capacity)
	}
	return s
}

func floodKind(t services.Type) env.ProtectionKind {
	if t == services.Seawall {
		return env.Seawall
	}
	return env.Levee
}

func newBarrier(x, y int, kind env.ProtectionKind) env.Barrier {
	return env.Barrier{X: x, Y: y, Kind: kind, Condition: 1, Maintained: true}
}

func (w *World) spawnService(s services.Site) ecs.Entity {
	e := w.ecs.services.NewEntity(&s)
	if s.Type.IsFloodProtection() {
		kind := floodKind(s.Type)
		if _, ok := w.protection.At(s.X, s.Y); !ok {
			w.protection.Add(newBarrier(s.X, s.Y, kind))
		}
	}
	return e
}

func (w *World) utilitySource(t utilities.Type, x, y int) utilities.Source {
	u := utilities.Source{Type: t, X: x, Y: y}
	if def, ok := w.cats.Generators.ByID[t.String()]; ok {
		u.Range = def.RangeCells
	}
	return u
}

func (w *World) spawnUtility(u utilities.Source, stored float32) ecs.Entity {
	e := w.ecs.utilities.NewEntity(&u)
	if u.Type == utilities.BatteryStorage {
		def := w.cats.Generators.ByID[u.Type.String()]
		w.ecs.batteries.Add(e, &energy.Battery{CapacityMWh: def.StorageMWh, StoredMWh: min(stored, def.StorageMWh)})
	}
	w.utilitiesDirty = true
	return e
}

func (w *World) removeService(e ecs.Entity) services.Site {
	s := *w.ecs.services.Get(e)
	if s.Type.IsFloodProtection() {
		w.protection.Remove(s.X, s.Y)
	}
	w.ecs.remove(e)
	return s
}

func (w *World) removeUtility(e ecs.Entity) utilities.Source {
	u := *w.ecs.utilities.Get(e)
	w.ecs.remove(e)
	w.utilitiesDirty = true
	return u
}

// serviceAt finds the service occupying a cell.
func (w *World) serviceAt(x, y int) (ecs.Entity, bool) {
	for _, e := range w.ecs.serviceEntities() {
		if s := w.ecs.services.Get(e); s.X == x && s.Y == y {
			return e, true
		}
	}
	return ecs.Entity{}, false
}

func (w *World) utilityAt(x, y int) (ecs.Entity, bool) {
	for _, e := range w.ecs.utilityEntities() {
		if u := w.ecs.utilities.Get(e); u.X == x && u.Y == y {
			return e, true
		}
	}
	return ecs.Entity{}, false
}

// citizenSeed is everything needed to create a citizen.
type citizenSeed struct {
	ID          uint32
	Home        citizen.HomeLocation
	Work        *citizen.WorkLocation
	State       citizen.State
	Pos         citizen.Position
	Vel         citizen.Velocity
	Needs       citizen.Needs
	Details     citizen.Details
	Personality citizen.Personality
	Family      citizen.Family
	Timer       citizen.ActivityTimer
	Path        citizen.PathCache
	Homeless    *citizen.Homeless
	Mode        citizen.TravelMode
}

func (w *World) spawnCitizen(s citizenSeed) ecs.Entity {
	if s.ID == 0 {
		w.city.NextCitizenID++
		s.ID = w.city.NextCitizenID
	}
	c := citizen.Citizen{ID: s.ID}
	e := w.ecs.citizenSpawn.NewEntity(&c, &s.Pos, &s.Vel, &s.Home, &s.State)
	w.ecs.needs.Add(e, &s.Needs)
	w.ecs.details.Add(e, &s.Details)
	w.ecs.personality.Add(e, &s.Personality)
	w.ecs.family.Add(e, &s.Family)
	w.ecs.timers.Add(e, &s.Timer)
	w.ecs.paths.Add(e, &s.Path)
	w.ecs.modes.Add(e, &s.Mode)
	if s.Work != nil {
		w.ecs.works.Add(e, s.Work)
	}
	if s.Homeless != nil {
		w.ecs.homeless.Add(e, s.Homeless)
	}
	return e
}

func (w *World) spawnVehicle(v traffic.Vehicle, id uint32) ecs.Entity {
	if id == 0 {
		w.city.NextVehicleID++
		id = w.city.NextVehicleID
	}
	tag := VehicleTag{ID: id}
	return w.ecs.vehicleSpawn.NewEntity(&v, &tag)
}
