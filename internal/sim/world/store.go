package world

import (
	"sort"

	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/citizen"
	"cityforge.dev/internal/sim/energy"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/traffic"
	"cityforge.dev/internal/sim/utilities"
	"cityforge.dev/internal/sim/zones"
)

// VehicleTag carries the persisted identity used to order vehicles.
type VehicleTag struct {
	ID uint32
}

// store is the ark world plus the mappers and filters systems use. It is
// replaced wholesale on load and new game.
type store struct {
	world *ecs.World

	buildings    *ecs.Map[zones.Building]
	construction *ecs.Map[zones.UnderConstruction]
	onFire       *ecs.Map[zones.OnFire]
	abandoned    *ecs.Map[zones.Abandoned]
	consumers    *ecs.Map[energy.Consumer]

	services  *ecs.Map[services.Site]
	utilities *ecs.Map[utilities.Source]
	batteries *ecs.Map[energy.Battery]

	vehicleSpawn *ecs.Map2[traffic.Vehicle, VehicleTag]
	vehicles     *ecs.Map[traffic.Vehicle]
	vehicleTags  *ecs.Map[VehicleTag]

	citizenSpawn *ecs.Map5[citizen.Citizen, citizen.Position, citizen.Velocity, citizen.HomeLocation, citizen.State]
	citizens     *ecs.Map[citizen.Citizen]
	positions    *ecs.Map[citizen.Position]
	velocities   *ecs.Map[citizen.Velocity]
	homes        *ecs.Map[citizen.HomeLocation]
	works        *ecs.Map[citizen.WorkLocation]
	states       *ecs.Map[citizen.State]
	needs        *ecs.Map[citizen.Needs]
	details      *ecs.Map[citizen.Details]
	personality  *ecs.Map[citizen.Personality]
	family       *ecs.Map[citizen.Family]
	timers       *ecs.Map[citizen.ActivityTimer]
	paths        *ecs.Map[citizen.PathCache]
	requests     *ecs.Map[citizen.PathRequest]
	computing    *ecs.Map[citizen.ComputingPath]
	homeless     *ecs.Map[citizen.Homeless]
	modes        *ecs.Map[citizen.TravelMode]

	buildingFilter *ecs.Filter1[zones.Building]
	serviceFilter  *ecs.Filter1[services.Site]
	utilityFilter  *ecs.Filter1[utilities.Source]
	vehicleFilter  *ecs.Filter1[VehicleTag]
	citizenFilter  *ecs.Filter1[citizen.Citizen]
}

func newStore() *store {
	w := ecs.NewWorld()
	return &store{
		world: w,

		buildings:    ecs.NewMap[zones.Building](w),
		construction: ecs.NewMap[zones.UnderConstruction](w),
		onFire:       ecs.NewMap[zones.OnFire](w),
		abandoned:    ecs.NewMap[zones.Abandoned](w),
		consumers:    ecs.NewMap[energy.Consumer](w),

		services:  ecs.NewMap[services.Site](w),
		utilities: ecs.NewMap[utilities.Source](w),
		batteries: ecs.NewMap[energy.Battery](w),

		vehicleSpawn: ecs.NewMap2[traffic.Vehicle, VehicleTag](w),
		vehicles:     ecs.NewMap[traffic.Vehicle](w),
		vehicleTags:  ecs.NewMap[VehicleTag](w),

		citizenSpawn: ecs.NewMap5[citizen.Citizen, citizen.Position, citizen.Velocity, citizen.HomeLocation, citizen.State](w),
		citizens:     ecs.NewMap[citizen.Citizen](w),
		positions:    ecs.NewMap[citizen.Position](w),
		velocities:   ecs.NewMap[citizen.Velocity](w),
		homes:        ecs.NewMap[citizen.HomeLocation](w),
		works:        ecs.NewMap[citizen.WorkLocation](w),
		states:       ecs.NewMap[citizen.State](w),
		needs:        ecs.NewMap[citizen.Needs](w),
		details:      ecs.NewMap[citizen.Details](w),
		personality:  ecs.NewMap[citizen.Personality](w),
		family:       ecs.NewMap[citizen.Family](w),
		timers:       ecs.NewMap[citizen.ActivityTimer](w),
		paths:        ecs.NewMap[citizen.PathCache](w),
		requests:     ecs.NewMap[citizen.PathRequest](w),
		computing:    ecs.NewMap[citizen.ComputingPath](w),
		homeless:     ecs.NewMap[citizen.Homeless](w),
		modes:        ecs.NewMap[citizen.TravelMode](w),

		buildingFilter: ecs.NewFilter1[zones.Building](w),
		serviceFilter:  ecs.NewFilter1[services.Site](w),
		utilityFilter:  ecs.NewFilter1[utilities.Source](w),
		vehicleFilter:  ecs.NewFilter1[VehicleTag](w),
		citizenFilter:  ecs.NewFilter1[citizen.Citizen](w),
	}
}

type cellEntity struct {
	x, y int
	e    ecs.Entity
}

func sortCells(out []cellEntity) []ecs.Entity {
	sort.Slice(out, func(i, j int) bool {
		if out[i].y != out[j].y {
			return out[i].y < out[j].y
		}
		return out[i].x < out[j].x
	})
	es := make([]ecs.Entity, len(out))
	for i := range out {
		es[i] = out[i].e
	}
	return es
}

// buildingEntities lists buildings in (y,x) order.
func (s *store) buildingEntities() []ecs.Entity {
	var out []cellEntity
	q := s.buildingFilter.Query()
	for q.Next() {
		b := q.Get()
		out = append(out, cellEntity{b.GridX, b.GridY, q.Entity()})
	}
	return sortCells(out)
}

func (s *store) serviceEntities() []ecs.Entity {
	var out []cellEntity
	q := s.serviceFilter.Query()
	for q.Next() {
		site := q.Get()
		out = append(out, cellEntity{site.X, site.Y, q.Entity()})
	}
	return sortCells(out)
}

func (s *store) utilityEntities() []ecs.Entity {
	var out []cellEntity
	q := s.utilityFilter.Query()
	for q.Next() {
		u := q.Get()
		out = append(out, cellEntity{u.X, u.Y, q.Entity()})
	}
	return sortCells(out)
}

type idEntity struct {
	id uint32
	e  ecs.Entity
}

func sortIDs(out []idEntity) []ecs.Entity {
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	es := make([]ecs.Entity, len(out))
	for i := range out {
		es[i] = out[i].e
	}
	return es
}

// citizenEntities lists citizens by ID.
func (s *store) citizenEntities() []ecs.Entity {
	var out []idEntity
	q := s.citizenFilter.Query()
	for q.Next() {
		out = append(out, idEntity{q.Get().ID, q.Entity()})
	}
	return sortIDs(out)
}

func (s *store) vehicleEntities() []ecs.Entity {
	var out []idEntity
	q := s.vehicleFilter.Query()
	for q.Next() {
		out = append(out, idEntity{q.Get().ID, q.Entity()})
	}
	return sortIDs(out)
}

func (s *store) serviceSites() []services.Site {
	es := s.serviceEntities()
	out := make([]services.Site, len(es))
	for i, e := range es {
		out[i] = *s.services.Get(e)
	}
	return out
}

func (s *store) utilitySources() []utilities.Source {
	es := s.utilityEntities()
	out := make([]utilities.Source, len(es))
	for i, e := range es {
		out[i] = *s.utilities.Get(e)
	}
	return out
}

// operational reports a building that is finished and not abandoned.
func (s *store) operational(e ecs.Entity) bool {
	return !s.construction.Has(e) && !s.abandoned.Has(e)
}

func (s *store) remove(e ecs.Entity) {
	if s.world.Alive(e) {
		s.world.RemoveEntity(e)
	}
}
