package traffic

import (
	"sort"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
)

const (
	FreightMoveInterval  = 5
	MaxFreightTrucks     = 200
	MaxTripsPerCycle     = 10
	IndustrialRate       = 0.02
	CommercialRate       = 0.015
	MaxFreightDistance   = 60
	TruckWearPerVisit    = 1
	freightRoadSearch    = 3
	satisfactionSmooth   = 0.8
	DefaultEquivalence   = 2.5
	freightDemandEpsilon = 0.01
)

// Shipper is an occupied building that sends or receives freight.
type Shipper struct {
	X, Y      int
	Zone      grid.ZoneType
	Occupants uint32
}

// Freight is the city-wide freight resource. Trucks themselves are Vehicle
// entities owned by the world.
type Freight struct {
	IndustrialDemand float32
	CommercialDemand float32
	// Satisfaction is the smoothed share of demand served, 0..1.
	Satisfaction   float32
	TripsGenerated uint64
	TripsCompleted uint64
	// Bans holds cell indices closed to heavy vehicles.
	Bans map[int]bool
}

func NewFreight() *Freight { return &Freight{Satisfaction: 1, Bans: map[int]bool{}} }

func (f *Freight) Reset() { *f = *NewFreight() }

// SetBan closes or opens a cell to trucks.
func (f *Freight) SetBan(x, y int, banned bool) {
	if f.Bans == nil {
		f.Bans = map[int]bool{}
	}
	i := grid.Index(x, y)
	if banned {
		f.Bans[i] = true
	} else {
		delete(f.Bans, i)
	}
}

func (f *Freight) Banned(n roads.RoadNode) bool { return f.Bans[grid.Index(n.X, n.Y)] }

// BannedCells lists banned cell indices in ascending order.
func (f *Freight) BannedCells() []int {
	out := make([]int, 0, len(f.Bans))
	for i := range f.Bans {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// ComputeDemand sums outbound industrial and inbound commercial demand.
func (f *Freight) ComputeDemand(ss []Shipper) {
	f.IndustrialDemand, f.CommercialDemand = 0, 0
	for _, s := range ss {
		switch {
		case s.Occupants == 0:
		case s.Zone == grid.ZoneIndustrial:
			f.IndustrialDemand += float32(s.Occupants) * IndustrialRate
		case s.Zone.IsCommercial():
			f.CommercialDemand += float32(s.Occupants) * CommercialRate
		}
	}
}

// PlanTrips matches industrial origins to the nearest commercial destination
// and routes a truck for each, avoiding banned cells. active is the number
// of trucks already on the road; ss must be in stable order.
func (f *Freight) PlanTrips(csr *roads.CSRGraph, net *roads.Network, ss []Shipper, active int) []Vehicle {
	want := min(int(min(f.IndustrialDemand, f.CommercialDemand)), MaxTripsPerCycle, MaxFreightTrucks-active)
	if want <= 0 || csr == nil {
		return nil
	}
	var origins, dests []Shipper
	for _, s := range ss {
		if s.Occupants == 0 {
			continue
		}
		switch {
		case s.Zone == grid.ZoneIndustrial:
			origins = append(origins, s)
		case s.Zone.IsCommercial():
			dests = append(dests, s)
		}
	}
	var out []Vehicle
	for _, o := range origins {
		if len(out) >= want {
			break
		}
		d, ok := nearestShipper(dests, o.X, o.Y, MaxFreightDistance)
		if !ok {
			continue
		}
		from, ok1 := net.NearestRoad(o.X, o.Y, freightRoadSearch)
		to, ok2 := net.NearestRoad(d.X, d.Y, freightRoadSearch)
		if !ok1 || !ok2 {
			continue
		}
		route := csr.FindPathAvoiding(from, to, f.Banned)
		if len(route) == 0 {
			continue
		}
		out = append(out, NewVehicle(FreightTruck, route))
		f.TripsGenerated++
	}
	return out
}

func nearestShipper(ss []Shipper, x, y, maxDist int) (Shipper, bool) {
	best, bestD := Shipper{}, maxDist+1
	for _, s := range ss {
		d := roads.Manhattan(roads.RoadNode{X: x, Y: y}, roads.RoadNode{X: s.X, Y: s.Y})
		if d < bestD {
			best, bestD = s, d
		}
	}
	return best, bestD <= maxDist
}

// MoveTruck loads the truck's current cell with equiv vehicle equivalents,
// wears the pavement and advances it. It returns true once the truck has
// arrived; the caller despawns it and calls Completed.
func MoveTruck(v *Vehicle, density *DensityGrid, cond *roads.Condition, equiv float32) bool {
	if n, ok := v.Position(); ok {
		density.Add(n.X, n.Y, uint16(max(equiv, 0)+0.5))
		if cond != nil {
			if c := cond.Grid.Get(n.X, n.Y); c > 0 {
				cond.Grid.AddSat(n.X, n.Y, -TruckWearPerVisit)
			}
		}
	}
	return v.Advance(v.Kind.Speed())
}

func (f *Freight) Completed(n int) { f.TripsCompleted += uint64(n) }

// UpdateSatisfaction smooths the ratio of active trucks to demand.
func (f *Freight) UpdateSatisfaction(active int) {
	total := f.IndustrialDemand + f.CommercialDemand
	if total < freightDemandEpsilon {
		f.Satisfaction = 1
		return
	}
	ratio := min(float32(active)/max(total, 1), 1)
	f.Satisfaction = f.Satisfaction*satisfactionSmooth + ratio*(1-satisfactionSmooth)
}
