package traffic

import (
	"errors"
	"fmt"

	"cityforge.dev/internal/sim/roads"
)

const (
	MaxStopsPerRoute   = 20
	MaxWalkDistance    = 10
	VehiclesPerRoute   = 2
	RouteMonthlyCost   = 400.0
	VehicleMonthlyCost = 100.0
	FarePerRide        = 2.0
)

var (
	ErrTooFewStops   = errors.New("route needs at least two stops")
	ErrTooManyStops  = errors.New("route has too many stops")
	ErrStopNotOnRoad = errors.New("stop is not on a road")
	ErrUnreachable   = errors.New("stops are not connected")
)

// Route is a transit line. Path is the looped cell sequence through all stops.
type Route struct {
	ID    uint32
	Kind  VehicleKind
	Stops []roads.RoadNode
	Path  []roads.RoadNode
	// Riders counts boardings since the last monthly reset.
	Riders uint64
}

// Transit owns the route table. Vehicles serving a route are entities.
type Transit struct {
	Routes []Route
	NextID uint32
	// FareRevenue accrues until the monthly economy tick collects it.
	FareRevenue float64
}

func NewTransit() *Transit { return &Transit{NextID: 1} }

func (t *Transit) Reset() { *t = *NewTransit() }

// AddRoute routes a looped line through stops and returns it. The world
// spawns VehiclesPerRoute vehicles with Spawn.
func (t *Transit) AddRoute(csr *roads.CSRGraph, kind VehicleKind, stops []roads.RoadNode) (*Route, error) {
	if !kind.IsTransit() {
		return nil, fmt.Errorf("%s cannot run a route", kind)
	}
	if len(stops) < 2 {
		return nil, ErrTooFewStops
	}
	if len(stops) > MaxStopsPerRoute {
		return nil, ErrTooManyStops
	}
	for _, s := range stops {
		if _, ok := csr.NodeIndex(s); !ok {
			return nil, fmt.Errorf("%w: (%d,%d)", ErrStopNotOnRoad, s.X, s.Y)
		}
	}
	var path []roads.RoadNode
	for i := range stops {
		leg := csr.FindPath(stops[i], stops[(i+1)%len(stops)])
		if len(leg) == 0 {
			return nil, fmt.Errorf("%w: stop %d", ErrUnreachable, i)
		}
		path = append(path, leg[:len(leg)-1]...)
	}
	r := Route{ID: t.NextID, Kind: kind, Stops: append([]roads.RoadNode(nil), stops...), Path: path}
	t.NextID++
	t.Routes = append(t.Routes, r)
	return &t.Routes[len(t.Routes)-1], nil
}

func (t *Transit) Route(id uint32) (*Route, bool) {
	for i := range t.Routes {
		if t.Routes[i].ID == id {
			return &t.Routes[i], true
		}
	}
	return nil, false
}

func (t *Transit) RemoveRoute(id uint32) bool {
	for i := range t.Routes {
		if t.Routes[i].ID == id {
			t.Routes = append(t.Routes[:i], t.Routes[i+1:]...)
			return true
		}
	}
	return false
}

// Spawn returns the vehicles for a route, spaced evenly along its path.
func (r *Route) Spawn() []Vehicle {
	out := make([]Vehicle, VehiclesPerRoute)
	for i := range out {
		v := NewVehicle(r.Kind, r.Path)
		v.RouteID = r.ID
		v.Index = i * len(r.Path) / VehiclesPerRoute
		out[i] = v
	}
	return out
}

// IsStop reports whether n is one of the route's stops.
func (r *Route) IsStop(n roads.RoadNode) bool {
	for _, s := range r.Stops {
		if s == n {
			return true
		}
	}
	return false
}

// Access reports whether (x,y) is within walking distance of any stop.
func (t *Transit) Access(x, y int) bool {
	p := roads.RoadNode{X: x, Y: y}
	for i := range t.Routes {
		for _, s := range t.Routes[i].Stops {
			if roads.Manhattan(p, s) <= MaxWalkDistance {
				return true
			}
		}
	}
	return false
}

// MoveTransit advances a transit vehicle. At a stop it lets off riders and
// boards up to waiting; boardings are credited to the route and fares.
// With free transit fares are not collected.
func (t *Transit) MoveTransit(v *Vehicle, waiting uint32, freeFare bool) uint32 {
	r, ok := t.Route(v.RouteID)
	if !ok {
		return 0
	}
	var boarded uint32
	if n, ok := v.Position(); ok && r.IsStop(n) {
		v.Passengers /= 2
		boarded = min(waiting, v.Capacity-v.Passengers)
		v.Passengers += boarded
		r.Riders += uint64(boarded)
		if !freeFare {
			t.FareRevenue += float64(boarded) * FarePerRide
		}
	}
	v.Advance(v.Kind.Speed())
	return boarded
}

// MonthlyCost is the operating cost of all routes and their vehicles.
func (t *Transit) MonthlyCost() float64 {
	n := float64(len(t.Routes))
	return n*RouteMonthlyCost + n*VehiclesPerRoute*VehicleMonthlyCost
}

// CollectFares returns and zeroes accrued fare revenue.
func (t *Transit) CollectFares() float64 {
	f := t.FareRevenue
	t.FareRevenue = 0
	return f
}
