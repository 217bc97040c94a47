package traffic

import (
	"fmt"

	"cityforge.dev/internal/sim/roads"
)

type VehicleKind uint8

const (
	Bus VehicleKind = iota
	Tram
	Train
	FreightTruck
	Emergency
)

func (k VehicleKind) String() string {
	switch k {
	case Bus:
		return "Bus"
	case Tram:
		return "Tram"
	case Train:
		return "Train"
	case FreightTruck:
		return "FreightTruck"
	case Emergency:
		return "Emergency"
	default:
		return fmt.Sprintf("VehicleKind(%d)", uint8(k))
	}
}

func (k VehicleKind) Valid() bool { return k <= Emergency }

// Capacity is the passenger capacity; trucks and emergency vehicles carry none.
func (k VehicleKind) Capacity() uint32 {
	switch k {
	case Bus:
		return 30
	case Tram:
		return 120
	case Train:
		return 400
	default:
		return 0
	}
}

// Speed is the number of route cells a vehicle advances per move.
func (k VehicleKind) Speed() int {
	switch k {
	case Train, Emergency, FreightTruck:
		return 2
	default:
		return 1
	}
}

// IsTransit reports whether the kind runs a fixed looping route.
func (k VehicleKind) IsTransit() bool { return k <= Train }

// Vehicle is the ECS component for anything moving along a fixed route.
// Transit vehicles loop; everything else stops at the end of its route.
type Vehicle struct {
	Kind       VehicleKind
	Route      []roads.RoadNode
	Index      int
	Capacity   uint32
	Passengers uint32
	// RouteID links a transit vehicle to its line; 0 for trucks.
	RouteID uint32
}

func NewVehicle(kind VehicleKind, route []roads.RoadNode) Vehicle {
	return Vehicle{Kind: kind, Route: route, Capacity: kind.Capacity()}
}

// Position is the current route cell; false once the route is finished.
func (v *Vehicle) Position() (roads.RoadNode, bool) {
	if v.Index < 0 || v.Index >= len(v.Route) {
		return roads.RoadNode{}, false
	}
	return v.Route[v.Index], true
}

func (v *Vehicle) Arrived() bool { return v.Index >= len(v.Route) }

// Advance moves steps cells along the route and reports whether a
// non-looping vehicle has arrived.
func (v *Vehicle) Advance(steps int) bool {
	if len(v.Route) == 0 {
		return true
	}
	if v.Kind.IsTransit() {
		v.Index = (v.Index + steps) % len(v.Route)
		return false
	}
	v.Index = min(v.Index+steps, len(v.Route))
	return v.Arrived()
}
