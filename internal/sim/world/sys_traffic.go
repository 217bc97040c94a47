package world

import (
	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/citizen"
	"cityforge.dev/internal/sim/economy"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
	"cityforge.dev/internal/sim/traffic"
)

const (
	transitMoveInterval = 5
	// stopCatchment is the Manhattan radius around a stop whose transit
	// commuters count as waiting.
	stopCatchment = 2
	// roadRepairPerSlowTick is the repair applied at full road funding.
	roadRepairPerSlowTick = 2
)

// sysTraffic decays density and loads the cells under every driving
// commuter.
func (w *World) sysTraffic() {
	w.density.Decay(w.tun.Traffic.DensityDecay)
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		e := q.Entity()
		if !w.ecs.states.Get(e).IsCommuting() || w.ecs.modes.Get(e).Mode != citizen.Drive {
			continue
		}
		p := w.ecs.positions.Get(e)
		x, y := grid.WorldToGrid(p.X, p.Y)
		if w.grid.At(x, y).Type == grid.Road {
			w.density.Add(x, y, 1)
		}
	}
}

type vehicleRef struct {
	e ecs.Entity
	v *traffic.Vehicle
}

func (w *World) vehiclesOf(match func(traffic.VehicleKind) bool) []vehicleRef {
	var out []vehicleRef
	for _, e := range w.ecs.vehicleEntities() {
		v := w.ecs.vehicles.Get(e)
		if match(v.Kind) {
			out = append(out, vehicleRef{e, v})
		}
	}
	return out
}

func isTruck(k traffic.VehicleKind) bool { return k == traffic.FreightTruck }

func (w *World) shippers() []traffic.Shipper {
	var out []traffic.Shipper
	for _, e := range w.ecs.buildingEntities() {
		b := w.ecs.buildings.Get(e)
		if !w.ecs.operational(e) || !(b.Zone == grid.ZoneIndustrial || b.Zone.IsCommercial()) {
			continue
		}
		out = append(out, traffic.Shipper{X: b.GridX, Y: b.GridY, Zone: b.Zone, Occupants: b.Occupants})
	}
	return out
}

// sysFreight plans new truck trips every FreightEveryTicks and moves the
// fleet every FreightMoveInterval. Trucks load the density grid at the
// configured equivalence factor.
func (w *World) sysFreight() {
	if w.every(w.tun.Traffic.FreightEveryTicks) {
		ss := w.shippers()
		w.freight.ComputeDemand(ss)
		w.freight.IndustrialDemand *= w.tun.Traffic.FreightDemandScale
		w.freight.CommercialDemand *= w.tun.Traffic.FreightDemandScale
		active := len(w.vehiclesOf(isTruck))
		// Bans are only enforced while the heavy traffic ban is enacted.
		bans := w.freight.Bans
		if !w.policies.Has(economy.PolicyHeavyTrafficBan) {
			w.freight.Bans = nil
		}
		w.refreshRoads()
		trucks := w.freight.PlanTrips(w.csr, w.network, ss, active)
		w.freight.Bans = bans
		for _, v := range trucks {
			w.spawnVehicle(v, 0)
		}
		w.freight.UpdateSatisfaction(active + len(trucks))
	}
	if !w.every(traffic.FreightMoveInterval) {
		return
	}
	var done []ecs.Entity
	for _, r := range w.vehiclesOf(isTruck) {
		if traffic.MoveTruck(r.v, w.density, w.condition, w.tun.Traffic.FreightEquivFactor) {
			done = append(done, r.e)
		}
	}
	for _, e := range done {
		w.ecs.remove(e)
	}
	w.freight.Completed(len(done))
}

// transitWaiting counts commuters travelling by transit per cell.
func (w *World) transitWaiting() map[int]uint32 {
	out := map[int]uint32{}
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		e := q.Entity()
		if !w.ecs.states.Get(e).IsCommuting() || w.ecs.modes.Get(e).Mode != citizen.Transit {
			continue
		}
		p := w.ecs.positions.Get(e)
		x, y := grid.WorldToGrid(p.X, p.Y)
		out[grid.Index(x, y)]++
	}
	return out
}

func waitingNear(counts map[int]uint32, n roads.RoadNode) uint32 {
	var total uint32
	for dy := -stopCatchment; dy <= stopCatchment; dy++ {
		for dx := -stopCatchment; dx <= stopCatchment; dx++ {
			x, y := n.X+dx, n.Y+dy
			if abs(dx)+abs(dy) <= stopCatchment && grid.InBounds(x, y) {
				total += counts[grid.Index(x, y)]
			}
		}
	}
	return total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// sysTransit moves buses, trams and trains along their loops, boarding
// riders at stops.
func (w *World) sysTransit() {
	if !w.every(transitMoveInterval) || len(w.transit.Routes) == 0 {
		return
	}
	counts := w.transitWaiting()
	free := w.policies.Has(economy.PolicyFreeTransit)
	for _, r := range w.vehiclesOf(traffic.VehicleKind.IsTransit) {
		if n, ok := r.v.Position(); ok {
			if r.v.Kind == traffic.Bus {
				w.density.Add(n.X, n.Y, 2)
			}
			w.transit.MoveTransit(r.v, waitingNear(counts, n), free)
		}
	}
}

// sysRoadCondition wears roads by traffic and repairs them in proportion to
// transport funding on the slow tick.
func (w *World) sysRoadCondition() {
	if !w.slowTick() {
		return
	}
	w.condition.Degrade(w.grid, w.density)
	q := economy.QualityFactor(w.ext.Services.Slider("transport"))
	if amount := int(roadRepairPerSlowTick*q + 0.5); amount > 0 {
		w.condition.Repair(w.grid, amount)
	}
}
