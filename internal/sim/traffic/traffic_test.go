package traffic

import (
	"errors"
	"testing"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
)

// ring builds a rectangular road loop from (x0,y0) to (x1,y1).
func ring(t *testing.T, g *grid.WorldGrid, net *roads.Network, x0, y0, x1, y1 int) {
	t.Helper()
	for _, l := range [][]roads.RoadNode{
		roads.BresenhamLine(x0, y0, x1, y0),
		roads.BresenhamLine(x0, y1, x1, y1),
		roads.BresenhamLine(x0, y0, x0, y1),
		roads.BresenhamLine(x1, y0, x1, y1),
	} {
		for _, n := range l {
			net.PlaceRoad(g, n.X, n.Y, grid.RoadLocal)
		}
	}
}

func TestDensity_AddSaturatesAndDecays(t *testing.T) {
	d := NewDensity()
	d.Set(3, 3, 0xFFF0)
	d.Add(3, 3, 100)
	if d.Get(3, 3) != 0xFFFF {
		t.Fatalf("expected saturation, got %d", d.Get(3, 3))
	}
	d.Set(4, 4, 10)
	d.Decay(0.5)
	if d.Get(4, 4) != 5 {
		t.Fatalf("decay: got %d", d.Get(4, 4))
	}
	d.Add(-1, 0, 5)
	if d.Get(-1, 0) != 0 {
		t.Fatalf("out of bounds read should be 0")
	}
	var _ roads.DensityView = d
}

func TestGradeFor(t *testing.T) {
	cases := []struct {
		vc   float32
		want Grade
	}{
		{0, GradeA},
		{0.4, GradeB},
		{0.6, GradeC},
		{0.89, GradeD},
		{0.95, GradeE},
		{1.5, GradeF},
	}
	for _, c := range cases {
		if got := GradeFor(c.vc); got != c.want {
			t.Fatalf("GradeFor(%v)=%s want %s", c.vc, got, c.want)
		}
	}
}

func TestSummarize_CountsCongestion(t *testing.T) {
	g := grid.New()
	net := roads.NewNetwork()
	ring(t, g, net, 0, 0, 4, 4)
	d := NewDensity()
	d.Set(0, 0, 20)
	s := d.Summarize(g)
	if s.RoadCells != 16 {
		t.Fatalf("road cells: %d", s.RoadCells)
	}
	if s.CongestedCells != 1 || s.ByGrade[GradeF] != 1 {
		t.Fatalf("congestion summary: %+v", s)
	}
	if !d.Congested(g, 1, 1, 1) || d.Congested(g, 4, 4, 1) {
		t.Fatalf("Congested radius check wrong")
	}
}

func TestVehicle_TruckArrivesTransitLoops(t *testing.T) {
	route := []roads.RoadNode{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	truck := NewVehicle(FreightTruck, route)
	if truck.Advance(2) {
		t.Fatalf("truck arrived early")
	}
	if !truck.Advance(2) || !truck.Arrived() {
		t.Fatalf("truck should arrive past the end")
	}
	if _, ok := truck.Position(); ok {
		t.Fatalf("arrived truck has no position")
	}
	bus := NewVehicle(Bus, route)
	bus.Advance(4)
	if p, _ := bus.Position(); p != (roads.RoadNode{X: 1, Y: 0}) {
		t.Fatalf("bus should loop, at %v", p)
	}
}

func TestFreight_PlanAvoidsBans(t *testing.T) {
	g := grid.New()
	net := roads.NewNetwork()
	ring(t, g, net, 10, 10, 20, 14)
	csr := roads.BuildCSR(net, g, nil)

	f := NewFreight()
	ss := []Shipper{
		{X: 10, Y: 9, Zone: grid.ZoneIndustrial, Occupants: 100},
		{X: 20, Y: 9, Zone: grid.ZoneCommercialLow, Occupants: 100},
	}
	f.ComputeDemand(ss)
	if f.IndustrialDemand != 2 || f.CommercialDemand != 1.5 {
		t.Fatalf("demand: %v %v", f.IndustrialDemand, f.CommercialDemand)
	}
	f.SetBan(15, 10, true)
	trucks := f.PlanTrips(csr, net, ss, 0)
	if len(trucks) != 1 {
		t.Fatalf("expected one truck, got %d", len(trucks))
	}
	for _, n := range trucks[0].Route {
		if f.Banned(n) {
			t.Fatalf("route crosses banned cell %v", n)
		}
	}
	if f.TripsGenerated != 1 {
		t.Fatalf("trips generated: %d", f.TripsGenerated)
	}
	if cells := f.BannedCells(); len(cells) != 1 || cells[0] != grid.Index(15, 10) {
		t.Fatalf("banned cells: %v", cells)
	}
}

func TestFreight_MoveTruckLoadsDensity(t *testing.T) {
	d := NewDensity()
	cond := roads.NewCondition()
	cond.Pave(0, 0)
	v := NewVehicle(FreightTruck, []roads.RoadNode{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}})
	if MoveTruck(&v, d, cond, DefaultEquivalence) {
		t.Fatalf("arrived on first move")
	}
	if d.Get(0, 0) != 3 {
		t.Fatalf("truck equivalent: got %d want 3", d.Get(0, 0))
	}
	if cond.Grid.Get(0, 0) != 254 {
		t.Fatalf("wear: %d", cond.Grid.Get(0, 0))
	}
	if !MoveTruck(&v, d, cond, DefaultEquivalence) {
		t.Fatalf("truck should arrive")
	}
}

func TestFreight_SatisfactionSmooths(t *testing.T) {
	f := NewFreight()
	f.UpdateSatisfaction(0)
	if f.Satisfaction != 1 {
		t.Fatalf("no demand should be fully satisfied")
	}
	f.IndustrialDemand, f.CommercialDemand = 5, 5
	f.UpdateSatisfaction(0)
	if f.Satisfaction != 0.8 {
		t.Fatalf("smoothed satisfaction: %v", f.Satisfaction)
	}
}

func TestTransit_RouteBoardsAndCharges(t *testing.T) {
	g := grid.New()
	net := roads.NewNetwork()
	ring(t, g, net, 30, 30, 36, 34)
	csr := roads.BuildCSR(net, g, nil)
	tr := NewTransit()

	if _, err := tr.AddRoute(csr, Bus, []roads.RoadNode{{X: 30, Y: 30}}); !errors.Is(err, ErrTooFewStops) {
		t.Fatalf("one stop: %v", err)
	}
	if _, err := tr.AddRoute(csr, Bus, []roads.RoadNode{{X: 30, Y: 30}, {X: 33, Y: 32}}); !errors.Is(err, ErrStopNotOnRoad) {
		t.Fatalf("off-road stop: %v", err)
	}
	if _, err := tr.AddRoute(csr, FreightTruck, []roads.RoadNode{{X: 30, Y: 30}, {X: 36, Y: 34}}); err == nil {
		t.Fatalf("trucks cannot run routes")
	}

	r, err := tr.AddRoute(csr, Bus, []roads.RoadNode{{X: 30, Y: 30}, {X: 36, Y: 34}})
	if err != nil {
		t.Fatalf("AddRoute: %v", err)
	}
	if len(r.Path) != 20 {
		t.Fatalf("loop path: got %d cells want 20", len(r.Path))
	}
	vs := r.Spawn()
	if len(vs) != VehiclesPerRoute || vs[1].Index != 10 {
		t.Fatalf("spawn spacing: %+v", vs)
	}
	v := vs[0]
	if got := tr.MoveTransit(&v, 50, false); got != Bus.Capacity() {
		t.Fatalf("boarded %d want %d", got, Bus.Capacity())
	}
	if tr.CollectFares() != float64(Bus.Capacity())*FarePerRide || tr.FareRevenue != 0 {
		t.Fatalf("fares not collected")
	}
	if !tr.Access(32, 31) || tr.Access(100, 100) {
		t.Fatalf("stop access wrong")
	}
	if tr.MonthlyCost() != RouteMonthlyCost+VehiclesPerRoute*VehicleMonthlyCost {
		t.Fatalf("monthly cost: %v", tr.MonthlyCost())
	}
}
