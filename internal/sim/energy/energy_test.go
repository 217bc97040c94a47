package energy

import (
	"math"
	"testing"

	"cityforge.dev/internal/sim/weather"
)

var noon = Conditions{Season: weather.Summer, Condition: weather.Sunny, WindSpeed: 6, Temperature: 20, Hour: 12}

var params = DispatchParams{Hours: 4.0 / 60, RoundTrip: 0.85, ScarcityThreshold: 0.1, MaxScarcityMultiplier: 3}

func TestDispatch_MeritOrder(t *testing.T) {
	gens := []Generator{
		{Fuel: FuelGas, NameplateMW: 100, FuelCost: 40},
		{Fuel: FuelCoal, NameplateMW: 100, FuelCost: 30},
		{Fuel: FuelGeothermal, NameplateMW: 50, FuelCost: 0},
	}
	var out Grid
	Dispatch(120, gens, nil, noon, params, &out)
	if gens[2].DispatchedMW != 50 || gens[1].DispatchedMW != 70 || gens[0].DispatchedMW != 0 {
		t.Fatalf("dispatch order wrong: geo %v coal %v gas %v", gens[2].DispatchedMW, gens[1].DispatchedMW, gens[0].DispatchedMW)
	}
	if out.Blackout || out.UnservedMW != 0 || out.ServedMW != 120 {
		t.Fatalf("unexpected shortage: %+v", out)
	}
	if out.FuelCostAccrued <= 0 {
		t.Fatalf("fuel cost should accrue")
	}
}

func TestDispatch_BatteryCoversShortfallAndCharges(t *testing.T) {
	gens := []Generator{{Fuel: FuelCoal, NameplateMW: 10, FuelCost: 30}}
	bats := []Battery{{CapacityMWh: 10, StoredMWh: 1}}
	var out Grid
	Dispatch(12, gens, bats, noon, params, &out)
	if out.Blackout {
		t.Fatalf("battery should cover a 2 MW gap for 4 minutes")
	}
	if bats[0].StoredMWh >= 1 {
		t.Fatalf("battery should have discharged")
	}

	bats[0].StoredMWh = 0
	Dispatch(5, gens, bats, noon, params, &out)
	want := float32(5) * params.Hours * params.RoundTrip
	if math.Abs(float64(bats[0].StoredMWh-want)) > 1e-5 {
		t.Fatalf("charge: got %v want %v", bats[0].StoredMWh, want)
	}
}

func TestDispatch_BlackoutAndScarcity(t *testing.T) {
	gens := []Generator{{Fuel: FuelCoal, NameplateMW: 10, FuelCost: 30, Outage: true}}
	var out Grid
	Dispatch(5, gens, nil, noon, params, &out)
	if !out.Blackout || out.UnservedMW != 5 {
		t.Fatalf("outage should black out: %+v", out)
	}
	if out.PriceMultiplier != 3 {
		t.Fatalf("scarcity multiplier should max out, got %v", out.PriceMultiplier)
	}
	if got := ScarcityMultiplier(0.05, 0.1, 3); math.Abs(float64(got-2)) > 1e-6 {
		t.Fatalf("half reserve multiplier: %v", got)
	}
}

func TestCapacityFactor(t *testing.T) {
	night := noon
	night.Hour = 2
	if CapacityFactor(FuelSolar, night) != 0 {
		t.Fatalf("no solar at night")
	}
	if CapacityFactor(FuelSolar, noon) <= 0.5 {
		t.Fatalf("sunny summer noon should be strong")
	}
	gale := noon
	gale.WindSpeed = 30
	if CapacityFactor(FuelWind, gale) != 0 {
		t.Fatalf("wind cut-out")
	}
}

func TestTimeOfUse(t *testing.T) {
	if TimeOfUse(18) != PeakMultiplier || TimeOfUse(2) != OffPeakMultiplier || TimeOfUse(12) != 1 {
		t.Fatalf("time of use bands")
	}
}

func TestShed_ReversePriority(t *testing.T) {
	cs := []Consumer{
		{X: 1, Y: 1, KWhMonth: 720_000, Priority: PriorityResidential},
		{X: 2, Y: 1, KWhMonth: 720_000, Priority: PriorityIndustrial},
		{X: 3, Y: 1, KWhMonth: 720_000, Priority: PriorityCritical},
	}
	got := Shed(cs, 1)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("industrial should shed first: %v", got)
	}
	got = Shed(cs, 5)
	for _, i := range got {
		if cs[i].Priority == PriorityCritical {
			t.Fatalf("critical load must never shed")
		}
	}
}
