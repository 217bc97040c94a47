package worldtest

import (
	"math"
	"testing"

	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/economy"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/weather"
	world "cityforge.dev/internal/sim/world"
)

func TestScenario_EmptyCity(t *testing.T) {
	h := NewHarness(t, 1)
	if got := h.W.AppState(); got != world.AppPlaying {
		t.Fatalf("app state=%s want Playing", got)
	}
	if n := h.W.CitizenCount(); n != 0 {
		t.Fatalf("citizens=%d", n)
	}
	if n := len(h.W.Buildings()); n != 0 {
		t.Fatalf("buildings=%d", n)
	}
	if n := h.RoadCells(); n != 0 {
		t.Fatalf("road cells=%d", n)
	}
	if got := h.W.Budget().Treasury; got != economy.StartingTreasury {
		t.Fatalf("treasury=%v want %v", got, economy.StartingTreasury)
	}
	h.RequireInvariants()
}

func TestScenario_RoadZoneUtilitiesBuild(t *testing.T) {
	h := NewHarness(t, 2)
	h.Do(
		actions.PlaceRoadLine(90, 100, 110, 100, grid.RoadLocal),
		actions.PlaceUtility("PowerPlant", 90, 100),
		actions.PlaceUtility("WaterTower", 91, 100),
		actions.ZoneRect(92, 98, 108, 98, grid.ZoneResidentialLow),
	)
	h.StepN(5)

	strip := grid.NewRect(92, 98, 108, 98)
	el := h.W.Eligible()
	for x := 92; x <= 108; x++ {
		if h.W.Grid().At(x, 98).HasBuilding() {
			continue
		}
		if !el.Contains(x, 98) {
			t.Fatalf("(%d,98) not eligible", x)
		}
	}
	var building bool
	for _, b := range h.BuildingsIn(strip) {
		if b.Construction != nil {
			building = true
			break
		}
	}
	if !building {
		t.Fatalf("no building under construction in the strip; buildings=%d", len(h.W.Buildings()))
	}
	h.RequireInvariants()
}

func TestScenario_ConstructionHaltsInStorm(t *testing.T) {
	h := NewHarness(t, 3)
	if _, err := h.W.DebugPlaceBuilding(40, 40, grid.ZoneResidentialLow, 500); err != nil {
		t.Fatalf("place: %v", err)
	}
	remaining := func() uint32 {
		t.Helper()
		bs := h.BuildingsIn(grid.NewRect(40, 40, 40, 40))
		if len(bs) != 1 || bs[0].Construction == nil {
			t.Fatalf("construction site missing: %+v", bs)
		}
		return bs[0].Construction.TicksRemaining
	}

	h.W.DebugSetWeather(weather.Storm)
	start := remaining()
	h.StepN(10)
	if got := remaining(); got != start {
		t.Fatalf("storm: ticks_remaining %d -> %d", start, got)
	}

	h.W.DebugSetWeather(weather.Sunny)
	h.StepN(5)
	if got := remaining(); got >= start {
		t.Fatalf("clear: ticks_remaining %d did not drop from %d", got, start)
	}
}

func TestScenario_LoanAmortization(t *testing.T) {
	h := NewHarness(t, 5)
	h.Do(actions.TakeLoan("Large"))
	book := h.W.Loans()
	if len(book.Loans) != 1 {
		t.Fatalf("loans=%d", len(book.Loans))
	}
	l := book.Loans[0]
	if l.Principal != 100_000 || l.Rate != 0.05 || l.TermMonths != 12 {
		t.Fatalf("terms=%+v", l)
	}
	for m := 0; m < 12; m++ {
		h.StepUntilMonth()
	}
	book = h.W.Loans()
	if got := book.Outstanding(); math.Abs(got) > 0.01 {
		t.Fatalf("outstanding=%v", got)
	}
	if len(book.Loans) != 0 {
		t.Fatalf("loan still open: %+v", book.Loans)
	}
	if want := l.MonthlyPayment * 12; math.Abs(book.TotalRepaid-want) > 0.01 {
		t.Fatalf("repaid=%.4f want %.4f", book.TotalRepaid, want)
	}
	h.RequireInvariants()
}

func TestScenario_SaveRoundTrip(t *testing.T) {
	h := NewHarnessWithConfig(t, world.Config{Seed: 6, FlatTerrain: true, CityName: "Lakeshore"})
	h.Do(
		actions.PlaceRoadLine(20, 20, 30, 20, grid.RoadLocal),
		actions.TakeLoan("Small"),
	)
	for _, x := range []int{21, 24, 27} {
		if _, err := h.W.DebugPlaceBuilding(x, 21, grid.ZoneResidentialLow, 0); err != nil {
			t.Fatalf("building at %d: %v", x, err)
		}
	}
	if _, err := h.W.DebugSpawnCitizen(21, 21); err != nil {
		t.Fatalf("citizen: %v", err)
	}
	hash := h.W.DebugRefreshHash()

	b, err := h.W.SaveBytes()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	fresh, err := world.New(world.Config{Seed: 99, FlatTerrain: true})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	if err := fresh.LoadBytes(b); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := fresh.City().Name; got != "Lakeshore" {
		t.Fatalf("name=%q", got)
	}
	if got := len(fresh.Buildings()); got != 3 {
		t.Fatalf("buildings=%d", got)
	}
	if got := fresh.CitizenCount(); got != 1 {
		t.Fatalf("citizens=%d", got)
	}
	if ls := fresh.Loans().Loans; len(ls) != 1 || ls[0].Principal != 10_000 {
		t.Fatalf("loans=%+v", ls)
	}
	if got := fresh.StateHash(); got != hash {
		t.Fatalf("hash=%x want %x", got, hash)
	}
	NewHarnessWithWorld(t, fresh).RequireInvariants()
}

func TestScenario_LongRunKeepsInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("long run")
	}
	h := NewHarness(t, 13)
	h.W.DebugSetTreasury(1e6)
	h.Do(
		actions.PlaceRoadLine(90, 100, 130, 100, grid.RoadLocal),
		actions.PlaceUtility("PowerPlant", 90, 101),
		actions.PlaceUtility("WaterTower", 91, 101),
		actions.ZoneRect(92, 98, 128, 99, grid.ZoneResidentialLow),
		actions.ZoneRect(112, 101, 128, 102, grid.ZoneCommercialLow),
		actions.PlaceService("FireHouse", 100, 102),
	)
	for _, x := range []int{94, 96, 98} {
		if _, err := h.W.DebugPlaceBuilding(x, 102, grid.ZoneResidentialLow, 0); err != nil {
			t.Fatalf("home at %d: %v", x, err)
		}
		for i := 0; i < 4; i++ {
			if _, err := h.W.DebugSpawnCitizen(x, 102); err != nil {
				t.Fatalf("citizen at %d: %v", x, err)
			}
		}
	}
	if _, err := h.W.DebugPlaceBuilding(104, 102, grid.ZoneCommercialLow, 0); err != nil {
		t.Fatalf("shop: %v", err)
	}
	for i := 1; i <= 2000; i++ {
		h.Step()
		if i%100 == 0 {
			h.RequireInvariants()
		}
	}
}
