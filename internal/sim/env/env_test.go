package env

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/rng"
	"cityforge.dev/internal/sim/weather"
)

type marker struct{}

func buildingEntity(t *testing.T) ecs.Entity {
	t.Helper()
	w := ecs.NewWorld()
	return ecs.NewMap[marker](w).NewEntity(&marker{})
}

func TestPollution_ZeroWindIsIsotropic(t *testing.T) {
	out := grid.NewU8()
	ComputePollution([]EmissionSource{{Kind: EmitIndustrial, X: 128, Y: 128, Q: 100}}, DefaultPlume(), out)
	c := out.Get(128, 128)
	if c != 100 {
		t.Fatalf("center: got %d want 100", c)
	}
	e, w, n, s := out.Get(131, 128), out.Get(125, 128), out.Get(128, 125), out.Get(128, 131)
	if e != w || e != n || e != s {
		t.Fatalf("not isotropic: e=%d w=%d n=%d s=%d", e, w, n, s)
	}
	if e == 0 || e >= c {
		t.Fatalf("expected falloff, got %d at distance 3", e)
	}
}

func TestPollution_WindShiftsDownwind(t *testing.T) {
	out := grid.NewU8()
	p := DefaultPlume()
	p.WindDir = 0
	p.WindSpeed = 10
	ComputePollution([]EmissionSource{{Kind: EmitPowerPlant, X: 100, Y: 100, Q: 150}}, p, out)
	down, up := out.Get(104, 100), out.Get(96, 100)
	if down <= up {
		t.Fatalf("downwind %d should exceed upwind %d", down, up)
	}
}

func TestPollution_PolicyMultiplier(t *testing.T) {
	out := grid.NewU8()
	p := DefaultPlume()
	p.Multiplier[EmitIndustrial] = 0
	ComputePollution([]EmissionSource{{Kind: EmitIndustrial, X: 10, Y: 10, Q: 200}}, p, out)
	if !out.IsZero() {
		t.Fatalf("zero multiplier should suppress source")
	}
}

func TestNoise_Attenuation(t *testing.T) {
	if got := Attenuate(70, 10); math.Abs(float64(got-50)) > 1e-4 {
		t.Fatalf("Attenuate(70,10)=%v want 50", got)
	}
	if got := Attenuate(70, 0.5); got != 70 {
		t.Fatalf("distance below 1 should not amplify: %v", got)
	}
	if got := Attenuate(20, 1000); got != 0 {
		t.Fatalf("expected floor at 0, got %v", got)
	}
}

func TestNoise_BuildingsBlock(t *testing.T) {
	g := grid.New()
	open := grid.NewU8()
	src := []NoiseSource{{X: 50, Y: 50, DB: IndustrialDB}}
	ComputeNoise(g, src, open)

	g.At(53, 50).Building = buildingEntity(t)
	blocked := grid.NewU8()
	ComputeNoise(g, src, blocked)

	if blocked.Get(56, 50) >= open.Get(56, 50) {
		t.Fatalf("barrier did not reduce noise: open=%d blocked=%d", open.Get(56, 50), blocked.Get(56, 50))
	}
	if blocked.Get(44, 50) != open.Get(44, 50) {
		t.Fatalf("barrier affected the other side")
	}
}

func TestWater_TreatmentReducesLoad(t *testing.T) {
	g := grid.New()
	for x := 0; x < grid.Width; x++ {
		g.At(x, 20).Type = grid.Water
	}
	raw, treated := grid.NewU8(), grid.NewU8()
	ComputeWaterPollution(g, []WaterSource{{X: 30, Y: 22, Load: LoadSewageOutfall}}, raw)
	ComputeWaterPollution(g, []WaterSource{{X: 30, Y: 22, Load: LoadSewageOutfall, Treatment: TreatmentAdvanced}}, treated)
	rawSum, treatedSum := rowSum(raw, 20), rowSum(treated, 20)
	if rawSum == 0 {
		t.Fatalf("outfall did not reach water")
	}
	if treatedSum >= rawSum {
		t.Fatalf("treatment should reduce: raw=%d treated=%d", rawSum, treatedSum)
	}
	if raw.Get(30, 22) != 0 {
		t.Fatalf("land cell picked up water pollution")
	}
	if TreatmentTertiary.Reduction() != 0.95 {
		t.Fatalf("tertiary reduction: %v", TreatmentTertiary.Reduction())
	}
}

func rowSum(g *grid.U8Grid, y int) int {
	n := 0
	for x := 0; x < grid.Width; x++ {
		n += int(g.Get(x, y))
	}
	return n
}

func TestDiffuse_ConservesFlatField(t *testing.T) {
	vals := make([]float32, grid.NumCells)
	for i := range vals {
		vals[i] = 7
	}
	Diffuse(vals, 3, 0.5, nil)
	for i, v := range vals {
		if v != 7 {
			t.Fatalf("cell %d changed to %v", i, v)
		}
	}
}

func TestFlood_ClearsAfterCalmUpdates(t *testing.T) {
	g := grid.New()
	sw := NewStormwater()
	f := NewFlood()
	sw.Runoff.Set(40, 40, OverflowTrigger+300)
	f.Update(g, sw, 1, nil, false)
	if f.Depth.IsZero() {
		t.Fatalf("overflow did not seed depth")
	}
	sw.Runoff.Clear()
	for i := 0; i < FloodClearUpdates-1; i++ {
		f.Update(g, sw, 0, nil, false)
		if f.Depth.IsZero() {
			t.Fatalf("cleared early after %d calm updates", i+1)
		}
	}
	f.Update(g, sw, 0, nil, false)
	if !f.Depth.IsZero() || f.Active {
		t.Fatalf("flood should be clear after %d calm updates", FloodClearUpdates)
	}
}

func TestFlood_LeveeHoldsBelowDesignHeight(t *testing.T) {
	g := grid.New()
	sw := NewStormwater()
	f := NewFlood()
	prot := &Protection{}
	for _, d := range dirs {
		prot.Add(Barrier{X: 60 + d[0], Y: 60 + d[1], Kind: Levee})
	}
	f.Depth.Set(60, 60, 4)
	f.Update(g, sw, 0, prot, false)
	for _, d := range dirs {
		if v := f.Depth.Get(60+d[0], 60+d[1]); v != 0 {
			t.Fatalf("water crossed levee at %v: %v", d, v)
		}
	}
}

func TestFlood_OvertoppingAmplifiesDownstream(t *testing.T) {
	const depth = 20
	downstream := func(prot *Protection) (got, left float32) {
		g := grid.New()
		f := NewFlood()
		snap := make([]float32, grid.NumCells)
		snap[grid.Index(60, 60)] = depth
		// Every neighbour but (61,60) already stands above the source surface.
		for _, d := range dirs {
			if d != [2]int{1, 0} {
				snap[grid.Index(60+d[0], 60+d[1])] = 2 * depth
			}
		}
		copy(f.Depth.Cells, snap)
		f.spread(g, snap, prot, 60, 60)
		return f.Depth.Get(61, 60), f.Depth.Get(60, 60)
	}

	open, openLeft := downstream(nil)
	if want := float32(depth * SpreadRate); open != want {
		t.Fatalf("open ground got %v want %v", open, want)
	}
	if openLeft+open != depth {
		t.Fatalf("open ground lost water: %v + %v", openLeft, open)
	}

	intact := &Protection{}
	intact.Add(Barrier{X: 61, Y: 60, Kind: Levee})
	over, overLeft := downstream(intact)
	if want := open * OvertopAmplification; math.Abs(float64(over-want)) > 1e-4 {
		t.Fatalf("overtopped levee got %v want %v", over, want)
	}
	if overLeft+over != depth {
		t.Fatalf("overtopping created water: %v + %v", overLeft, over)
	}

	breached := &Protection{}
	breached.Add(Barrier{X: 61, Y: 60, Kind: Levee, Failed: true})
	if got, _ := downstream(breached); got != open {
		t.Fatalf("breached levee got %v want %v", got, open)
	}
}

func TestDamageFraction_Curves(t *testing.T) {
	if got := DamageFraction(grid.ZoneResidentialLow, 3); math.Abs(float64(got-0.35)) > 1e-6 {
		t.Fatalf("residential at 3ft: %v", got)
	}
	if got := DamageFraction(grid.ZoneIndustrial, 2); math.Abs(float64(got-0.09)) > 1e-6 {
		t.Fatalf("industrial at 2ft: %v", got)
	}
	if got := DamageFraction(grid.ZoneOffice, 50); got != 0.80 {
		t.Fatalf("office beyond curve: %v", got)
	}
	if DamageFraction(grid.ZoneNone, 5) != 0 {
		t.Fatalf("unzoned cells take no damage")
	}
}

func TestSnow_AccumulatesAndPlows(t *testing.T) {
	g := grid.New()
	g.At(5, 5).Type = grid.Road
	g.At(5, 5).Road = grid.RoadLocal
	s := NewSnow()
	w := &weather.Weather{Condition: weather.Snow, Temperature: -5, Precipitation: 10}
	s.Update(g, w, false)
	if got := s.Depth.Get(6, 6); got != 5 {
		t.Fatalf("depth after one update: %v", got)
	}
	if n := s.Update(g, w, true); n == 0 {
		t.Fatalf("expected road cells plowed")
	}
	if s.Depth.Get(5, 5) >= s.Depth.Get(6, 6) {
		t.Fatalf("plowed road should be shallower")
	}
	for i := 0; i < 10; i++ {
		s.Update(g, w, false)
	}
	if s.Depth.Get(6, 6) != MaxSnowDepth {
		t.Fatalf("depth not capped: %v", s.Depth.Get(6, 6))
	}
	if f := SnowSpeedFactor(MaxSnowDepth); math.Abs(float64(f-0.2)) > 1e-6 {
		t.Fatalf("speed factor floor: %v", f)
	}
}

func TestForestFire_RainPutsOut(t *testing.T) {
	g := grid.New()
	for i := range g.Cells {
		g.Cells[i].Elevation = 0.6
	}
	ff := NewForestFire()
	ff.Intensity.Set(70, 70, 20)
	w := &weather.Weather{Condition: weather.Storm}
	r := rng.New(3)
	ff.Update(g, w, r)
	if ff.Intensity.Get(70, 70) != 3 {
		t.Fatalf("storm should cut intensity to 3, got %d", ff.Intensity.Get(70, 70))
	}
	ff.Update(g, w, r)
	if ff.Intensity.Get(70, 70) != 0 {
		t.Fatalf("fire should be out")
	}
}

func TestGarbage_LandfillWarnings(t *testing.T) {
	gb := NewGarbage()
	gb.Landfill.Capacity = 100
	all := func(x, y int) bool { return true }
	if tier := gb.Update([]Source{{X: 1, Y: 1, V: 80}}, all, 1); tier != 1 {
		t.Fatalf("expected first warning tier, got %d", tier)
	}
	if tier := gb.Update(nil, all, 1); tier != 0 {
		t.Fatalf("warning repeated: %d", tier)
	}
	if tier := gb.Update([]Source{{X: 1, Y: 1, V: 20}}, all, 1); tier != 4 {
		t.Fatalf("full landfill tier: %d", tier)
	}
	none := func(x, y int) bool { return false }
	gb.Update([]Source{{X: 3, Y: 3, V: 2}}, none, 1)
	if gb.Level.Get(3, 3) == 0 {
		t.Fatalf("uncollected garbage should accumulate")
	}
}

func TestUHI_NightAmplifies(t *testing.T) {
	g := grid.New()
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			g.At(x, y).Type = grid.Road
		}
	}
	level := func(x, y int) uint8 { return 0 }
	day, night := grid.NewF32(), grid.NewF32()
	ComputeUHI(g, level, false, day)
	ComputeUHI(g, level, true, night)
	if day.Get(5, 5) <= 0 {
		t.Fatalf("paved block should be warmer: %v", day.Get(5, 5))
	}
	if night.Get(5, 5) != 2*day.Get(5, 5) {
		t.Fatalf("night %v should double day %v", night.Get(5, 5), day.Get(5, 5))
	}
	if day.Get(100, 100) >= 0 {
		t.Fatalf("open grass should be cooler: %v", day.Get(100, 100))
	}
}
