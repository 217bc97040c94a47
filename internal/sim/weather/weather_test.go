package weather

import (
	"math"
	"testing"
)

func TestSeasonForDay(t *testing.T) {
	cases := []struct {
		day  uint32
		want Season
	}{
		{1, Spring}, {90, Spring}, {91, Summer}, {180, Summer}, {181, Autumn}, {271, Winter}, {360, Winter}, {361, Spring},
	}
	for _, c := range cases {
		if got := SeasonForDay(c.day); got != c.want {
			t.Fatalf("day %d: got %v want %v", c.day, got, c.want)
		}
	}
}

func TestDiurnal_MinAndMax(t *testing.T) {
	if got := Diurnal(6); math.Abs(float64(got+1)) > 1e-6 {
		t.Fatalf("06:00 should be the minimum, got %v", got)
	}
	if got := Diurnal(15); math.Abs(float64(got-1)) > 1e-6 {
		t.Fatalf("15:00 should be the maximum, got %v", got)
	}
	for h := float32(0); h < 24; h += 0.25 {
		if v := Diurnal(h); v < -1.0001 || v > 1.0001 {
			t.Fatalf("hour %v out of range: %v", h, v)
		}
	}
}

func TestUpdate_DeterministicPerDay(t *testing.T) {
	a, b := Default(), Default()
	for day := uint32(1); day < 400; day++ {
		for _, h := range []float32{0, 6, 12, 18} {
			ca := a.Update(day, h, 0)
			cb := b.Update(day, h, 0)
			if ca != cb || a != b {
				t.Fatalf("day %d hour %v diverged", day, h)
			}
		}
	}
}

func TestUpdate_SmoothsTowardTarget(t *testing.T) {
	w := Default()
	w.Temperature = 40
	w.Update(1, 12, 0)
	target := TargetTemperature(1, 12, w.Condition, 0)
	want := 40 + Smoothing*(target-40)
	if math.Abs(float64(w.Temperature-want)) > 1e-4 {
		t.Fatalf("temperature: got %v want %v", w.Temperature, want)
	}
}

func TestConstructionSpeed(t *testing.T) {
	w := Default()
	w.Condition = Storm
	if got := w.ConstructionSpeed(1); got != 0 {
		t.Fatalf("storm speed: %v", got)
	}
	w.Condition = HeavyRain
	if got := w.ConstructionSpeed(1); got != 0.5 {
		t.Fatalf("heavy rain speed: %v", got)
	}
	w.Condition = Sunny
	if got := w.ConstructionSpeed(1); got != 1 {
		t.Fatalf("normal speed: %v", got)
	}
	w.Temperature = -10
	if got := w.ConstructionSpeed(1); got != 0 {
		t.Fatalf("freezing should halt construction, got %v", got)
	}
}

func TestColdSnap_ThreeDays(t *testing.T) {
	var c ColdSnap
	day := uint32(300)
	for i := 0; i < 2; i++ {
		if started, _ := c.Observe(day, -15); started {
			t.Fatalf("started too early on day %d", day)
		}
		day++
	}
	started, _ := c.Observe(day, -15)
	if !started || !c.Active {
		t.Fatalf("cold snap should start on the third cold day")
	}
	if s, e := c.Observe(day, 5); s || e {
		t.Fatalf("same day must be ignored")
	}
	_, ended := c.Observe(day+1, 5)
	if !ended || c.Active {
		t.Fatalf("cold snap should end on a warm day")
	}
}

func TestColdDay_Deviation(t *testing.T) {
	if !IsColdDay(3, Summer) {
		t.Fatalf("11 below the summer mean should count")
	}
	if IsColdDay(-5, Winter) {
		t.Fatalf("-5 in winter is within the normal range")
	}
}

func TestPipeBurstProbability_Monotone(t *testing.T) {
	prev := 0.0
	for _, temp := range []float32{10, 0, -7, -18, -23, -30} {
		p := PipeBurstProbability(temp)
		if p < prev {
			t.Fatalf("probability must not fall as it gets colder: %v at %v", p, temp)
		}
		prev = p
	}
	if PipeBurstProbability(-25) != 0.10 {
		t.Fatalf("deep freeze probability")
	}
}

func TestClimate_CapsOffset(t *testing.T) {
	var c Climate
	c.AddEmissions(250_000)
	if c.Offset != 0.5 {
		t.Fatalf("offset: %v", c.Offset)
	}
	c.AddEmissions(1e9)
	if c.Offset != maxClimateRise {
		t.Fatalf("offset should cap, got %v", c.Offset)
	}
}
