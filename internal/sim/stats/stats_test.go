package stats

import (
	"math"
	"testing"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/utilities"
)

func TestRing_WrapsAtCapacity(t *testing.T) {
	var r Ring
	for i := 0; i < HistoryCapacity+10; i++ {
		r.Push(float64(i))
	}
	if r.Len() != HistoryCapacity {
		t.Fatalf("len=%d", r.Len())
	}
	vs := r.Values()
	if vs[0] != 10 || vs[len(vs)-1] != HistoryCapacity+9 {
		t.Fatalf("window=[%v..%v]", vs[0], vs[len(vs)-1])
	}
	if slope := r.Trend(20); math.Abs(slope-1) > 1e-9 {
		t.Fatalf("trend=%v want 1", slope)
	}

	var back Ring
	back.Load(vs)
	if last, _ := back.Last(); last != HistoryCapacity+9 || back.Len() != HistoryCapacity {
		t.Fatalf("reload last=%v len=%d", last, back.Len())
	}
}

func TestSummarize_Averages(t *testing.T) {
	var s CityStats
	s.Summarize([]Sample{{Happiness: 40, Health: 90, Salary: 1500}, {Happiness: 60, Health: 70, Salary: 3500}})
	if s.AvgHappiness != 50 || s.AvgHealth != 80 || s.AvgSalary != 2500 {
		t.Fatalf("avg happy=%v health=%v salary=%v", s.AvgHappiness, s.AvgHealth, s.AvgSalary)
	}
	if s.HappinessStdDev <= 0 {
		t.Fatalf("stddev=%v", s.HappinessStdDev)
	}
	s.Summarize(nil)
	if s.AvgHappiness != 0 {
		t.Fatalf("empty summarize kept %v", s.AvgHappiness)
	}
}

func TestCoverageShare(t *testing.T) {
	g := grid.New()
	g.At(1, 1).Zone = grid.ZoneResidentialLow
	g.At(2, 1).Zone = grid.ZoneResidentialLow
	g.At(1, 1).HasPower = true
	got := CoverageShare(g, func(c *grid.Cell) bool { return c.Zone != grid.ZoneNone }, func(c *grid.Cell) bool { return c.HasPower })
	if got != 0.5 {
		t.Fatalf("share=%v want 0.5", got)
	}
}

func TestMilestones_ReachedInOrderAndKept(t *testing.T) {
	var p Progress
	if got := p.Check(100); len(got) != 0 {
		t.Fatalf("100 pop reached %v", got)
	}
	got := p.Check(2700)
	if len(got) != 3 || got[0] != SmallSettlement || got[2] != LargeVillage {
		t.Fatalf("2700 pop reached %v", got)
	}
	if p.Check(10) != nil || p.Current != LargeVillage {
		t.Fatalf("tier lost after decline: %v", p.Current)
	}
	if f := p.Fraction(3800); math.Abs(float64(f)-0.5) > 1e-6 {
		t.Fatalf("fraction=%v", f)
	}
	if TierFor(80000) != Megalopolis || TierFor(79999) != LargeMetropolis {
		t.Fatalf("TierFor boundaries wrong")
	}
	p.Check(1_000_000)
	if p.Fraction(0) != 1 {
		t.Fatalf("final tier fraction should be 1")
	}
}

func TestUnlockTiers(t *testing.T) {
	if ServiceTier(services.FireHouse) != Hamlet || ServiceTier(services.Airport) != City {
		t.Fatalf("service tiers wrong")
	}
	if UtilityTier(utilities.PowerPlant) != Hamlet || UtilityTier(utilities.NuclearPlant) != LargeMetropolis {
		t.Fatalf("utility tiers wrong")
	}
	if msg := City.Message(); msg != "Milestone reached: City (20000 population)! Airport unlocked." {
		t.Fatalf("message=%q", msg)
	}
}

func TestAchievements_UnlockOnceAndTrackDisasters(t *testing.T) {
	tr := NewTracker()
	s := &CityStats{Population: 1200, RoadCells: 10}
	got := tr.Check(100, AchievementInputs{Stats: s, SlowInterval: 100, DisasterActive: true})
	if len(got) != 1 || got[0] != Population1K {
		t.Fatalf("first check=%v", got)
	}
	got = tr.Check(200, AchievementInputs{Stats: s, SlowInterval: 100, TradeBalance: 5})
	if len(got) != 2 || got[0] != TradeSurplus || got[1] != DisasterSurvivor {
		t.Fatalf("second check=%v", got)
	}
	if got := tr.Check(300, AchievementInputs{Stats: s, SlowInterval: 100, TradeBalance: 5}); len(got) != 0 {
		t.Fatalf("re-unlocked %v", got)
	}
	if Population1K.Reward() != "$5,000 treasury bonus" {
		t.Fatalf("reward=%q", Population1K.Reward())
	}
}

func TestNotifications_PriorityAndExpiry(t *testing.T) {
	var n Notifications
	n.Push("new building", Info, nil, 1, 8, 0)
	n.Push("fire!", Emergency, &Location{X: 3, Y: 4}, 1, 8, 5)
	n.Push("budget", Warning, nil, 1, 8, 10)
	q := n.Queue()
	if q[0].Text != "fire!" || q[1].Text != "budget" || q[2].Text != "new building" {
		t.Fatalf("queue order=%v", q)
	}
	n.Sweep(600)
	if len(n.Active) != 2 {
		t.Fatalf("info should expire at 600: %d active", len(n.Active))
	}
	n.Sweep(100000)
	if len(n.Active) != 1 || n.Active[0].Priority != Emergency {
		t.Fatalf("emergency must persist: %v", n.Active)
	}
	if !n.Dismiss(n.Active[0].ID) || len(n.Active) != 0 {
		t.Fatalf("dismiss failed")
	}
	if len(n.Journal) != 3 {
		t.Fatalf("journal=%d", len(n.Journal))
	}
}

func TestObserve_Warnings(t *testing.T) {
	s := &CityStats{Population: 100, Employed: 60, Unemployed: 40, Homeless: 5, Buildings: 4, PowerCoverage: 1, WaterCoverage: 0.5}
	o := Observe(s, ObservationInputs{Treasury: 500, TradeBalance: -1})
	want := []CityWarning{TradeDeficit, LowTreasury, WaterShortage, HighUnemployment, Homelessness}
	got := o.Warnings.List()
	if len(got) != len(want) {
		t.Fatalf("warnings=%v", o.Warnings)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("warnings=%v", o.Warnings)
		}
	}
	if o.Warnings.Has(PowerShortage) {
		t.Fatalf("power fully covered")
	}
}
