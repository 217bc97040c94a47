package stats

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"cityforge.dev/internal/sim/grid"
)

// Achievement codes are persisted; append only.
type Achievement uint8

const (
	Population1K Achievement = iota
	Population5K
	Population10K
	Population50K
	Population100K
	Millionaire
	TradeSurplus
	FullPowerCoverage
	FullWaterCoverage
	HappyCity
	EuphoricCity
	RoadBuilder
	HighwayBuilder
	RoadDiversity
	DisasterSurvivor
	FullEmployment
	achievementCount
)

type achievementDef struct {
	name   string
	desc   string
	bonus  float64
	points int
}

var achievementDefs = [achievementCount]achievementDef{
	{"Village to Town", "Reach 1,000 population", 5000, 0},
	{"Growing Community", "Reach 5,000 population", 15000, 0},
	{"Cityhood", "Reach 10,000 population", 30000, 0},
	{"Metro Area", "Reach 50,000 population", 75000, 0},
	{"Major City", "Reach 100,000 population", 150000, 0},
	{"City Millionaire", "Accumulate $1,000,000 in treasury", 0, 5},
	{"Trade Surplus", "Maintain positive trade balance for 100 ticks", 50000, 0},
	{"Fully Powered", "Achieve 100% power coverage", 0, 3},
	{"Water For All", "Achieve 100% water coverage", 0, 3},
	{"Happy City", "Average happiness above 80%", 25000, 0},
	{"Euphoric Metropolis", "Average happiness above 90%", 100000, 0},
	{"Road Builder", "Build 500 road cells", 10000, 0},
	{"Highway Engineer", "Build a highway", 0, 2},
	{"Road Architect", "Use all 6 road types in your city", 0, 3},
	{"Disaster Survivor", "Survive a disaster", 50000, 0},
	{"Full Employment", "Reach 0% unemployment", 40000, 0},
}

func (a Achievement) String() string {
	if a < achievementCount {
		return achievementDefs[a].name
	}
	return fmt.Sprintf("Achievement(%d)", uint8(a))
}

func (a Achievement) Description() string { return achievementDefs[a].desc }

// Bonus is the treasury reward, 0 when the reward is development points.
func (a Achievement) Bonus() float64 { return achievementDefs[a].bonus }

func (a Achievement) Points() int { return achievementDefs[a].points }

func (a Achievement) Reward() string {
	if b := a.Bonus(); b > 0 {
		return "$" + humanize.Comma(int64(b)) + " treasury bonus"
	}
	return fmt.Sprintf("%d development points", a.Points())
}

// AchievementInputs is what Check reads each slow tick.
type AchievementInputs struct {
	Stats          *CityStats
	Treasury       float64
	TradeBalance   float64
	DisasterActive bool
	SlowInterval   int
}

// Tracker records unlocked achievements and the counters some of them need.
type Tracker struct {
	Unlocked          map[Achievement]uint64
	PositiveTradeRun  uint32
	HadActiveDisaster bool
	Points            int
}

func NewTracker() *Tracker { return &Tracker{Unlocked: map[Achievement]uint64{}} }

func (t *Tracker) Has(a Achievement) bool {
	_, ok := t.Unlocked[a]
	return ok
}

func (t *Tracker) Reset() { *t = *NewTracker() }

// Check unlocks every achievement whose condition holds at tick and returns
// the new ones in code order.
func (t *Tracker) Check(tick uint64, in AchievementInputs) []Achievement {
	s := in.Stats
	cond := [achievementCount]bool{
		Population1K:      s.Population >= 1000,
		Population5K:      s.Population >= 5000,
		Population10K:     s.Population >= 10000,
		Population50K:     s.Population >= 50000,
		Population100K:    s.Population >= 100000,
		Millionaire:       in.Treasury >= 1_000_000,
		FullPowerCoverage: s.Buildings > 0 && s.PowerCoverage >= 1,
		FullWaterCoverage: s.Buildings > 0 && s.WaterCoverage >= 1,
		HappyCity:         s.Population >= 100 && s.AvgHappiness > 80,
		EuphoricCity:      s.Population >= 100 && s.AvgHappiness > 90,
		RoadBuilder:       s.RoadCells >= 500,
		HighwayBuilder:    s.RoadsByType[grid.RoadHighway] > 0,
		FullEmployment:    s.Population >= 100 && s.Employed > 0 && s.Unemployed == 0,
	}

	if in.TradeBalance > 0 {
		t.PositiveTradeRun += uint32(max(in.SlowInterval, 1))
	} else {
		t.PositiveTradeRun = 0
	}
	cond[TradeSurplus] = t.PositiveTradeRun >= 100

	diverse := true
	for _, n := range s.RoadsByType {
		if n == 0 {
			diverse = false
			break
		}
	}
	cond[RoadDiversity] = diverse

	if in.DisasterActive {
		t.HadActiveDisaster = true
	} else if t.HadActiveDisaster {
		cond[DisasterSurvivor] = true
		t.HadActiveDisaster = false
	}

	var out []Achievement
	for a := Achievement(0); a < achievementCount; a++ {
		if cond[a] && !t.Has(a) {
			t.Unlocked[a] = tick
			t.Points += a.Points()
			out = append(out, a)
		}
	}
	return out
}
