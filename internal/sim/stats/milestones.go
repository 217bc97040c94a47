package stats

import (
	"fmt"
	"strings"

	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/utilities"
)

// Tier is a population milestone. Codes are persisted.
type Tier uint8

const (
	Hamlet Tier = iota
	SmallSettlement
	Village
	LargeVillage
	Town
	LargeTown
	SmallCity
	City
	LargeCity
	Metropolis
	LargeMetropolis
	Megalopolis
	tierCount
)

var tierInfo = [tierCount]struct {
	name string
	pop  int
}{
	{"Hamlet", 0},
	{"Small Settlement", 240},
	{"Village", 1200},
	{"Large Village", 2600},
	{"Town", 5000},
	{"Large Town", 7500},
	{"Small City", 12000},
	{"City", 20000},
	{"Large City", 36000},
	{"Metropolis", 50000},
	{"Large Metropolis", 65000},
	{"Megalopolis", 80000},
}

func (t Tier) String() string {
	if t < tierCount {
		return tierInfo[t].name
	}
	return fmt.Sprintf("Tier(%d)", uint8(t))
}

// Population is the population needed to reach t.
func (t Tier) Population() int {
	if t < tierCount {
		return tierInfo[t].pop
	}
	return tierInfo[tierCount-1].pop
}

func (t Tier) Last() bool { return t >= tierCount-1 }

// TierFor is the highest tier pop qualifies for.
func TierFor(pop int) Tier {
	t := Hamlet
	for i := Tier(1); i < tierCount; i++ {
		if pop < tierInfo[i].pop {
			break
		}
		t = i
	}
	return t
}

// Progress tracks the highest milestone reached. Tiers are never lost when
// population falls.
type Progress struct {
	Current   Tier
	ReachedAt int
}

// Check advances Current to the tier pop qualifies for and returns every
// tier newly reached, lowest first.
func (p *Progress) Check(pop int) []Tier {
	var out []Tier
	for t := p.Current + 1; t < tierCount && pop >= t.Population(); t++ {
		out = append(out, t)
		p.Current = t
		p.ReachedAt = pop
	}
	return out
}

// Fraction is progress from the current tier toward the next in [0,1].
func (p *Progress) Fraction(pop int) float32 {
	if p.Current.Last() {
		return 1
	}
	lo, hi := p.Current.Population(), (p.Current + 1).Population()
	f := float32(pop-lo) / float32(hi-lo)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func (p *Progress) Reset() { *p = Progress{} }

// Message is the notification text for reaching t.
func (t Tier) Message() string {
	msg := fmt.Sprintf("Milestone reached: %s (%d population)!", t, t.Population())
	if u := unlockNames(t); len(u) > 0 {
		msg += " " + strings.Join(u, ", ") + " unlocked."
	}
	return msg
}

var serviceTiers = map[services.Type]Tier{
	services.Stadium:              Town,
	services.SubwayStation:        LargeTown,
	services.University:           SmallCity,
	services.TrainStation:         SmallCity,
	services.Airport:              City,
	services.DistrictHeatingPlant: LargeMetropolis,
}

var utilityTiers = map[utilities.Type]Tier{
	utilities.NuclearPlant: LargeMetropolis,
}

// ServiceTier is the milestone that unlocks placing t.
func ServiceTier(t services.Type) Tier { return serviceTiers[t] }

// UtilityTier is the milestone that unlocks placing t.
func UtilityTier(t utilities.Type) Tier { return utilityTiers[t] }

func unlockNames(t Tier) []string {
	var out []string
	for _, s := range services.All() {
		if serviceTiers[s] == t && t != Hamlet {
			out = append(out, s.String())
		}
	}
	for u := utilities.PowerPlant; u.Valid(); u++ {
		if tier, ok := utilityTiers[u]; ok && tier == t {
			out = append(out, u.String())
		}
	}
	return out
}
