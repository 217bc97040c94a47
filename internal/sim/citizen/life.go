package citizen

type LifeStage uint8

const (
	Child LifeStage = iota
	SchoolAge
	YoungAdult
	Adult
	Senior
	Retired
)

func StageForAge(age uint8) LifeStage {
	switch {
	case age <= 5:
		return Child
	case age <= 17:
		return SchoolAge
	case age <= 25:
		return YoungAdult
	case age <= 54:
		return Adult
	case age <= 64:
		return Senior
	default:
		return Retired
	}
}

func (s LifeStage) CanWork() bool { return s == YoungAdult || s == Adult || s == Senior }

func (s LifeStage) AttendsSchool() bool { return s == SchoolAge }

// SalaryFor is the base monthly salary for an education level.
func SalaryFor(education uint8) float32 {
	switch education {
	case 0:
		return 1500
	case 1:
		return 2200
	case 2:
		return 3500
	case 3:
		return 6000
	default:
		return 8000
	}
}

// Needs are in [0,100]; 100 is fully satisfied.
type Needs struct {
	Hunger  float32
	Energy  float32
	Social  float32
	Fun     float32
	Comfort float32
}

func DefaultNeeds() Needs {
	return Needs{Hunger: 80, Energy: 80, Social: 70, Fun: 70, Comfort: 60}
}

// NeedsInterval is how many fast ticks pass between needs updates.
const NeedsInterval = 10

const (
	hungerDecay  = 2.1
	energyDecay  = 1.0
	socialDecay  = 0.23
	funDecay     = 0.35
	funDrainWork = 0.3
)

// Update decays needs and restores the ones the current activity serves.
// Comfort eases toward a target set by the home's utilities.
func (n *Needs) Update(s State, night, homePower, homeWater bool) {
	n.Hunger = max(n.Hunger-hungerDecay, 0)
	n.Energy = max(n.Energy-energyDecay, 0)
	n.Social = max(n.Social-socialDecay, 0)
	n.Fun = max(n.Fun-funDecay, 0)

	switch s {
	case AtHome:
		if n.Hunger < 80 {
			n.Hunger = min(n.Hunger+8, 100)
		}
		if night {
			n.Energy = min(n.Energy+4, 100)
		} else {
			n.Energy = min(n.Energy+1.5, 100)
		}
	case Working:
		n.Fun = max(n.Fun-funDrainWork, 0)
		n.Social = min(n.Social+0.5, 100)
	case Shopping:
		n.Hunger = min(n.Hunger+5, 100)
		n.Fun = min(n.Fun+1.5, 100)
	case AtLeisure:
		n.Fun = min(n.Fun+5, 100)
		n.Social = min(n.Social+3, 100)
	case AtSchool:
		n.Social = min(n.Social+2, 100)
	}

	target := float32(40)
	if homePower {
		target += 20
	}
	if homeWater {
		target += 20
	}
	n.Comfort += (target - n.Comfort) * 0.1
	n.Comfort = min(max(n.Comfort, 0), 100)
}

// Overall is the weighted satisfaction in [0,1].
func (n Needs) Overall() float32 {
	raw := n.Hunger*0.25 + n.Energy*0.25 + n.Social*0.15 + n.Fun*0.15 + n.Comfort*0.20
	return min(max(raw/100, 0), 1)
}

// AgeDaysPerYear is how many game days age a citizen by one year.
const AgeDaysPerYear = 360

// AdvanceEducation returns the education level after day. School-age
// citizens with school coverage gain a level every AgeDaysPerYear days up to
// high school; ambitious young adults continue to university and beyond.
func AdvanceEducation(d *Details, p Personality, covered bool, day uint32) uint8 {
	if !covered || day%AgeDaysPerYear != 0 || d.Education >= MaxEducation {
		return d.Education
	}
	switch d.Stage() {
	case SchoolAge:
		if d.Education < 2 {
			return d.Education + 1
		}
	case YoungAdult:
		if d.Education >= 2 && p.Ambition >= 0.5 {
			return d.Education + 1
		}
	}
	return d.Education
}
