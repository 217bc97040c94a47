package citizen

// Daily windows in game hours, [start,end).
const (
	MorningStart = 7
	MorningEnd   = 9
	EveningStart = 17
	EveningEnd   = 19
	SchoolStart  = 8
	SchoolEnd    = 15
	ErrandStart  = 10
	ErrandEnd    = 21
	LeisureEnd   = 21

	ShoppingTicks = 60
	LeisureTicks  = 120

	HungerShopThreshold   = 40
	LeisureNeedThreshold  = 30
	DetourHungerThreshold = 35
	DetourNeedThreshold   = 25
)

// Destination kinds looked up by the routine.
type Destination uint8

const (
	Shop Destination = iota
	Leisure
	School
)

// Destinations finds the nearest destination of a kind within maxDist cells.
type Destinations interface {
	Nearest(kind Destination, x, y, maxDist int) (int, int, bool)
}

// RoutineInputs is the view of one citizen the routine reads.
type RoutineInputs struct {
	// Jitter spreads departures over the hour; derived from the citizen ID.
	Jitter       int
	State        State
	Stage        LifeStage
	Hour         int
	Minute       int
	Home         HomeLocation
	Work         *WorkLocation
	CellX, CellY int
	Needs        Needs
	PathComplete bool
}

// Step is the routine's decision. Request is nil when no trip starts; Next
// is the state to hold until the request is served.
type Step struct {
	Next    State
	Request *PathRequest
	// ResetTimer zeroes the activity timer.
	ResetTimer bool
}

// JitterFor maps a citizen ID to a departure minute.
func JitterFor(id uint32) int { return int(id % 120 % 60) }

// Decide advances one citizen's daily routine. timer is the ticks already
// spent at the current destination.
func Decide(in RoutineInputs, timer uint32, dest Destinations) Step {
	hold := Step{Next: in.State}
	trip := func(fx, fy, tx, ty int, target State) Step {
		return Step{Next: in.State, Request: &PathRequest{FromX: fx, FromY: fy, ToX: tx, ToY: ty, Target: target}}
	}
	home := func() Step { return trip(in.CellX, in.CellY, in.Home.GridX, in.Home.GridY, CommutingHome) }
	onTheMinute := in.Minute == in.Jitter

	switch in.State {
	case AtHome:
		hx, hy := in.Home.GridX, in.Home.GridY
		if in.Stage.AttendsSchool() && in.Hour >= SchoolStart && in.Hour < SchoolEnd && onTheMinute {
			if x, y, ok := dest.Nearest(School, hx, hy, 30); ok {
				return trip(hx, hy, x, y, CommutingToSchool)
			}
		}
		if in.Stage.CanWork() && in.Work != nil && in.Hour >= MorningStart && in.Hour < MorningEnd && onTheMinute {
			return trip(hx, hy, in.Work.GridX, in.Work.GridY, CommutingToWork)
		}
		if !in.Stage.AttendsSchool() && in.Hour >= ErrandStart && in.Hour < ErrandEnd {
			if in.Needs.Hunger < HungerShopThreshold {
				if x, y, ok := dest.Nearest(Shop, hx, hy, 25); ok {
					s := trip(hx, hy, x, y, CommutingToShop)
					s.ResetTimer = true
					return s
				}
			}
			if in.Needs.Fun < LeisureNeedThreshold || in.Needs.Social < LeisureNeedThreshold {
				if x, y, ok := dest.Nearest(Leisure, hx, hy, 25); ok {
					s := trip(hx, hy, x, y, CommutingToLeisure)
					s.ResetTimer = true
					return s
				}
			}
		}
		return hold

	case Working:
		if in.Hour < EveningStart && in.Hour >= MorningStart {
			return hold
		}
		from := HomeLocation{GridX: in.CellX, GridY: in.CellY}
		if in.Work != nil {
			from = HomeLocation(*in.Work)
		}
		if in.Needs.Hunger < DetourHungerThreshold {
			if x, y, ok := dest.Nearest(Shop, from.GridX, from.GridY, 20); ok {
				s := trip(from.GridX, from.GridY, x, y, CommutingToShop)
				s.ResetTimer = true
				return s
			}
		}
		if in.Needs.Fun < DetourNeedThreshold || in.Needs.Social < DetourNeedThreshold {
			if x, y, ok := dest.Nearest(Leisure, from.GridX, from.GridY, 20); ok {
				s := trip(from.GridX, from.GridY, x, y, CommutingToLeisure)
				s.ResetTimer = true
				return s
			}
		}
		return trip(from.GridX, from.GridY, in.Home.GridX, in.Home.GridY, CommutingHome)

	case Shopping:
		if timer+1 >= ShoppingTicks {
			return home()
		}
		return hold

	case AtLeisure:
		if timer+1 >= LeisureTicks || in.Hour >= LeisureEnd {
			return home()
		}
		return hold

	case AtSchool:
		if in.Hour >= SchoolEnd || in.Hour < SchoolStart {
			return home()
		}
		return hold

	default:
		if in.State.IsCommuting() && in.PathComplete {
			return Step{Next: in.State.Arrived(), ResetTimer: true}
		}
		return hold
	}
}
