// Package citizen holds citizen components and the pure rules that drive
// them: life stages, needs, happiness, daily routine and travel mode.
package citizen

import (
	"fmt"

	"cityforge.dev/internal/sim/roads"
)

// State codes are persisted; append only.
type State uint8

const (
	AtHome State = iota
	CommutingToWork
	Working
	CommutingHome
	CommutingToShop
	Shopping
	CommutingToLeisure
	AtLeisure
	CommutingToSchool
	AtSchool
	stateCount
)

var stateNames = [...]string{
	"AtHome", "CommutingToWork", "Working", "CommutingHome", "CommutingToShop",
	"Shopping", "CommutingToLeisure", "AtLeisure", "CommutingToSchool", "AtSchool",
}

func (s State) String() string {
	if s < stateCount {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

func (s State) Valid() bool { return s < stateCount }

func (s State) IsCommuting() bool {
	switch s {
	case CommutingToWork, CommutingHome, CommutingToShop, CommutingToLeisure, CommutingToSchool:
		return true
	}
	return false
}

// Arrived is the state a commute ends in.
func (s State) Arrived() State {
	switch s {
	case CommutingToWork:
		return Working
	case CommutingHome:
		return AtHome
	case CommutingToShop:
		return Shopping
	case CommutingToLeisure:
		return AtLeisure
	case CommutingToSchool:
		return AtSchool
	}
	return s
}

// Citizen carries the persisted identity used for stable ordering.
type Citizen struct {
	ID uint32
}

type Position struct {
	X, Y float32
}

type Velocity struct {
	X, Y float32
}

type HomeLocation struct {
	GridX, GridY int
}

type WorkLocation struct {
	GridX, GridY int
}

type Gender uint8

const (
	Male Gender = iota
	Female
)

// Education levels: 0 none, 1 elementary, 2 high school, 3 university, 4 postgraduate.
const MaxEducation = 4

type Details struct {
	Age       uint8
	Gender    Gender
	Education uint8
	Happiness float32
	Health    float32
	Salary    float32
	Savings   float32
}

func (d *Details) Stage() LifeStage { return StageForAge(d.Age) }

// Personality traits are in [0.1,1] and fixed at birth.
type Personality struct {
	Ambition    float32
	Sociability float32
	Materialism float32
	Resilience  float32
}

// Family links citizens by persisted ID; zero means none.
type Family struct {
	Partner  uint32
	Parent   uint32
	Children uint8
}

// ActivityTimer counts ticks spent at a destination.
type ActivityTimer struct {
	Ticks uint32
}

// PathCache is the route being walked. Index points at the next waypoint.
type PathCache struct {
	Waypoints []roads.RoadNode
	Index     int
}

func (p *PathCache) Complete() bool { return p.Index >= len(p.Waypoints) }

func (p *PathCache) Target() (roads.RoadNode, bool) {
	if p.Complete() {
		return roads.RoadNode{}, false
	}
	return p.Waypoints[p.Index], true
}

// PathRequest asks the pathfinder for a route. Target is the state to enter
// once a path exists.
type PathRequest struct {
	FromX, FromY int
	ToX, ToY     int
	Target       State
}

// ComputingPath marks a request deferred to a later tick.
type ComputingPath struct{}

type Homeless struct {
	TicksHomeless uint32
	Sheltered     bool
}

type TravelMode struct {
	Mode Mode
}

// Tick advances homelessness by one tick and reports whether the citizen
// has been homeless long enough to leave the city.
func (h *Homeless) Tick(limit uint32) bool {
	h.TicksHomeless++
	return h.TicksHomeless >= limit
}
