package world

import (
	"errors"
	"fmt"
	"strings"
)

type Stage uint8

const (
	StageInput Stage = iota
	StagePreSim
	StageSimulation
	StagePostSim
	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageInput:
		return "Input"
	case StagePreSim:
		return "PreSim"
	case StageSimulation:
		return "Simulation"
	case StagePostSim:
		return "PostSim"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

var (
	ErrDuplicateSystem = errors.New("schedule: duplicate system")
	ErrUnknownSystem   = errors.New("schedule: unknown dependency")
	ErrCycle           = errors.New("schedule: dependency cycle")
)

// System is one named step of a stage. After names systems of the same stage
// that must run first.
type System struct {
	Name  string
	Stage Stage
	After []string
	// FlushAfter applies deferred commands as soon as the system returns.
	FlushAfter bool
	Run        func(w *World)
}

// Schedule orders systems per stage. Build must be called after the last Add.
type Schedule struct {
	systems []System
	byName  map[string]int
	order   [stageCount][]int
}

func NewSchedule() *Schedule {
	return &Schedule{byName: map[string]int{}}
}

func (s *Schedule) Add(sys System) error {
	if _, ok := s.byName[sys.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSystem, sys.Name)
	}
	if sys.Stage >= stageCount {
		return fmt.Errorf("schedule: %s: bad stage %d", sys.Name, sys.Stage)
	}
	s.byName[sys.Name] = len(s.systems)
	s.systems = append(s.systems, sys)
	return nil
}

// Build sorts each stage topologically. Among ready systems the earliest
// registered runs first, so the order is stable.
func (s *Schedule) Build() error {
	for st := Stage(0); st < stageCount; st++ {
		var members []int
		for i, sys := range s.systems {
			if sys.Stage == st {
				members = append(members, i)
			}
		}
		indeg := map[int]int{}
		next := map[int][]int{}
		for _, i := range members {
			indeg[i] += 0
			for _, dep := range s.systems[i].After {
				j, ok := s.byName[dep]
				if !ok || s.systems[j].Stage != st {
					return fmt.Errorf("%w: %s after %s", ErrUnknownSystem, s.systems[i].Name, dep)
				}
				indeg[i]++
				next[j] = append(next[j], i)
			}
		}
		order := make([]int, 0, len(members))
		done := map[int]bool{}
		for len(order) < len(members) {
			picked := -1
			for _, i := range members {
				if !done[i] && indeg[i] == 0 {
					picked = i
					break
				}
			}
			if picked < 0 {
				var stuck []string
				for _, i := range members {
					if !done[i] {
						stuck = append(stuck, s.systems[i].Name)
					}
				}
				return fmt.Errorf("%w in %s: %s", ErrCycle, st, strings.Join(stuck, ", "))
			}
			done[picked] = true
			order = append(order, picked)
			for _, k := range next[picked] {
				indeg[k]--
			}
		}
		s.order[st] = order
	}
	return nil
}

// Order lists the system names of a stage in run order.
func (s *Schedule) Order(st Stage) []string {
	out := make([]string, len(s.order[st]))
	for i, idx := range s.order[st] {
		out[i] = s.systems[idx].Name
	}
	return out
}

func (s *Schedule) run(st Stage, w *World) {
	for _, idx := range s.order[st] {
		sys := &s.systems[idx]
		sys.Run(w)
		if sys.FlushAfter {
			w.flush()
		}
	}
	w.flush()
}

// deferCmd queues a structural change until the next flush point.
func (w *World) deferCmd(fn func()) { w.deferred = append(w.deferred, fn) }

func (w *World) flush() {
	for len(w.deferred) > 0 {
		cmds := w.deferred
		w.deferred = nil
		for _, fn := range cmds {
			fn()
		}
	}
}
