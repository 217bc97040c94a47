package world

import (
	"errors"
	"reflect"
	"testing"
)

func noop(*World) {}

func TestSchedule_StableTopologicalOrder(t *testing.T) {
	s := NewSchedule()
	for _, sys := range []System{
		{Name: "c", Stage: StageSimulation, After: []string{"a"}, Run: noop},
		{Name: "a", Stage: StageSimulation, Run: noop},
		{Name: "b", Stage: StageSimulation, Run: noop},
		{Name: "d", Stage: StageSimulation, After: []string{"c", "b"}, Run: noop},
		{Name: "x", Stage: StagePreSim, Run: noop},
	} {
		if err := s.Add(sys); err != nil {
			t.Fatalf("Add(%s): %v", sys.Name, err)
		}
	}
	if err := s.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := s.Order(StageSimulation), []string{"a", "c", "b", "d"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order=%v want %v", got, want)
	}
	if got := s.Order(StagePreSim); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("presim=%v", got)
	}
}

func TestSchedule_Errors(t *testing.T) {
	s := NewSchedule()
	_ = s.Add(System{Name: "a", Stage: StageInput, Run: noop})
	if err := s.Add(System{Name: "a", Stage: StageInput, Run: noop}); !errors.Is(err, ErrDuplicateSystem) {
		t.Fatalf("duplicate: %v", err)
	}

	s = NewSchedule()
	_ = s.Add(System{Name: "a", Stage: StageInput, After: []string{"b"}, Run: noop})
	_ = s.Add(System{Name: "b", Stage: StageInput, After: []string{"a"}, Run: noop})
	if err := s.Build(); !errors.Is(err, ErrCycle) {
		t.Fatalf("cycle: %v", err)
	}

	s = NewSchedule()
	_ = s.Add(System{Name: "a", Stage: StageInput, After: []string{"ghost"}, Run: noop})
	if err := s.Build(); !errors.Is(err, ErrUnknownSystem) {
		t.Fatalf("unknown: %v", err)
	}

	// Dependencies never cross stages.
	s = NewSchedule()
	_ = s.Add(System{Name: "a", Stage: StageInput, Run: noop})
	_ = s.Add(System{Name: "b", Stage: StagePostSim, After: []string{"a"}, Run: noop})
	if err := s.Build(); !errors.Is(err, ErrUnknownSystem) {
		t.Fatalf("cross stage: %v", err)
	}
}

func TestSchedule_FlushAfterMakesCommandsVisible(t *testing.T) {
	w := &World{}
	var seen []string
	s := NewSchedule()
	_ = s.Add(System{Name: "emit", Stage: StageSimulation, FlushAfter: true, Run: func(w *World) {
		w.deferCmd(func() { seen = append(seen, "cmd") })
	}})
	_ = s.Add(System{Name: "read", Stage: StageSimulation, After: []string{"emit"}, Run: func(w *World) {
		seen = append(seen, "read")
	}})
	if err := s.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	s.run(StageSimulation, w)
	if !reflect.DeepEqual(seen, []string{"cmd", "read"}) {
		t.Fatalf("seen=%v", seen)
	}
}

func TestWorldSchedule_Builds(t *testing.T) {
	w := newTestWorld(t)
	order := w.sched.Order(StagePreSim)
	if len(order) == 0 || order[0] != "advance_clock" {
		t.Fatalf("presim order=%v", order)
	}
	sim := w.sched.Order(StageSimulation)
	pos := map[string]int{}
	for i, n := range sim {
		pos[n] = i
	}
	if pos["citizen_state_machine"] >= pos["process_path_requests"] {
		t.Fatalf("path requests before state machine: %v", sim)
	}
	post := w.sched.Order(StagePostSim)
	if post[len(post)-1] != "state_hash" {
		t.Fatalf("postsim must end with the hash: %v", post)
	}
}
