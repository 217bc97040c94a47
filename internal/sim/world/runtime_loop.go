package world

import (
	"context"
	"time"

	"cityforge.dev/internal/sim/actions"
)

// TickLogEntry is one line of a tick trace.
type TickLogEntry struct {
	Tick    uint64               `json:"tick"`
	Day     uint32               `json:"day"`
	Hour    float32              `json:"hour"`
	Actions []actions.GameAction `json:"actions,omitempty"`
	Errors  []string             `json:"errors,omitempty"`
	Digest  string               `json:"digest"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }

func (w *World) Inbox() chan<- actions.GameAction { return w.inbox }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Stop makes Run return nil. It may be called once.
func (w *World) Stop() { close(w.stop) }

// Run drives frames at TickRateHz until ctx is done or Stop is called.
// Actions arriving on the inbox are queued for the next frame.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.tun.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []actions.GameAction
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case a := <-w.inbox:
			pending = append(pending, a)
		case <-ticker.C:
			w.queue.Push(pending...)
			w.Frame()
			pending = pending[:0]
		}
	}
}

// Frame runs Speed fast ticks while playing, or a single input-only tick
// while paused or in the menu.
func (w *World) Frame() {
	w.syncPause()
	n := 1
	if w.app == AppPlaying && ValidSpeed(w.clock.Speed) {
		n = int(w.clock.Speed)
	}
	for i := 0; i < n; i++ {
		w.step()
	}
}

// StepOnce runs exactly one tick and returns the tick it executed and the
// state hash after it.
func (w *World) StepOnce() (uint64, uint64) {
	t := w.tick.Load()
	w.step()
	return t, w.hash
}

func (w *World) step() {
	stepStart := time.Now()
	w.now = w.tick.Load()
	w.events.reset()
	w.tickActions = w.tickActions[:0]
	w.tickErrors = w.tickErrors[:0]
	w.dayRolled = false

	w.sched.run(StageInput, w)
	w.syncPause()

	ran := false
	if w.simulating() {
		w.sched.run(StagePreSim, w)
		w.sched.run(StageSimulation, w)
		w.sched.run(StagePostSim, w)
		ran = true
	}
	if !ran {
		w.hash = w.computeHash()
	}

	if w.tickLogger != nil {
		entry := TickLogEntry{
			Tick:    w.now,
			Day:     w.clock.Day,
			Hour:    w.clock.Hour(),
			Actions: append([]actions.GameAction(nil), w.tickActions...),
			Errors:  append([]string(nil), w.tickErrors...),
			Digest:  w.StateDigest(),
		}
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.log.Printf("[world] tick log: %v", err)
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	w.publishMetrics(stepMS)
}

// advanceTick is the first PreSim system: the counter and the calendar move
// together so the hash computed at the end of the tick covers both.
func (w *World) advanceTick() {
	w.tick.Add(1)
	w.city.PlaySeconds += 1 / float64(w.tun.TickRateHz)
	if w.clock.Advance(w.tun.MinutesPerTick) {
		w.dayRolled = true
	}
}
