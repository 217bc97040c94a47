package world

// AutosaveTimer counts simulated ticks toward the next autosave.
type AutosaveTimer struct {
	IntervalTicks uint64
	Elapsed       uint64
}

// Due advances the timer one tick and reports whether a save is due.
func (t *AutosaveTimer) Due() bool {
	if t.IntervalTicks == 0 {
		return false
	}
	t.Elapsed++
	if t.Elapsed < t.IntervalTicks {
		return false
	}
	t.Elapsed = 0
	return true
}

func (t *AutosaveTimer) Reset() { t.Elapsed = 0 }

// autosaveInterval converts the configured play minutes to fast ticks.
func (w *World) autosaveInterval() uint64 {
	a := w.tun.Autosave
	if !a.Enabled || a.IntervalMinutes <= 0 {
		return 0
	}
	return uint64(a.IntervalMinutes) * 60 * uint64(w.tun.TickRateHz)
}

func (w *World) sysAutosave() {
	if w.saves == nil || !w.autosave.Due() {
		return
	}
	f, err := w.Snapshot()
	if err != nil {
		w.log.Printf("[world] autosave: %v", err)
		return
	}
	p, err := w.saves.Autosave(f)
	if err != nil {
		w.log.Printf("[world] autosave: %v", err)
		return
	}
	w.log.Printf("[world] autosave %s day=%d", p, w.clock.Day)
	w.notifySave(SaveAutosave, p, f)
}
