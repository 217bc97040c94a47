package world

type WorldMetrics struct {
	Tick        uint64  `json:"tick"`
	Day         uint32  `json:"day"`
	Population  int     `json:"population"`
	Buildings   int     `json:"buildings"`
	Treasury    float64 `json:"treasury"`
	StepMS      float64 `json:"step_ms"`
	Paused      bool    `json:"paused"`
	Speed       uint8   `json:"speed"`
	QueueDepth  int     `json:"queue_depth"`
	Hash        uint64  `json:"hash"`
	Blackout    bool    `json:"blackout"`
	Notices     int     `json:"notices"`
	LastActions int     `json:"last_actions"`
}

// Metrics returns the snapshot published after the last step. It is safe to
// call from any goroutine.
func (w *World) Metrics() WorldMetrics {
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics(stepMS float64) {
	w.metrics.Store(WorldMetrics{
		Tick:        w.tick.Load(),
		Day:         w.clock.Day,
		Population:  w.stats.Population,
		Buildings:   w.stats.Buildings,
		Treasury:    w.budget.Treasury,
		StepMS:      stepMS,
		Paused:      w.app != AppPlaying,
		Speed:       w.clock.Speed,
		QueueDepth:  w.queue.Len(),
		Hash:        w.hash,
		Blackout:    w.power.Blackout,
		Notices:     len(w.notes.Active),
		LastActions: len(w.tickActions),
	})
}
