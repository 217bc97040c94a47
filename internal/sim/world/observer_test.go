package world

import (
	"testing"

	"cityforge.dev/internal/sim/weather"
)

type recordingObserver struct {
	saves []SaveRecord
	days  []DayReport
}

func (o *recordingObserver) OnSave(r SaveRecord) { o.saves = append(o.saves, r) }
func (o *recordingObserver) OnDay(d DayReport)   { o.days = append(o.days, d) }

func TestObserver_DayReportAndYearEndSnapshot(t *testing.T) {
	w := newTestWorld(t)
	o := &recordingObserver{}
	w.SetObserver(o)

	w.SetClock(weather.DaysPerYear-1, 23.99)
	for i := 0; i < 10 && len(o.days) == 0; i++ {
		w.StepOnce()
	}
	if len(o.days) != 1 {
		t.Fatalf("day reports=%d want 1", len(o.days))
	}
	d := o.days[0]
	if d.Day != weather.DaysPerYear || d.Treasury != w.Budget().Treasury {
		t.Fatalf("report=%+v", d)
	}
	if len(o.saves) != 1 || o.saves[0].Kind != SaveYearEnd || o.saves[0].File == nil {
		t.Fatalf("saves=%+v", o.saves)
	}
	if got := o.saves[0].File.Meta.Day; got != weather.DaysPerYear {
		t.Fatalf("snapshot day=%d", got)
	}

	hash := w.StateHash()
	w.SetObserver(nil)
	ref := newTestWorld(t)
	ref.SetClock(weather.DaysPerYear-1, 23.99)
	for ref.CurrentTick() < w.CurrentTick() {
		ref.StepOnce()
	}
	if ref.StateHash() != hash {
		t.Fatalf("observer changed the simulation: %x vs %x", hash, ref.StateHash())
	}
}
