package world

import (
	"cityforge.dev/internal/persistence/savefile"
	"cityforge.dev/internal/sim/weather"
)

type SaveKind string

const (
	SaveSlot     SaveKind = "slot"
	SaveAutosave SaveKind = "autosave"
	// SaveYearEnd is an in-memory snapshot taken when the calendar reaches
	// the last day of a year. Nothing is written by the world.
	SaveYearEnd SaveKind = "year_end"
)

// SaveRecord describes a save the world just produced. File is shared with
// the caller and must not be modified.
type SaveRecord struct {
	Kind SaveKind
	Path string
	File *savefile.File
}

// DayReport summarizes the city at the first tick of each new day.
type DayReport struct {
	Tick         uint64
	Day          uint32
	Population   int
	Employed     int
	Buildings    int
	Treasury     float64
	Income       float64
	Expenses     float64
	AvgHappiness float32
}

// Observer receives saves and daily reports on the world goroutine. It must
// not call back into the world.
type Observer interface {
	OnSave(SaveRecord)
	OnDay(DayReport)
}

func (w *World) SetObserver(o Observer) { w.observer = o }

func (w *World) notifySave(kind SaveKind, path string, f *savefile.File) {
	if w.observer != nil {
		w.observer.OnSave(SaveRecord{Kind: kind, Path: path, File: f})
	}
}

func (w *World) sysReportDay() {
	if w.observer == nil || !w.dayRolled {
		return
	}
	w.observer.OnDay(DayReport{
		Tick:         w.now,
		Day:          w.clock.Day,
		Population:   w.stats.Population,
		Employed:     w.stats.Employed,
		Buildings:    w.stats.Buildings,
		Treasury:     w.budget.Treasury,
		Income:       w.budget.MonthlyIncome,
		Expenses:     w.budget.MonthlyExpenses,
		AvgHappiness: w.stats.AvgHappiness,
	})
	if w.clock.Day%weather.DaysPerYear != 0 {
		return
	}
	f, err := w.Snapshot()
	if err != nil {
		w.log.Printf("[world] year-end snapshot: %v", err)
		return
	}
	w.notifySave(SaveYearEnd, "", f)
}
