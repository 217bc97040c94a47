package main

import (
	"log"
	"os"
	"sync"

	"cityforge.dev/internal/persistence/archive"
	"cityforge.dev/internal/persistence/indexdb"
	"cityforge.dev/internal/sim/world"
)

// multiTickLogger fans a tick out to every non-nil logger.
type multiTickLogger []world.TickLogger

func (m multiTickLogger) WriteTick(e world.TickLogEntry) error {
	var first error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.WriteTick(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// runObserver indexes saves and daily stats and archives year-end snapshots
// off the world goroutine.
type runObserver struct {
	dataDir string
	idx     *indexdb.SQLiteIndex
	logger  *log.Logger

	wg sync.WaitGroup
}

func (o *runObserver) OnSave(r world.SaveRecord) {
	if r.Kind == world.SaveYearEnd {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.archiveYear(r)
		}()
		return
	}
	if o.idx == nil || r.File == nil {
		return
	}
	var size int64
	if st, err := os.Stat(r.Path); err == nil {
		size = st.Size()
	}
	m := r.File.Meta
	o.idx.RecordSave(indexdb.SaveRow{
		Path:        r.Path,
		Kind:        string(r.Kind),
		CityName:    m.CityName,
		Population:  int64(m.Population),
		Treasury:    m.Treasury,
		Day:         int64(m.Day),
		Hour:        float64(m.Hour),
		PlaySeconds: m.PlayTimeSeconds,
		Bytes:       size,
	})
}

func (o *runObserver) archiveYear(r world.SaveRecord) {
	meta, ok, err := archive.ArchiveYear(o.dataDir, r.File)
	if err != nil {
		o.logger.Printf("archive year: %v", err)
		return
	}
	if !ok {
		return
	}
	o.logger.Printf("archived year %d (%s)", meta.Year, meta.CityName)
	o.idx.RecordYear(indexdb.YearRow{
		Year:       int64(meta.Year),
		Day:        int64(meta.Day),
		Path:       archive.SavePath(o.dataDir, meta.Year),
		Population: int64(meta.Population),
		Treasury:   meta.Treasury,
	})
}

func (o *runObserver) OnDay(d world.DayReport) {
	o.idx.RecordStats(indexdb.StatsRow{
		Day:          int64(d.Day),
		Tick:         int64(d.Tick),
		Population:   int64(d.Population),
		Employed:     int64(d.Employed),
		Buildings:    int64(d.Buildings),
		Treasury:     d.Treasury,
		Income:       d.Income,
		Expenses:     d.Expenses,
		AvgHappiness: float64(d.AvgHappiness),
	})
}

// Wait blocks until pending archives are written.
func (o *runObserver) Wait() { o.wg.Wait() }
