// Package indexdb keeps a queryable sqlite index next to the save directory:
// runs, per-tick digests and actions, saves, daily stats and year archives.
// Writes go through a buffered channel to a single writer goroutine so the
// simulation never blocks on disk. The saves and traces stay the source of
// truth; the index may drop rows when it falls behind.
package indexdb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"cityforge.dev/internal/sim/catalogs"
	"cityforge.dev/internal/sim/tuning"
	"cityforge.dev/internal/sim/world"
)

const schemaVersion = "1"

type SQLiteIndex struct {
	db *sqlx.DB

	runID atomic.Value // string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick  atomic.Uint64
	dropSave  atomic.Uint64
	dropStats atomic.Uint64
	dropYear  atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSave
	reqStats
	reqYear
)

type req struct {
	kind  reqKind
	runID string

	tick  world.TickLogEntry
	save  SaveRow
	stats StatsRow
	year  YearRow
}

type RunRow struct {
	RunID     string `db:"run_id"`
	Seed      int64  `db:"seed"`
	CityName  string `db:"city_name"`
	StartedAt string `db:"started_at"`
}

type TickRow struct {
	RunID   string  `db:"run_id"`
	Tick    int64   `db:"tick"`
	Day     int64   `db:"day"`
	Hour    float64 `db:"hour"`
	Digest  string  `db:"digest"`
	Actions int     `db:"actions"`
	Errors  int     `db:"errors"`
}

type SaveRow struct {
	Path        string  `db:"path"`
	RunID       string  `db:"run_id"`
	Kind        string  `db:"kind"`
	CityName    string  `db:"city_name"`
	Population  int64   `db:"population"`
	Treasury    float64 `db:"treasury"`
	Day         int64   `db:"day"`
	Hour        float64 `db:"hour"`
	PlaySeconds float64 `db:"play_seconds"`
	Bytes       int64   `db:"bytes"`
	RecordedAt  string  `db:"recorded_at"`
}

// StatsRow is one day of city history.
type StatsRow struct {
	RunID        string  `db:"run_id"`
	Day          int64   `db:"day"`
	Tick         int64   `db:"tick"`
	Population   int64   `db:"population"`
	Employed     int64   `db:"employed"`
	Buildings    int64   `db:"buildings"`
	Treasury     float64 `db:"treasury"`
	Income       float64 `db:"income"`
	Expenses     float64 `db:"expenses"`
	AvgHappiness float64 `db:"avg_happiness"`
}

type YearRow struct {
	Year       int64   `db:"year"`
	RunID      string  `db:"run_id"`
	Day        int64   `db:"day"`
	Path       string  `db:"path"`
	Population int64   `db:"population"`
	Treasury   float64 `db:"treasury"`
	RecordedAt string  `db:"recorded_at"`
}

// IndexStats reports queue pressure and rows dropped because the writer fell
// behind.
type IndexStats struct {
	QueueDepth     int
	QueueCapacity  int
	DropTickTotal  uint64
	DropSaveTotal  uint64
	DropStatsTotal uint64
	DropYearTotal  uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.runID.Store("")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			city_name TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			day INTEGER NOT NULL,
			hour REAL NOT NULL,
			digest TEXT NOT NULL,
			actions INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS actions (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			act_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_kind ON actions(kind, tick);`,
		`CREATE TABLE IF NOT EXISTS saves (
			path TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			city_name TEXT NOT NULL,
			population INTEGER NOT NULL,
			treasury REAL NOT NULL,
			day INTEGER NOT NULL,
			hour REAL NOT NULL,
			play_seconds REAL NOT NULL,
			bytes INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stats (
			run_id TEXT NOT NULL,
			day INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			population INTEGER NOT NULL,
			employed INTEGER NOT NULL,
			buildings INTEGER NOT NULL,
			treasury REAL NOT NULL,
			income REAL NOT NULL,
			expenses REAL NOT NULL,
			avg_happiness REAL NOT NULL,
			PRIMARY KEY (run_id, day)
		);`,
		`CREATE TABLE IF NOT EXISTS years (
			year INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			day INTEGER NOT NULL,
			path TEXT NOT NULL,
			population INTEGER NOT NULL,
			treasury REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// StartRun records a run synchronously and tags every later row with its id.
func (s *SQLiteIndex) StartRun(r RunRow) error {
	if r.RunID == "" {
		return fmt.Errorf("empty run id")
	}
	if r.StartedAt == "" {
		r.StartedAt = now()
	}
	_, err := s.db.NamedExec(`INSERT OR REPLACE INTO runs(run_id,seed,city_name,started_at)
		VALUES(:run_id,:seed,:city_name,:started_at)`, r)
	if err != nil {
		return err
	}
	s.runID.Store(r.RunID)
	return nil
}

func (s *SQLiteIndex) currentRun() string {
	if s == nil {
		return ""
	}
	v, _ := s.runID.Load().(string)
	return v
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	r.runID = s.currentRun()
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

// WriteTick lets the index serve as a world.TickLogger.
func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqTick, tick: entry}, &s.dropTick)
	return nil
}

func (s *SQLiteIndex) RecordSave(r SaveRow) {
	if s == nil {
		return
	}
	if r.RecordedAt == "" {
		r.RecordedAt = now()
	}
	s.enqueue(req{kind: reqSave, save: r}, &s.dropSave)
}

func (s *SQLiteIndex) RecordStats(r StatsRow) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqStats, stats: r}, &s.dropStats)
}

func (s *SQLiteIndex) RecordYear(r YearRow) {
	if s == nil || r.Year <= 0 || r.Path == "" {
		return
	}
	if r.RecordedAt == "" {
		r.RecordedAt = now()
	}
	s.enqueue(req{kind: reqYear, year: r}, &s.dropYear)
}

func (s *SQLiteIndex) Stats() IndexStats {
	if s == nil {
		return IndexStats{}
	}
	return IndexStats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropTickTotal:  s.dropTick.Load(),
		DropSaveTotal:  s.dropSave.Load(),
		DropStatsTotal: s.dropStats.Load(),
		DropYearTotal:  s.dropYear.Load(),
	}
}

// UpsertCatalogs stores the catalogs and tuning a run was started with.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	type row struct {
		Name      string `db:"name"`
		Digest    string `db:"digest"`
		JSON      string `db:"json"`
		UpdatedAt string `db:"updated_at"`
	}
	at := now()
	var rows []row
	add := func(name, digest string, v any) {
		b, err := json.Marshal(v)
		if err != nil || len(b) == 0 {
			return
		}
		if digest == "" {
			sum := sha256.Sum256(b)
			digest = hex.EncodeToString(sum[:])
		}
		rows = append(rows, row{Name: name, Digest: digest, JSON: string(b), UpdatedAt: at})
	}

	svc := make([]catalogs.ServiceDef, 0, len(cats.Services.ByID))
	for _, d := range cats.Services.ByID {
		svc = append(svc, d)
	}
	sort.Slice(svc, func(i, j int) bool { return svc[i].ID < svc[j].ID })
	add("services", cats.Services.Digest, svc)

	gen := make([]catalogs.GeneratorDef, 0, len(cats.Generators.ByID))
	for _, d := range cats.Generators.ByID {
		gen = append(gen, d)
	}
	sort.Slice(gen, func(i, j int) bool { return gen[i].ID < gen[j].ID })
	add("generators", cats.Generators.Digest, gen)

	bld := make([]catalogs.BuildingDef, 0, len(cats.Buildings.ByZone))
	for _, d := range cats.Buildings.ByZone {
		bld = append(bld, d)
	}
	sort.Slice(bld, func(i, j int) bool { return bld[i].Zone < bld[j].Zone })
	add("buildings", cats.Buildings.Digest, bld)

	add("tuning", "", tune)

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('catalogs_digest',?)`, cats.Digest()); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := tx.NamedExec(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at)
			VALUES(:name,:digest,:json,:updated_at)`, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sqlx.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(query string, arg any) bool {
		if _, err := tx.NamedExec(query, arg); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			t := r.tick
			row := TickRow{
				RunID:   r.runID,
				Tick:    int64(t.Tick),
				Day:     int64(t.Day),
				Hour:    float64(t.Hour),
				Digest:  t.Digest,
				Actions: len(t.Actions),
				Errors:  len(t.Errors),
			}
			if !exec(`INSERT OR REPLACE INTO ticks(run_id,tick,day,hour,digest,actions,errors)
				VALUES(:run_id,:tick,:day,:hour,:digest,:actions,:errors)`, row) {
				continue
			}
			for i, a := range t.Actions {
				b, _ := json.Marshal(a)
				arg := map[string]any{
					"run_id":   r.runID,
					"tick":     int64(t.Tick),
					"seq":      i,
					"kind":     string(a.Kind),
					"act_json": string(b),
				}
				if !exec(`INSERT OR REPLACE INTO actions(run_id,tick,seq,kind,act_json)
					VALUES(:run_id,:tick,:seq,:kind,:act_json)`, arg) {
					break
				}
			}

		case reqSave:
			sv := r.save
			if sv.RunID == "" {
				sv.RunID = r.runID
			}
			exec(`INSERT OR REPLACE INTO saves(path,run_id,kind,city_name,population,treasury,day,hour,play_seconds,bytes,recorded_at)
				VALUES(:path,:run_id,:kind,:city_name,:population,:treasury,:day,:hour,:play_seconds,:bytes,:recorded_at)`, sv)

		case reqStats:
			st := r.stats
			if st.RunID == "" {
				st.RunID = r.runID
			}
			exec(`INSERT OR REPLACE INTO stats(run_id,day,tick,population,employed,buildings,treasury,income,expenses,avg_happiness)
				VALUES(:run_id,:day,:tick,:population,:employed,:buildings,:treasury,:income,:expenses,:avg_happiness)`, st)

		case reqYear:
			y := r.year
			if y.RunID == "" {
				y.RunID = r.runID
			}
			exec(`INSERT OR REPLACE INTO years(year,run_id,day,path,population,treasury,recorded_at)
				VALUES(:year,:run_id,:day,:path,:population,:treasury,:recorded_at)`, y)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
