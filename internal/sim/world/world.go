// Package world owns the simulation: the ark entity store, every resource,
// the staged system schedule, the action executor and the save registry.
// A World is driven from a single goroutine.
package world

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"cityforge.dev/internal/persistence/savefile"
	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/catalogs"
	"cityforge.dev/internal/sim/disasters"
	"cityforge.dev/internal/sim/economy"
	"cityforge.dev/internal/sim/energy"
	"cityforge.dev/internal/sim/env"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/rng"
	"cityforge.dev/internal/sim/roads"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/stats"
	"cityforge.dev/internal/sim/traffic"
	"cityforge.dev/internal/sim/tuning"
	"cityforge.dev/internal/sim/weather"
	"cityforge.dev/internal/sim/zones"
)

type Config struct {
	Seed     uint64
	CityName string

	// Tuning falls back to tuning.Defaults() when TickRateHz is zero.
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs

	// FlatTerrain skips procedural elevation on new games.
	FlatTerrain bool
	// SaveDir holds slots and autosaves. Empty disables file saves.
	SaveDir string

	Logger *log.Logger
}

func (c *Config) applyDefaults() {
	if c.Tuning.TickRateHz == 0 {
		c.Tuning = tuning.Defaults()
	}
	if c.Catalogs == nil {
		c.Catalogs = catalogs.MustDefault()
	}
	if c.CityName == "" {
		c.CityName = "New City"
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
}

// CityInfo holds identity and counters that are not owned by any system.
type CityInfo struct {
	Name           string
	Seed           uint64
	NextBuildingID uint32
	NextCitizenID  uint32
	NextVehicleID  uint32
	// PlaySeconds is simulated play time, advanced per fast tick.
	PlaySeconds float64
	// FloodLosses is the estimated property value lost to flooding.
	FloodLosses float64
	// PlowCost accrues snow plowing spend until the monthly collection.
	PlowCost float64
}

// Tutorial tracks the onboarding steps of a new game.
type Tutorial struct {
	Active bool
	Step   uint8
}

const (
	TutorialPlaceRoad uint8 = iota
	TutorialZone
	TutorialPower
	TutorialFirstBuilding
	TutorialGrow
	TutorialDone
)

// Attractiveness scores how appealing the city is to migrants, 0..100.
type Attractiveness struct {
	Score      float32
	Employment float32
	Happiness  float32
	Services   float32
	Housing    float32
	Tax        float32
}

type World struct {
	cfg  Config
	tun  tuning.Tuning
	cats *catalogs.Catalogs
	log  *log.Logger

	tick     atomic.Uint64
	now      uint64
	clock    GameClock
	slow     SlowTickTimer
	app      AppState
	saveLoad SaveLoadState
	rng      *rng.SimRng
	city     CityInfo
	tutorial Tutorial

	grid      *grid.WorldGrid
	network   *roads.Network
	segments  *roads.SegmentStore
	condition *roads.Condition
	overlays  *zones.Overlays
	density   *traffic.DensityGrid

	// Derived caches, rebuilt on demand and never saved.
	csr            *roads.CSRGraph
	roadsDirty     bool
	utilitiesDirty bool
	eligible       zones.EligibleCells
	coverage       *services.CoverageGrid
	hybrid         *services.Hybrid
	demand         zones.ZoneDemand

	budget     economy.CityBudget
	ext        economy.ExtendedBudget
	loans      economy.LoanBook
	bankruptcy economy.BankruptcyState
	policies   economy.Policies

	pollution      *grid.U8Grid
	noise          *grid.U8Grid
	waterPollution *grid.U8Grid
	landValue      *grid.U8Grid
	crime          *grid.U8Grid
	heating        *grid.U8Grid
	education      *grid.U8Grid
	health         *grid.U8Grid
	uhi            *grid.F32Grid
	fire           *env.Fire
	forestFire     *env.ForestFire
	snow           *env.Snow
	groundwater    *env.Groundwater
	garbage        *env.Garbage
	storm          *env.Stormwater
	flood          *env.Flood
	protection     env.Protection

	weather  weather.Weather
	climate  weather.Climate
	coldSnap weather.ColdSnap
	heatWave weather.HeatWave

	disasters disasters.Active
	power     energy.Grid
	freight   *traffic.Freight
	transit   *traffic.Transit
	attract   Attractiveness

	stats    stats.CityStats
	series   stats.History
	progress stats.Progress
	tracker  *stats.Tracker
	notes    stats.Notifications
	obs      stats.Observation

	queue    actions.Queue
	results  actions.ResultLog
	undo     actions.History
	recorder actions.Recorder
	player   *actions.Player

	ecs      *store
	registry *Registry
	sched    *Schedule
	deferred []func()
	events   Events
	hash     uint64

	memSave  []byte
	saves    *savefile.Dir
	autosave AutosaveTimer

	tickActions []actions.GameAction
	tickErrors  []string
	dayRolled   bool
	tickLogger  TickLogger
	observer    Observer
	metrics     atomic.Value

	inbox chan actions.GameAction
	stop  chan struct{}
}

// New builds a world in the main menu state holding an empty city for
// cfg.Seed. Call Start, or submit a NewGame action, to begin simulating.
func New(cfg Config) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}
	w := &World{
		cfg:  cfg,
		tun:  cfg.Tuning,
		cats: cfg.Catalogs,
		log:  cfg.Logger,
		rng:  rng.New(cfg.Seed),

		grid:      grid.New(),
		network:   roads.NewNetwork(),
		segments:  roads.NewSegmentStore(cfg.Tuning.Roads.SnapRadius),
		condition: roads.NewCondition(),
		overlays:  zones.NewOverlays(),
		density:   traffic.NewDensity(),
		coverage:  services.NewCoverageGrid(),
		hybrid:    services.NewHybrid(),

		pollution:      grid.NewU8(),
		noise:          grid.NewU8(),
		waterPollution: grid.NewU8(),
		landValue:      grid.NewU8(),
		crime:          grid.NewU8(),
		heating:        grid.NewU8(),
		education:      grid.NewU8(),
		health:         grid.NewU8(),
		uhi:            grid.NewF32(),
		fire:           env.NewFire(),
		forestFire:     env.NewForestFire(),
		snow:           env.NewSnow(),
		groundwater:    env.NewGroundwater(),
		garbage:        env.NewGarbage(),
		storm:          env.NewStormwater(),
		flood:          env.NewFlood(),

		freight: traffic.NewFreight(),
		transit: traffic.NewTransit(),
		tracker: stats.NewTracker(),

		ecs:   newStore(),
		slow:  SlowTickTimer{Interval: uint64(cfg.Tuning.SlowTickInterval)},
		inbox: make(chan actions.GameAction, 1024),
		stop:  make(chan struct{}),
	}
	if cfg.SaveDir != "" {
		w.saves = savefile.NewDir(cfg.SaveDir, cfg.Tuning.Autosave.Slots)
	}
	w.autosave = AutosaveTimer{IntervalTicks: w.autosaveInterval()}

	reg, err := w.buildRegistry()
	if err != nil {
		return nil, err
	}
	w.registry = reg
	sched, err := w.buildSchedule()
	if err != nil {
		return nil, err
	}
	w.sched = sched

	w.resetAll()
	w.initCity(cfg.Seed, cfg.CityName)
	w.app = AppMainMenu
	w.hash = w.computeHash()
	w.publishMetrics(0)
	return w, nil
}

// Start leaves the main menu.
func (w *World) Start() {
	w.clock.Paused = false
	w.app = AppPlaying
}

// initCity seeds a fresh city on top of reset resources.
func (w *World) initCity(seed uint64, name string) {
	w.rng.Reseed(seed)
	w.city.Seed = seed
	w.city.Name = name
	if !w.cfg.FlatTerrain {
		generateTerrain(w.grid, seed)
	}
	w.rebuildDerived()
}

func (w *World) Config() Config { return w.cfg }

func (w *World) Tuning() tuning.Tuning { return w.tun }

func (w *World) Catalogs() *catalogs.Catalogs { return w.cats }

func (w *World) Grid() *grid.WorldGrid { return w.grid }

func (w *World) Network() *roads.Network { return w.network }

func (w *World) Segments() *roads.SegmentStore { return w.segments }

func (w *World) RoadCondition() *roads.Condition { return w.condition }

func (w *World) Density() *traffic.DensityGrid { return w.density }

func (w *World) Clock() GameClock { return w.clock }

func (w *World) AppState() AppState { return w.app }

func (w *World) SaveLoadState() SaveLoadState { return w.saveLoad }

func (w *World) City() CityInfo { return w.city }

func (w *World) TutorialState() Tutorial { return w.tutorial }

func (w *World) Budget() economy.CityBudget { return w.budget }

func (w *World) ExtendedBudget() economy.ExtendedBudget { return w.ext }

func (w *World) Loans() economy.LoanBook { return w.loans }

func (w *World) Bankruptcy() economy.BankruptcyLevel { return w.bankruptcy.Level }

func (w *World) Policies() economy.Policies { return w.policies }

func (w *World) Demand() zones.ZoneDemand { return w.demand }

func (w *World) Eligible() *zones.EligibleCells { return &w.eligible }

func (w *World) Coverage() *services.CoverageGrid { return w.coverage }

func (w *World) Weather() weather.Weather { return w.weather }

func (w *World) Climate() weather.Climate { return w.climate }

func (w *World) Disaster() *disasters.Instance { return w.disasters.Current }

func (w *World) PowerGrid() energy.Grid { return w.power }

func (w *World) Freight() *traffic.Freight { return w.freight }

func (w *World) Transit() *traffic.Transit { return w.transit }

func (w *World) Attractiveness() Attractiveness { return w.attract }

func (w *World) Stats() stats.CityStats { return w.stats }

func (w *World) History() *stats.History { return &w.series }

func (w *World) Milestone() stats.Progress { return w.progress }

func (w *World) Achievements() *stats.Tracker { return w.tracker }

func (w *World) Notifications() *stats.Notifications { return &w.notes }

func (w *World) Observation() stats.Observation { return w.obs }

func (w *World) Results() *actions.ResultLog { return &w.results }

func (w *World) UndoHistory() *actions.History { return &w.undo }

func (w *World) Recorder() *actions.Recorder { return &w.recorder }

// StateHash is the hash computed at the end of the last tick.
func (w *World) StateHash() uint64 { return w.hash }

// Environment grids, read only.
func (w *World) Pollution() *grid.U8Grid      { return w.pollution }
func (w *World) Noise() *grid.U8Grid          { return w.noise }
func (w *World) WaterPollution() *grid.U8Grid { return w.waterPollution }
func (w *World) LandValue() *grid.U8Grid      { return w.landValue }
func (w *World) Crime() *grid.U8Grid          { return w.crime }
func (w *World) Heating() *grid.U8Grid        { return w.heating }
func (w *World) Flood() *env.Flood            { return w.flood }
func (w *World) Garbage() *env.Garbage        { return w.garbage }
func (w *World) Snow() *env.Snow              { return w.snow }

// SetPlayer installs a replay feed. Its actions are queued at their recorded
// tick ahead of anything already queued.
func (w *World) SetPlayer(p *actions.Player) { w.player = p }

// Submit queues actions for the next Input stage.
func (w *World) Submit(as ...actions.GameAction) { w.queue.Push(as...) }
