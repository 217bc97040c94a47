package world

import (
	"errors"
	"fmt"
	"sort"
)

// SaveStage groups saveables; the stages run in declaration order when a
// save is assembled and when a file is loaded.
type SaveStage uint8

const (
	SaveStageGrid SaveStage = iota
	SaveStageEconomy
	SaveStageEntity
	SaveStageEnvironment
	SaveStageDisaster
	SaveStagePolicy
)

func (s SaveStage) String() string {
	return [...]string{"grid", "economy", "entity", "environment", "disaster", "policy"}[s]
}

// Saveable is one persisted resource. Save returning nil bytes means the
// resource is at its default and is omitted from the file.
type Saveable struct {
	Key   string
	Stage SaveStage
	Save  func() ([]byte, error)
	Load  func([]byte) error
	Reset func()
}

var ErrDuplicateKey = errors.New("registry: duplicate key")

type Registry struct {
	items []Saveable
	byKey map[string]int
}

func NewRegistry() *Registry { return &Registry{byKey: map[string]int{}} }

func (r *Registry) Register(s Saveable) error {
	if _, ok := r.byKey[s.Key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, s.Key)
	}
	r.byKey[s.Key] = len(r.items)
	r.items = append(r.items, s)
	return nil
}

func (r *Registry) Get(key string) (Saveable, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return Saveable{}, false
	}
	return r.items[i], true
}

// Staged lists saveables by stage, registration order within a stage.
func (r *Registry) Staged() []Saveable {
	out := append([]Saveable(nil), r.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}

// Sorted lists saveables by key; this is the hash traversal order.
func (r *Registry) Sorted() []Saveable {
	out := append([]Saveable(nil), r.items...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r *Registry) Keys() []string {
	out := make([]string, len(r.items))
	for i, s := range r.items {
		out[i] = s.Key
	}
	return out
}

// ManifestEntry names a key the world must register.
type ManifestEntry struct {
	Key   string
	Stage SaveStage
}

// ExpectedKeys is the full persisted surface. Adding a resource means adding
// it here as well; a test compares it against the live registry.
var ExpectedKeys = []ManifestEntry{
	{"grid", SaveStageGrid},
	{"road_segments", SaveStageGrid},
	{"road_condition", SaveStageGrid},
	{"zone_overlays", SaveStageGrid},
	{"traffic_density", SaveStageGrid},

	{"clock", SaveStageEconomy},
	{"city", SaveStageEconomy},
	{"rng", SaveStageEconomy},
	{"budget", SaveStageEconomy},
	{"budget_extended", SaveStageEconomy},
	{"loans", SaveStageEconomy},
	{"bankruptcy", SaveStageEconomy},
	{"city_stats", SaveStageEconomy},
	{"stats_history", SaveStageEconomy},
	{"milestones", SaveStageEconomy},
	{"achievements", SaveStageEconomy},
	{"notifications", SaveStageEconomy},
	{"attractiveness", SaveStageEconomy},
	{"energy_grid", SaveStageEconomy},
	{"freight", SaveStageEconomy},
	{"transit", SaveStageEconomy},

	{"buildings", SaveStageEntity},
	{"citizens", SaveStageEntity},
	{"services", SaveStageEntity},
	{"utilities", SaveStageEntity},
	{"vehicles", SaveStageEntity},

	{"pollution", SaveStageEnvironment},
	{"noise", SaveStageEnvironment},
	{"water_pollution", SaveStageEnvironment},
	{"land_value", SaveStageEnvironment},
	{"crime", SaveStageEnvironment},
	{"heating", SaveStageEnvironment},
	{"education", SaveStageEnvironment},
	{"health", SaveStageEnvironment},
	{"uhi", SaveStageEnvironment},
	{"fire", SaveStageEnvironment},
	{"forest_fire", SaveStageEnvironment},
	{"snow", SaveStageEnvironment},
	{"groundwater", SaveStageEnvironment},
	{"garbage", SaveStageEnvironment},
	{"stormwater", SaveStageEnvironment},
	{"flood", SaveStageEnvironment},
	{"weather", SaveStageEnvironment},
	{"climate", SaveStageEnvironment},

	{"disasters", SaveStageDisaster},
	{"flood_protection", SaveStageDisaster},
	{"cold_snap", SaveStageDisaster},
	{"heat_wave", SaveStageDisaster},

	{"policies", SaveStagePolicy},
	{"tutorial", SaveStagePolicy},
}

func (w *World) buildRegistry() (*Registry, error) {
	r := NewRegistry()
	var all []Saveable
	all = append(all, w.gridSaveables()...)
	all = append(all, w.economySaveables()...)
	all = append(all, w.entitySaveables()...)
	all = append(all, w.environmentSaveables()...)
	all = append(all, w.disasterSaveables()...)
	all = append(all, w.policySaveables()...)
	for _, s := range all {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Registry exposes the saveables, mainly for tooling and tests.
func (w *World) Registry() *Registry { return w.registry }
