package world

import (
	"errors"
	"fmt"

	"cityforge.dev/internal/persistence/savefile"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/terrain"
	"cityforge.dev/internal/sim/zones"
)

var (
	ErrNoSaveDir    = errors.New("world: no save directory configured")
	ErrNoMemorySave = errors.New("world: no in-memory save")
)

// resetAll despawns every entity and returns each registered resource to its
// default. Derived caches are dropped; the caller rebuilds them.
func (w *World) resetAll() {
	w.ecs = newStore()
	for _, s := range w.registry.Staged() {
		if s.Reset != nil {
			s.Reset()
		}
	}
	w.csr = nil
	w.roadsDirty = true
	w.utilitiesDirty = true
	w.eligible = zones.EligibleCells{}
	w.coverage.Clear()
	w.hybrid = services.NewHybrid()
	w.demand = zones.ZoneDemand{}
	w.undo.Reset()
	w.deferred = nil
	w.autosave.Reset()
}

func generateTerrain(g *grid.WorldGrid, seed uint64) {
	terrain.Generate(g, terrain.DefaultParams(int64(seed)))
}

// newGame replaces the city with a fresh one and starts the tutorial.
func (w *World) newGame(seed uint64, name string) {
	if name == "" {
		name = w.cfg.CityName
	}
	w.saveLoad = SaveNewGame
	w.resetAll()
	w.initCity(seed, name)
	w.tutorial = Tutorial{Active: true, Step: TutorialPlaceRoad}
	w.saveLoad = SaveIdle
	w.now = w.tick.Load()
	w.Start()
	w.log.Printf("[world] new game %q seed=%d", name, seed)
}

func (w *World) metadata() savefile.Metadata {
	return savefile.Metadata{
		CityName:        w.city.Name,
		Population:      uint32(max(w.stats.Population, 0)),
		Treasury:        w.budget.Treasury,
		Day:             w.clock.Day,
		Hour:            w.clock.Hour(),
		PlayTimeSeconds: w.city.PlaySeconds,
	}
}

// Snapshot runs the save stages in order and assembles the file. Resources
// at their default are omitted.
func (w *World) Snapshot() (*savefile.File, error) {
	prev := w.saveLoad
	w.saveLoad = SaveSaving
	defer func() { w.saveLoad = prev }()

	f := &savefile.File{Meta: w.metadata()}
	for _, s := range w.registry.Staged() {
		b, err := s.Save()
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", s.Key, err)
		}
		if b == nil {
			continue
		}
		f.Blobs = append(f.Blobs, savefile.Blob{Key: s.Key, Value: b})
	}
	return f, nil
}

// SaveBytes encodes the current city in the save file format.
func (w *World) SaveBytes() ([]byte, error) {
	f, err := w.Snapshot()
	if err != nil {
		return nil, err
	}
	return savefile.Encode(f)
}

// Restore replaces the world with f. Keys the registry does not know are
// ignored, missing keys stay at their defaults and a blob that fails to
// decode is logged and reset. Restore itself never fails.
func (w *World) Restore(f *savefile.File) {
	w.saveLoad = SaveLoading
	w.resetAll()
	for _, s := range w.registry.Staged() {
		b, ok := f.Get(s.Key)
		if !ok {
			continue
		}
		if err := s.Load(b); err != nil {
			w.log.Printf("[world] load %s: %v", s.Key, err)
			s.Reset()
		}
	}
	w.rebuildDerived()
	w.saveLoad = SaveIdle
	w.now = w.tick.Load()
	if w.app == AppMainMenu {
		w.app = AppPlaying
	}
	w.syncPause()
	w.hash = w.computeHash()
}

// LoadBytes decodes and restores a save file. A file that fails header or
// checksum validation leaves the world untouched.
func (w *World) LoadBytes(b []byte) error {
	f, err := savefile.Decode(b)
	if err != nil {
		return err
	}
	w.Restore(f)
	return nil
}

// saveTo writes the city to a numbered slot, or to memory when slot is empty.
func (w *World) saveTo(slot string) (string, error) {
	f, err := w.Snapshot()
	if err != nil {
		return "", err
	}
	if slot == "" {
		b, err := savefile.Encode(f)
		if err != nil {
			return "", err
		}
		w.memSave = b
		return "memory", nil
	}
	if w.saves == nil {
		return "", ErrNoSaveDir
	}
	n, err := savefile.ParseSlot(slot)
	if err != nil {
		return "", err
	}
	p, err := w.saves.WriteSlot(n, f)
	if err != nil {
		return "", err
	}
	w.notifySave(SaveSlot, p, f)
	return p, nil
}

// readFrom reads a slot, "latest" for the newest valid autosave, or the
// in-memory save when slot is empty.
func (w *World) readFrom(slot string) (*savefile.File, error) {
	if slot == "" {
		if w.memSave == nil {
			return nil, ErrNoMemorySave
		}
		return savefile.Decode(w.memSave)
	}
	if w.saves == nil {
		return nil, ErrNoSaveDir
	}
	if slot == "latest" {
		return w.saves.LoadLatest()
	}
	n, err := savefile.ParseSlot(slot)
	if err != nil {
		return nil, err
	}
	return w.saves.ReadSlot(n)
}

// RecoverLatest restores the newest valid autosave after cleaning temporary
// files. It reports whether one was found.
func (w *World) RecoverLatest() (bool, error) {
	if w.saves == nil {
		return false, ErrNoSaveDir
	}
	f, err := w.saves.LoadLatest()
	if errors.Is(err, savefile.ErrNoSave) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	w.Restore(f)
	return true, nil
}
