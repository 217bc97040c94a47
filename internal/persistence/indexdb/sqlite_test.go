package indexdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/catalogs"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/tuning"
	"cityforge.dev/internal/sim/world"
)

func TestSQLiteIndex_WritesAndReadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.StartRun(RunRow{RunID: "run-1", Seed: 42, CityName: "Harbor"}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := idx.UpsertCatalogs(catalogs.MustDefault(), tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}

	road := actions.PlaceRoadLine(1, 1, 4, 1, grid.RoadLocal)
	_ = idx.WriteTick(world.TickLogEntry{Tick: 0, Day: 1, Digest: "aa", Actions: []actions.GameAction{road, actions.Undo()}})
	_ = idx.WriteTick(world.TickLogEntry{Tick: 1, Day: 1, Digest: "bb", Actions: []actions.GameAction{road}, Errors: []string{"x"}})
	idx.RecordSave(SaveRow{Path: "/saves/slot_01.bin", Kind: "slot", CityName: "Harbor", Population: 10, Day: 1})
	idx.RecordStats(StatsRow{Day: 1, Tick: 1, Population: 10, Treasury: 9000})
	idx.RecordStats(StatsRow{Day: 2, Tick: 1440, Population: 12, Treasury: 8800})
	idx.RecordYear(YearRow{Year: 1, Day: 360, Path: "/saves/archives/year_001/city.bin.zst", Population: 12})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	ctx := context.Background()

	runs, err := r.Runs(ctx)
	if err != nil || len(runs) != 1 || runs[0].Seed != 42 || runs[0].CityName != "Harbor" {
		t.Fatalf("runs=%+v err=%v", runs, err)
	}

	last, err := r.LastTick(ctx, "run-1")
	if err != nil {
		t.Fatalf("LastTick: %v", err)
	}
	if last.Tick != 1 || last.Digest != "bb" || last.Errors != 1 {
		t.Fatalf("last tick=%+v", last)
	}
	if _, err := r.LastTick(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}

	counts, err := r.ActionCounts(ctx, "run-1")
	if err != nil {
		t.Fatalf("ActionCounts: %v", err)
	}
	if counts["PlaceRoadLine"] != 2 || counts["Undo"] != 1 {
		t.Fatalf("counts=%v", counts)
	}

	saves, err := r.Saves(ctx)
	if err != nil || len(saves) != 1 || saves[0].RunID != "run-1" || saves[0].Kind != "slot" {
		t.Fatalf("saves=%+v err=%v", saves, err)
	}

	hist, err := r.StatsHistory(ctx, "run-1", 1, 30)
	if err != nil || len(hist) != 2 || hist[1].Population != 12 {
		t.Fatalf("history=%+v err=%v", hist, err)
	}

	years, err := r.Years(ctx)
	if err != nil || len(years) != 1 || years[0].RunID != "run-1" {
		t.Fatalf("years=%+v err=%v", years, err)
	}

	d, err := r.CatalogDigest(ctx, "services")
	if err != nil || d != catalogs.MustDefault().Services.Digest {
		t.Fatalf("services digest=%q err=%v", d, err)
	}
	if d, err := r.CatalogDigest(ctx, "tuning"); err != nil || len(d) != 64 {
		t.Fatalf("tuning digest=%q err=%v", d, err)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStartRun_RequiresID(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "i.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()
	if err := idx.StartRun(RunRow{}); err == nil {
		t.Fatalf("expected error")
	}
}
