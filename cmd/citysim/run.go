package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cityforge.dev/internal/persistence/indexdb"
	persistlog "cityforge.dev/internal/persistence/log"
	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/world"
)

type runOptions struct {
	seed     uint64
	city     string
	flat     bool
	ticks    int
	speed    uint8
	load     string
	recover  bool
	script   string
	record   string
	saveSlot string
	noIndex  bool
	noTrace  bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a city headlessly, recording a tick trace and index",
		Long: `Run steps a world either for a fixed number of ticks as fast as possible
(--ticks) or in real time until interrupted. Every tick is written to a
zstd JSONL trace under <data>/traces/<run id>/ and indexed in <data>/index.db.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCity(cmd.Context(), g, o, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.Uint64Var(&o.seed, "seed", 1337, "terrain and simulation seed for a new city")
	f.StringVar(&o.city, "city", "New City", "city name")
	f.BoolVar(&o.flat, "flat", false, "skip procedural terrain")
	f.IntVar(&o.ticks, "ticks", 0, "run this many ticks without pacing (0: real time until interrupted)")
	f.Uint8Var(&o.speed, "speed", 1, "game speed in real-time mode (1, 2 or 3)")
	f.StringVar(&o.load, "load", "", `start from a save slot number or "latest"`)
	f.BoolVar(&o.recover, "recover", false, "start from the newest valid autosave when one exists")
	f.StringVar(&o.script, "script", "", "action script to feed at its recorded ticks")
	f.StringVar(&o.record, "record", "", "write the executed actions as a script to this path")
	f.StringVar(&o.saveSlot, "save-slot", "", "save to this slot when the run ends")
	f.BoolVar(&o.noIndex, "no-index", false, "do not write the sqlite index")
	f.BoolVar(&o.noTrace, "no-trace", false, "do not write a tick trace")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runCity(ctx context.Context, g *globalFlags, o *runOptions, out, errOut io.Writer) error {
	logger := g.logger(errOut)

	tune, err := g.loadTuning(logger)
	if err != nil {
		return err
	}
	cats, err := g.loadCatalogs()
	if err != nil {
		return err
	}
	worldOut := errOut
	if g.quiet {
		worldOut = io.Discard
	}
	w, err := world.New(world.Config{
		Seed:        o.seed,
		CityName:    o.city,
		Tuning:      tune,
		Catalogs:    cats,
		FlatTerrain: o.flat,
		SaveDir:     g.saveDir(),
		Logger:      log.New(worldOut, "[world] ", log.LstdFlags|log.Lmicroseconds),
	})
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	w.Start()

	resumed := false
	switch {
	case o.load != "":
		if err := w.Apply(actions.Load(o.load)); err != nil {
			return fmt.Errorf("load %s: %w", o.load, err)
		}
		resumed = true
	case o.recover:
		ok, err := w.RecoverLatest()
		if err != nil {
			return fmt.Errorf("recover: %w", err)
		}
		resumed = ok
	}
	if resumed {
		logger.Printf("resumed %q day=%d tick=%d", w.City().Name, w.Clock().Day, w.CurrentTick())
	}
	if o.speed != 1 {
		if err := w.Apply(actions.SetSpeed(o.speed)); err != nil {
			return fmt.Errorf("speed: %w", err)
		}
	}

	header := persistlog.NewRunHeader(w.City().Seed, w.City().Name, o.flat)

	var idx *indexdb.SQLiteIndex
	if !o.noIndex {
		idx, err = indexdb.OpenSQLite(g.indexPath())
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		if err := idx.StartRun(indexdb.RunRow{RunID: header.RunID, Seed: int64(header.Seed), CityName: header.CityName}); err != nil {
			logger.Printf("index: start run: %v", err)
		}
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	var loggers multiTickLogger
	var trace *persistlog.TickLogger
	if !o.noTrace {
		trace, err = persistlog.NewTickLogger(g.traceDir(), header)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		defer trace.Close()
		loggers = append(loggers, trace)
		if resumed {
			logger.Printf("trace %s starts from a loaded save; replay needs that save", header.RunID)
		}
	}
	if idx != nil {
		loggers = append(loggers, idx)
	}
	if len(loggers) > 0 {
		w.SetTickLogger(loggers)
	}

	obs := &runObserver{dataDir: g.dataDir, idx: idx, logger: logger}
	w.SetObserver(obs)
	defer obs.Wait()

	if o.script != "" {
		s, err := actions.LoadScript(o.script)
		if err != nil {
			return err
		}
		w.SetPlayer(actions.NewPlayer(s.Entries))
		logger.Printf("script %s: %d actions", o.script, len(s.Entries))
	}
	if o.record != "" {
		w.Recorder().Enabled = true
	}

	logger.Printf("run %s seed=%d city=%q", header.RunID, header.Seed, header.CityName)
	sctx, cancel := signalContext(ctx)
	defer cancel()
	if o.ticks > 0 {
		for i := 0; i < o.ticks; i++ {
			if sctx.Err() != nil {
				break
			}
			w.StepOnce()
			if (i+1)%10000 == 0 {
				logger.Printf("tick %s day=%d pop=%s", humanize.Comma(int64(w.CurrentTick())), w.Clock().Day, humanize.Comma(int64(w.Stats().Population)))
			}
		}
	} else {
		if err := w.Run(sctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("world stopped: %w", err)
		}
	}

	if o.saveSlot != "" {
		if err := w.Apply(actions.Save(o.saveSlot)); err != nil {
			logger.Printf("save slot %s: %v", o.saveSlot, err)
		}
	}
	if o.record != "" {
		if err := w.Recorder().Script().WriteFile(o.record); err != nil {
			logger.Printf("record: %v", err)
		}
	}
	if trace != nil {
		if err := trace.Flush(); err != nil {
			logger.Printf("trace flush: %v", err)
		}
	}

	printSummary(out, w, header.RunID, idx)
	return nil
}

func printSummary(out io.Writer, w *world.World, runID string, idx *indexdb.SQLiteIndex) {
	st := w.Stats()
	b := w.Budget()
	fmt.Fprintf(out, "run        %s\n", runID)
	fmt.Fprintf(out, "city       %s\n", w.City().Name)
	fmt.Fprintf(out, "tick       %s (day %d, %05.2fh)\n", humanize.Comma(int64(w.CurrentTick())), w.Clock().Day, w.Clock().Hour())
	fmt.Fprintf(out, "population %s (%s employed)\n", humanize.Comma(int64(st.Population)), humanize.Comma(int64(st.Employed)))
	fmt.Fprintf(out, "buildings  %s\n", humanize.Comma(int64(st.Buildings)))
	fmt.Fprintf(out, "treasury   $%s\n", humanize.CommafWithDigits(b.Treasury, 2))
	fmt.Fprintf(out, "digest     %s\n", w.StateDigest())
	if idx != nil {
		s := idx.Stats()
		if drops := s.DropTickTotal + s.DropSaveTotal + s.DropStatsTotal + s.DropYearTotal; drops > 0 {
			fmt.Fprintf(out, "index      %s rows dropped\n", humanize.Comma(int64(drops)))
		}
	}
}
