package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	persistlog "cityforge.dev/internal/persistence/log"
	"cityforge.dev/internal/sim/world"
)

func newReplayCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <run dir>",
		Short: "Re-run a recorded trace against a fresh world and verify every digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return replayRun(g, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func replayRun(g *globalFlags, runDir string, out, errOut io.Writer) error {
	logger := g.logger(errOut)
	h, err := persistlog.ReadRunHeader(runDir)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	trace, err := persistlog.ReadTrace(runDir)
	if err != nil {
		return fmt.Errorf("read trace: %w", err)
	}
	tune, err := g.loadTuning(logger)
	if err != nil {
		return err
	}
	cats, err := g.loadCatalogs()
	if err != nil {
		return err
	}
	w, err := world.New(world.Config{
		Seed:        h.Seed,
		CityName:    h.CityName,
		Tuning:      tune,
		Catalogs:    cats,
		FlatTerrain: h.Flat,
	})
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	w.Start()

	logger.Printf("replaying %s: %s ticks, %s actions", h.RunID, humanize.Comma(int64(len(trace))), humanize.Comma(int64(len(persistlog.Entries(trace)))))
	n, err := persistlog.Replay(w, trace)
	var m persistlog.Mismatch
	if errors.As(err, &m) {
		return fmt.Errorf("replay diverged after %d ticks: %w", n, m)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "replay ok: checked=%d ticks final=%s\n", n, w.StateDigest())
	return nil
}
