// Command citysim runs, replays and inspects cityforge cities headlessly.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cityforge.dev/internal/sim/catalogs"
	"cityforge.dev/internal/sim/tuning"
)

type globalFlags struct {
	dataDir    string
	tuningPath string
	configDir  string
	quiet      bool
}

func (g *globalFlags) saveDir() string   { return filepath.Join(g.dataDir, "saves") }
func (g *globalFlags) traceDir() string  { return filepath.Join(g.dataDir, "traces") }
func (g *globalFlags) indexPath() string { return filepath.Join(g.dataDir, "index.db") }

func (g *globalFlags) logger(out io.Writer) *log.Logger {
	if g.quiet {
		out = io.Discard
	}
	return log.New(out, "[citysim] ", log.LstdFlags|log.Lmicroseconds)
}

// loadTuning reads the tuning file when one is given. A missing default file
// falls back to built-in values.
func (g *globalFlags) loadTuning(logger *log.Logger) (tuning.Tuning, error) {
	p := strings.TrimSpace(g.tuningPath)
	explicit := p != ""
	if !explicit {
		p = filepath.Join(g.dataDir, "tuning.yaml")
	}
	t, err := tuning.Load(p)
	if err == nil {
		return t, nil
	}
	if os.IsNotExist(err) && !explicit {
		logger.Printf("tuning not found (%s); using defaults", p)
		return tuning.Defaults(), nil
	}
	return t, fmt.Errorf("load tuning: %w", err)
}

func (g *globalFlags) loadCatalogs() (*catalogs.Catalogs, error) {
	if strings.TrimSpace(g.configDir) == "" {
		return catalogs.Default()
	}
	c, err := catalogs.Load(g.configDir)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	return c, nil
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "citysim",
		Short:         "Headless cityforge simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.dataDir, "data", "./data", "runtime data directory (saves, traces, index)")
	pf.StringVar(&g.tuningPath, "tuning", "", "path to tuning.yaml (default: <data>/tuning.yaml)")
	pf.StringVar(&g.configDir, "catalogs", "", "catalog directory (default: embedded catalogs)")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "suppress log output")

	root.AddCommand(
		newRunCmd(g),
		newReplayCmd(g),
		newInspectCmd(g),
		newSlotsCmd(g),
		newRecoverCmd(g),
		newSchemaCmd(),
		newArchiveCmd(g),
		newHistoryCmd(g),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "citysim:", err)
		os.Exit(1)
	}
}
