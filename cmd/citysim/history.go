package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cityforge.dev/internal/persistence/indexdb"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var from, to int64
	cmd := &cobra.Command{
		Use:   "history [run id]",
		Short: "Show indexed runs, or the daily stats of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := indexdb.OpenReader(g.indexPath())
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer r.Close()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if len(args) == 0 {
				return listRuns(ctx, r, cmd.OutOrStdout())
			}
			return showHistory(ctx, r, args[0], from, to, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64Var(&from, "from", 1, "first day")
	cmd.Flags().Int64Var(&to, "to", 1<<31, "last day")
	return cmd
}

func listRuns(ctx context.Context, r *indexdb.Reader, out io.Writer) error {
	runs, err := r.Runs(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCITY\tSEED\tSTARTED\tLAST TICK")
	for _, run := range runs {
		last := "-"
		if t, err := r.LastTick(ctx, run.RunID); err == nil {
			last = humanize.Comma(t.Tick)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", run.RunID, run.CityName, run.Seed, run.StartedAt, last)
	}
	return tw.Flush()
}

func showHistory(ctx context.Context, r *indexdb.Reader, runID string, from, to int64, out io.Writer) error {
	rows, err := r.StatsHistory(ctx, runID, from, to)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tPOPULATION\tEMPLOYED\tBUILDINGS\tTREASURY\tINCOME\tEXPENSES\tHAPPINESS")
	for _, s := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t$%s\t$%s\t$%s\t%.1f\n",
			s.Day,
			humanize.Comma(s.Population),
			humanize.Comma(s.Employed),
			humanize.Comma(s.Buildings),
			humanize.CommafWithDigits(s.Treasury, 0),
			humanize.CommafWithDigits(s.Income, 0),
			humanize.CommafWithDigits(s.Expenses, 0),
			s.AvgHappiness)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	counts, err := r.ActionCounts(ctx, runID)
	if err != nil || len(counts) == 0 {
		return err
	}
	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tCOUNT")
	for _, k := range sortedKeys(counts) {
		fmt.Fprintf(tw, "%s\t%d\n", k, counts[k])
	}
	return tw.Flush()
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
