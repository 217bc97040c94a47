package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cityforge.dev/internal/persistence/savefile"
)

func newInspectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <save file>",
		Short: "Validate a save file and list its metadata and blobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectSave(args[0], cmd.OutOrStdout())
		},
	}
}

func inspectSave(path string, out io.Writer) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	h, err := savefile.ParseHeader(b)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	f, err := savefile.Decode(b)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	m := f.Meta
	fmt.Fprintf(out, "file       %s (%s)\n", path, humanize.Bytes(uint64(len(b))))
	fmt.Fprintf(out, "version    %d crc32=%08x payload=%s\n", h.Version, h.CRC32, humanize.Bytes(h.PayloadLen))
	fmt.Fprintf(out, "city       %s\n", m.CityName)
	fmt.Fprintf(out, "population %s\n", humanize.Comma(int64(m.Population)))
	fmt.Fprintf(out, "treasury   $%s\n", humanize.CommafWithDigits(m.Treasury, 2))
	fmt.Fprintf(out, "time       day %d, %05.2fh (%s played)\n", m.Day, m.Hour, time.Duration(m.PlayTimeSeconds*float64(time.Second)).Round(time.Second))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE")
	for _, blob := range f.Blobs {
		fmt.Fprintf(tw, "%s\t%s\n", blob.Key, humanize.Bytes(uint64(len(blob.Value))))
	}
	return tw.Flush()
}

func newSlotsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "List save slots and autosaves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			tune, err := g.loadTuning(logger)
			if err != nil {
				return err
			}
			d := savefile.NewDir(g.saveDir(), tune.Autosave.Slots)
			return listSlots(d, cmd.OutOrStdout())
		},
	}
}

func listSlots(d *savefile.Dir, out io.Writer) error {
	entries := d.List()
	if len(entries) == 0 {
		fmt.Fprintf(out, "no saves in %s\n", d.Path)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCITY\tDAY\tPOPULATION\tTREASURY\tSIZE\tMODIFIED\tSTATUS")
	for _, e := range entries {
		status := "ok"
		if e.Err != nil {
			status = e.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t$%s\t%s\t%s\t%s\n",
			e.Name, e.Meta.CityName, e.Meta.Day,
			humanize.Comma(int64(e.Meta.Population)),
			humanize.CommafWithDigits(e.Meta.Treasury, 0),
			humanize.Bytes(uint64(e.Size)),
			humanize.Time(e.ModTime),
			status)
	}
	return tw.Flush()
}

func newRecoverCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Remove interrupted writes and report the newest valid autosave",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			tune, err := g.loadTuning(logger)
			if err != nil {
				return err
			}
			d := savefile.NewDir(g.saveDir(), tune.Autosave.Slots)
			r, err := d.Recover()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range r.Removed {
				fmt.Fprintf(out, "removed %s\n", name)
			}
			if !r.Found {
				fmt.Fprintln(out, "no valid autosave")
				return nil
			}
			fmt.Fprintf(out, "latest %s: %s day %d (%s)\n", r.Latest.Name, r.Latest.Meta.CityName, r.Latest.Meta.Day, humanize.Time(r.Latest.ModTime))
			return nil
		},
	}
}
