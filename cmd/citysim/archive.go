package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cityforge.dev/internal/persistence/archive"
	"cityforge.dev/internal/persistence/savefile"
)

func newArchiveCmd(g *globalFlags) *cobra.Command {
	var (
		year    int
		extract string
	)
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "List year-end archives, or extract one as a plain save file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if year == 0 {
				return listArchives(g.dataDir, out)
			}
			f, err := archive.Open(g.dataDir, year)
			if err != nil {
				return err
			}
			if extract == "" {
				fmt.Fprintf(out, "year %d: %s day %d, %d blobs\n", year, f.Meta.CityName, f.Meta.Day, len(f.Blobs))
				return nil
			}
			if err := savefile.WriteFile(extract, f); err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %s\n", extract)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "archived year to open")
	cmd.Flags().StringVar(&extract, "extract", "", "write the year's save to this path")
	return cmd
}

func listArchives(dataDir string, out io.Writer) error {
	list, err := archive.List(dataDir)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "no archives")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tCITY\tPOPULATION\tTREASURY\tSIZE\tRATIO")
	for _, m := range list {
		ratio := 0.0
		if m.Bytes > 0 {
			ratio = float64(m.RawBytes) / float64(m.Bytes)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t$%s\t%s\t%.1fx\n",
			m.Year, m.CityName,
			humanize.Comma(int64(m.Population)),
			humanize.CommafWithDigits(m.Treasury, 0),
			humanize.Bytes(uint64(m.Bytes)),
			ratio)
	}
	return tw.Flush()
}
