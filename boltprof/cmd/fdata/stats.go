package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yandex/boltprof/boltprof/internal/cli"
	"github.com/yandex/boltprof/boltprof/internal/fdataload"
)

var statsCmd = &cobra.Command{
	Use:   "stats <file>...",
	Short: "Print a summary of each profile",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLoader(func(app *cli.App, loader *fdataload.Loader) error {
			results, err := loader.LoadAll(app.Context(), args)
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), results)
		})
	},
}

func printStats(out io.Writer, results []*fdataload.Result) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tMODE\tFUNCS\tBRANCHES\tMEM\tSAMPLES\tEVENTS\tSIZE\tCHECKSUM")
	for _, res := range results {
		stats := res.Reader.Profile().Stats()
		funcs := max(stats.BranchFunctions, stats.SampleFunctions)

		var events string
		for i, event := range res.Reader.Profile().SortedEventNames() {
			if i > 0 {
				events += ","
			}
			events += event
		}
		if events == "" {
			events = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%016x\n",
			res.Name,
			res.Mode(),
			funcs,
			humanize.Comma(stats.TotalBranches),
			humanize.Comma(int64(stats.TotalMemEvents)),
			humanize.Comma(stats.TotalSamples),
			events,
			humanize.IBytes(res.Size),
			res.Checksum,
		)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
