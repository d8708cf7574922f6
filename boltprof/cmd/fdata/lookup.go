package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yandex/boltprof/boltprof/internal/cli"
	"github.com/yandex/boltprof/boltprof/internal/fdataload"
	"github.com/yandex/boltprof/boltprof/pkg/fdata"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <file> <name>...",
	Short: "Find profile data of a function by any of its names",
	Long: "Names are tried from last to first. When no name matches exactly, " +
		"profiles of LTO variants sharing the common name are listed.",
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLoader(func(app *cli.App, loader *fdataload.Loader) error {
			res, err := loader.LoadFile(app.Context(), args[0])
			if err != nil {
				return err
			}
			return lookup(cmd.OutOrStdout(), res.Reader, args[1:])
		})
	},
}

func lookup(w io.Writer, r *fdata.Reader, names []string) error {
	found := false

	if r.HasLBR() {
		for _, d := range r.GetFuncBranchDataRegex(names) {
			found = true
			fmt.Fprintf(w, "%s: %d branches in %d edges, %d entry edges, executed %d times\n",
				d.Name, d.TotalBranches(), len(d.Data), len(d.EntryData), d.ExecutionCount)
		}
	} else {
		d, err := r.GetFuncSampleData(names)
		switch {
		case err == nil:
			found = true
			fmt.Fprintf(w, "%s: %d samples at %d addresses\n", d.Name, d.TotalHits(), len(d.Data))
		case !errors.Is(err, fdata.ErrNotFound):
			return err
		}
	}

	for _, d := range r.GetFuncMemDataRegex(names) {
		found = true
		fmt.Fprintf(w, "%s: %d memory events at %d sites\n", d.Name, d.TotalCount(), len(d.Data))
	}

	if !found {
		return fmt.Errorf("%v: %w", names, fdata.ErrNotFound)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
