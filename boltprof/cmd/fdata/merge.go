package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yandex/boltprof/boltprof/internal/cli"
	"github.com/yandex/boltprof/boltprof/internal/fdataload"
	"github.com/yandex/boltprof/boltprof/pkg/fdata"
)

var (
	mergeOutput string

	mergeCmd = &cobra.Command{
		Use:   "merge -o <output> <file>...",
		Short: "Sum several profiles into one fdata file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLoader(func(app *cli.App, loader *fdataload.Loader) error {
				results, err := loader.LoadAll(app.Context(), args)
				if err != nil {
					return err
				}

				merged := fdata.NewProfile()
				merged.NoLBR = !results[0].Reader.HasLBR()
				for _, res := range results {
					if err := merged.MergeFrom(res.Reader.Profile()); err != nil {
						return fmt.Errorf("failed to merge %s: %w", res.Name, err)
					}
				}

				app.Logger().Info(app.Context(), "Merged profiles",
					zap.Int("files", len(results)),
					zap.String("output", mergeOutput),
				)

				return writeOutput(cmd.OutOrStdout(), mergeOutput, func(w io.Writer) error {
					return fdata.Encode(w, merged)
				})
			})
		},
	}
)

// writeOutput writes to path, or to stdout when path is "-".
func writeOutput(stdout io.Writer, path string, write func(w io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := write(file); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "Output path, - for stdout")
	if err := mergeCmd.MarkFlagRequired("output"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(mergeCmd)
}
