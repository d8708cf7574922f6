package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/yandex/boltprof/boltprof/internal/cli"
	"github.com/yandex/boltprof/boltprof/internal/fdataload"
	"github.com/yandex/boltprof/boltprof/internal/pprofexport"
)

var (
	pprofOutput string

	pprofCmd = &cobra.Command{
		Use:   "pprof -o <output> <file>",
		Short: "Convert a profile to pprof",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLoader(func(app *cli.App, loader *fdataload.Loader) error {
				res, err := loader.LoadFile(app.Context(), args[0])
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), pprofOutput, func(w io.Writer) error {
					return pprofexport.Write(w, res.Reader.Profile())
				})
			})
		},
	}
)

func init() {
	pprofCmd.Flags().StringVarP(&pprofOutput, "output", "o", "", "Output path, - for stdout")
	if err := pprofCmd.MarkFlagRequired("output"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(pprofCmd)
}
