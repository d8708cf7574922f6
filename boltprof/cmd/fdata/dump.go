package main

import (
	"bufio"

	"github.com/spf13/cobra"

	"github.com/yandex/boltprof/boltprof/internal/cli"
	"github.com/yandex/boltprof/boltprof/internal/fdataload"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the parsed content of a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLoader(func(app *cli.App, loader *fdataload.Loader) error {
			res, err := loader.LoadFile(app.Context(), args[0])
			if err != nil {
				return err
			}

			w := bufio.NewWriter(cmd.OutOrStdout())
			if err := res.Reader.Dump(w); err != nil {
				return err
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
