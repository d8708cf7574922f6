package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yandex/boltprof/boltprof/internal/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate the config and print it with defaults applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return fmt.Errorf("--config is required")
		}
		conf, err := config.ParseConfig(configPath, true /* strict */)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return conf.Dump(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateConfigCmd)
}
