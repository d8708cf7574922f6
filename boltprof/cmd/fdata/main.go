package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yandex/boltprof/boltprof/internal/buildinfo/cobrabuildinfo"
	"github.com/yandex/boltprof/boltprof/internal/cli"
	"github.com/yandex/boltprof/boltprof/internal/fdataload"
	"github.com/yandex/boltprof/boltprof/pkg/maxprocs"
)

var (
	configPath string
	logLevel   string
	forceNoLBR bool

	rootCmd = &cobra.Command{
		Use:           "fdata",
		Short:         "Inspect and convert BOLT fdata profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func makeCLI() (*cli.App, error) {
	app, err := cli.New(&cli.Config{
		ConfigPath: configPath,
		LogLevel:   logLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize CLI: %w", err)
	}
	return app, nil
}

func makeLoader(app *cli.App) (*fdataload.Loader, error) {
	conf := app.Config().Load
	return fdataload.NewLoader(app.Logger(), app.Metrics(), fdataload.Options{
		ForceNoLBR:       conf.ForceNoLBR || forceNoLBR,
		MaxFileSize:      uint64(conf.MaxFileSize),
		Concurrency:      conf.Concurrency,
		MaxInFlightBytes: uint64(conf.MaxInFlight),
	})
}

// withLoader runs fn with a fully initialized app and loader and tears both down.
func withLoader(fn func(app *cli.App, loader *fdataload.Loader) error) error {
	app, err := makeCLI()
	if err != nil {
		return err
	}
	defer app.Shutdown()

	loader, err := makeLoader(app)
	if err != nil {
		return err
	}
	defer loader.Close()

	return fn(app, loader)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the yaml config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level, overrides the config")
	rootCmd.PersistentFlags().BoolVar(&forceNoLBR, "no-lbr", false, "Parse profiles as no-LBR samples even without the header")

	if err := rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml"); err != nil {
		panic(err)
	}

	cobrabuildinfo.Init(rootCmd)
}

func main() {
	maxprocs.Adjust(false)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}
