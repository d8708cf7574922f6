package cli

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yandex/boltprof/boltprof/internal/config"
	"github.com/yandex/boltprof/boltprof/internal/xmetrics"
	"github.com/yandex/boltprof/boltprof/pkg/xlog"
)

////////////////////////////////////////////////////////////////////////////////

type Config struct {
	// Optional path to the yaml config.
	ConfigPath string
	// Overrides log_level from the config file when set.
	LogLevel string
}

////////////////////////////////////////////////////////////////////////////////

type App struct {
	logger   xlog.Logger
	registry xmetrics.Registry
	config   *config.Config
	context  context.Context
	cancel   func()
}

func New(conf *Config) (*App, error) {
	var err error

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		if err != nil {
			cancel()
		}
	}()

	appConfig := config.Default()
	if conf.ConfigPath != "" {
		appConfig, err = config.ParseConfig(conf.ConfigPath, true /* strict */)
		if err != nil {
			return nil, err
		}
	}
	if conf.LogLevel != "" {
		appConfig.LogLevel = conf.LogLevel
	}

	level, err := zapcore.ParseLevel(appConfig.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	logger, err := NewLogger(level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	registry := xmetrics.NewRegistry(xmetrics.WithNamespace("boltprof"))

	logger.Debug(ctx, "Initialized CLI",
		zap.String("config", conf.ConfigPath),
		zap.String("log_level", appConfig.LogLevel),
		zap.Int("concurrency", appConfig.Load.Concurrency),
	)

	return &App{logger, registry, appConfig, ctx, cancel}, nil
}

////////////////////////////////////////////////////////////////////////////////

// Shutdown flushes metrics to the configured output and releases the app context.
func (a *App) Shutdown() {
	defer a.cancel()
	defer func() { _ = a.logger.Sync() }()

	if path := a.config.Metrics.Output; path != "" {
		if err := a.dumpMetrics(path); err != nil {
			a.logger.Warn(a.context, "Failed to dump metrics", zap.String("path", path), zap.Error(err))
		}
	}
}

func (a *App) dumpMetrics(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := a.registry.StreamMetrics(a.context, file); err != nil {
		return err
	}
	return file.Close()
}

func (a *App) Logger() xlog.Logger {
	return a.logger
}

func (a *App) Metrics() xmetrics.Registry {
	return a.registry
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Context() context.Context {
	return a.context
}

////////////////////////////////////////////////////////////////////////////////
