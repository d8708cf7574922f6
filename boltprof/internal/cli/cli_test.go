package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAppDefaults(t *testing.T) {
	app, err := New(&Config{})
	require.NoError(t, err)
	defer app.Shutdown()

	require.Equal(t, "info", app.Config().LogLevel)
	require.Equal(t, 4, app.Config().Load.Concurrency)
	require.NoError(t, app.Context().Err())
}

func TestNewAppLogLevelOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	metricsPath := filepath.Join(dir, "metrics.txt")
	require.NoError(t, os.WriteFile(configPath, []byte("log_level: warn\nmetrics:\n  output: "+metricsPath+"\n"), 0o644))

	app, err := New(&Config{ConfigPath: configPath, LogLevel: "debug"})
	require.NoError(t, err)
	require.Equal(t, "debug", app.Config().LogLevel)

	app.Metrics().Counter("test.events", "Test events").WithLabelValues().Inc()
	app.Shutdown()
	require.Error(t, app.Context().Err())

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	require.Contains(t, string(metrics), "boltprof_test_events 1")
}

func TestNewAppInvalidLevel(t *testing.T) {
	_, err := New(&Config{LogLevel: "loud"})
	require.ErrorContains(t, err, "failed to parse log level")
}
