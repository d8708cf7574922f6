package xlog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yandex/boltprof/boltprof/pkg/xlog"
)

func newObserved(level zapcore.Level) (xlog.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return xlog.New(zap.New(core)), logs
}

func TestLoggerAddsTraceFields(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	traceID := trace.TraceID{1, 2, 3}
	spanID := trace.SpanID{4, 5, 6}
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	l.WithName("loader").With(zap.String("file", "a.fdata")).Info(ctx, "Loaded profile")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "loader", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	require.Equal(t, "a.fdata", fields["file"])
	require.Equal(t, traceID.String(), fields["trace.id"])
	require.Equal(t, spanID.String(), fields["span.id"])
}

func TestLoggerWithoutSpan(t *testing.T) {
	l, logs := newObserved(zapcore.InfoLevel)

	l.Debug(context.Background(), "hidden")
	l.Warn(context.Background(), "visible", zap.Int("n", 1))

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "visible", entries[0].Message)
	require.NotContains(t, entries[0].ContextMap(), "trace.id")
}

func TestDiagWriter(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	w := xlog.NewDiagWriter(context.Background(), l, zap.String("file", "broken.fdata"))
	_, err := w.Write([]byte("error reading profile data: line 1, column 0: first\nerror reading"))
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())

	_, err = w.Write([]byte(" profile data: line 2, column 3: second\ntail"))
	require.NoError(t, err)
	require.Equal(t, 2, logs.Len())

	require.NoError(t, w.Close())
	require.Equal(t, 3, w.Lines())

	entries := logs.All()
	require.Equal(t, "error reading profile data: line 2, column 3: second", entries[1].Message)
	require.Equal(t, "tail", entries[2].Message)
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	require.Equal(t, "broken.fdata", entries[0].ContextMap()["file"])
}

func TestNop(t *testing.T) {
	l := xlog.NewNop()
	l.Info(context.Background(), "nothing")
	require.NotNil(t, l.Logger())
}
