package xmetrics

import (
	"context"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yandex/boltprof/boltprof/pkg/xlog"
)

type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer

	Counter(name string, help string, labels ...string) *prometheus.CounterVec
	Histogram(name string, help string, buckets []float64, labels ...string) *prometheus.HistogramVec

	HTTPHandler(ctx context.Context, logger xlog.Logger) http.Handler
	StreamMetrics(ctx context.Context, w io.Writer) error
}
