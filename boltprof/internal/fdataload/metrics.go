package fdataload

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yandex/boltprof/boltprof/internal/xmetrics"
)

type loaderMetrics struct {
	files         *prometheus.CounterVec
	bytes         *prometheus.CounterVec
	parseDuration *prometheus.HistogramVec
	records       *prometheus.CounterVec
	skipped       *prometheus.CounterVec
}

func newLoaderMetrics(r xmetrics.Registry) *loaderMetrics {
	return &loaderMetrics{
		files:         r.Counter("fdata.files_loaded_total", "Number of fdata files loaded", "mode", "status"),
		bytes:         r.Counter("fdata.load_bytes_total", "Bytes of fdata read", "compression"),
		parseDuration: r.Histogram("fdata.parse_duration_seconds", "Time spent parsing fdata", prometheus.ExponentialBuckets(0.001, 4, 10), "mode"),
		records:       r.Counter("fdata.records_total", "Parsed fdata records", "kind"),
		skipped:       r.Counter("fdata.skipped_records_total", "Parsed fdata records without a known symbol", "kind"),
	}
}
