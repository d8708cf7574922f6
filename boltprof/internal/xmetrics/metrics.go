package xmetrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/yandex/boltprof/boltprof/pkg/xlog"
)

type promErrorLogger struct {
	ctx    context.Context
	logger xlog.Logger
}

func (l *promErrorLogger) Println(v ...any) {
	l.logger.Warn(l.ctx, "Failed to serve metrics", zap.String("error", fmt.Sprint(v...)))
}

type prometheusRegistry struct {
	*prometheus.Registry
	namespace string
	format    Format
}

var _ Registry = (*prometheusRegistry)(nil)

func (r *prometheusRegistry) HTTPHandler(ctx context.Context, logger xlog.Logger) http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{
		ErrorLog:          &promErrorLogger{ctx, logger},
		EnableOpenMetrics: r.format == FormatOpenMetrics,
	})
}

func (r *prometheusRegistry) StreamMetrics(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	families, err := r.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	if r.format == FormatOpenMetrics {
		format = expfmt.NewFormat(expfmt.TypeOpenMetrics)
	}

	enc := expfmt.NewEncoder(w, format)
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", family.GetName(), err)
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (r *prometheusRegistry) Counter(name string, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      sanitizePrometheusMetricName(name),
		Help:      help,
	}, labels)
	return registerOrGet(r.Registry, c)
}

func (r *prometheusRegistry) Histogram(name string, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      sanitizePrometheusMetricName(name),
		Help:      help,
		Buckets:   buckets,
	}, labels)
	return registerOrGet(r.Registry, h)
}

// registerOrGet returns the already registered collector when an identical one exists,
// so independent components may ask for the same metric.
func registerOrGet[T prometheus.Collector](r prometheus.Registerer, c T) T {
	if err := r.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func NewRegistry(options ...Option) Registry {
	conf := collectOptions(options...)

	registry := prometheus.NewRegistry()
	registry.MustRegister(conf.collectors...)

	return &prometheusRegistry{
		Registry:  registry,
		namespace: sanitizePrometheusMetricName(conf.namespace),
		format:    conf.format,
	}
}

// See https://prometheus.io/docs/concepts/data_model/#metric-names-and-labels
var prometheusMetricSanitizer = strings.NewReplacer(
	".", "_",
	"-", "_",
)

func sanitizePrometheusMetricName(name string) string {
	return prometheusMetricSanitizer.Replace(name)
}
