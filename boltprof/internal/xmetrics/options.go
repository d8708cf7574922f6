package xmetrics

import "github.com/prometheus/client_golang/prometheus"

type Format int

const (
	FormatUnspecified Format = iota
	FormatText
	FormatOpenMetrics
)

type config struct {
	format     Format
	namespace  string
	collectors []prometheus.Collector
}

type Option func(*config)

func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

func WithNamespace(namespace string) Option {
	return func(c *config) {
		c.namespace = namespace
	}
}

func WithAddCollectors(collectors ...prometheus.Collector) Option {
	return func(c *config) {
		c.collectors = append(c.collectors, collectors...)
	}
}

func collectOptions(options ...Option) *config {
	conf := &config{}
	for _, opt := range options {
		opt(conf)
	}
	return conf
}
