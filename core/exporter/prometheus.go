package exporter

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artpar/checked/core/validation"
)

// PrometheusExporter exposes check outcomes for Prometheus scraping.
type PrometheusExporter struct {
	registry *prometheus.Registry
	prefix   string

	// Metrics
	argumentsTotal *prometheus.CounterVec
	coercedTotal   *prometheus.CounterVec
	rejectedTotal  *prometheus.CounterVec
}

// PrometheusConfig configures the Prometheus exporter.
type PrometheusConfig struct {
	// Prefix is added to all metric names (default: "checked").
	Prefix string

	// Labels are constant labels added to all metrics.
	Labels map[string]string

	// ProcessMetrics also registers the Go runtime and process collectors.
	ProcessMetrics bool
}

// NewPrometheusExporter creates a new Prometheus exporter with its own
// registry.
func NewPrometheusExporter(cfg PrometheusConfig) *PrometheusExporter {
	if cfg.Prefix == "" {
		cfg.Prefix = "checked"
	}

	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels(cfg.Labels)

	e := &PrometheusExporter{
		registry: reg,
		prefix:   cfg.Prefix,
	}

	e.argumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        cfg.Prefix + "_arguments_total",
			Help:        "Total number of annotated arguments checked, by outcome",
			ConstLabels: constLabels,
		},
		[]string{"func", "outcome"},
	)

	e.coercedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        cfg.Prefix + "_arguments_coerced_total",
			Help:        "Total number of arguments converted to their declared type",
			ConstLabels: constLabels,
		},
		[]string{"func", "param", "expected"},
	)

	e.rejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        cfg.Prefix + "_arguments_rejected_total",
			Help:        "Total number of arguments rejected with a type mismatch",
			ConstLabels: constLabels,
		},
		[]string{"func", "param", "expected"},
	)

	reg.MustRegister(e.argumentsTotal, e.coercedTotal, e.rejectedTotal)

	if cfg.ProcessMetrics {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return e
}

// Name returns the exporter name.
func (e *PrometheusExporter) Name() string {
	return "prometheus"
}

// Observe counts one checked argument.
func (e *PrometheusExporter) Observe(ev validation.Event) {
	e.argumentsTotal.WithLabelValues(ev.Func, string(ev.Outcome)).Inc()

	param := BaseParam(ev.Param)
	switch ev.Outcome {
	case validation.OutcomeCoerced:
		e.coercedTotal.WithLabelValues(ev.Func, param, ev.Expected).Inc()
	case validation.OutcomeRejected:
		e.rejectedTotal.WithLabelValues(ev.Func, param, ev.Expected).Inc()
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying Prometheus registry.
// Useful for adding custom metrics.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}

// WithCustomMetric registers a custom metric with the exporter.
func (e *PrometheusExporter) WithCustomMetric(collector prometheus.Collector) error {
	return e.registry.Register(collector)
}
