package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render outcomes recorded by RenderMetrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeStopped = "stopped"
)

// FallbackHandler labels nodes that no handler macro matched.
const FallbackHandler = "fallback"

// RenderMetrics tracks template rendering.
//
// Metrics:
//   - <ns>_renders_total: renders by template and outcome
//   - <ns>_render_duration_seconds: render duration by template
//   - <ns>_imports_total: library imports by library name
//   - <ns>_node_handlers_total: visited document nodes by handler
//
// A nil *RenderMetrics is valid and records nothing.
type RenderMetrics struct {
	registry *prometheus.Registry

	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	importsTotal   *prometheus.CounterVec
	handlersTotal  *prometheus.CounterVec
}

// NewRenderMetrics creates and registers the render metrics. A nil registry
// gets a private one.
func NewRenderMetrics(namespace string, registry *prometheus.Registry) *RenderMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "ftl"
	}
	m := &RenderMetrics{
		registry: registry,
		rendersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Total number of template renders",
			},
			[]string{"template", "outcome"},
		),
		renderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Duration of template renders in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
			},
			[]string{"template"},
		),
		importsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Total number of library imports executed",
			},
			[]string{"library"},
		),
		handlersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_handlers_total",
				Help:      "Total number of document nodes dispatched, by handler",
			},
			[]string{"handler"},
		),
	}
	registry.MustRegister(m.rendersTotal, m.renderDuration, m.importsTotal, m.handlersTotal)
	return m
}

// Registry exposes the registry the metrics were registered with.
func (m *RenderMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *RenderMetrics) RecordRender(template, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.rendersTotal.WithLabelValues(template, outcome).Inc()
	m.renderDuration.WithLabelValues(template).Observe(duration.Seconds())
}

func (m *RenderMetrics) RecordImport(library string) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(library).Inc()
}

func (m *RenderMetrics) RecordNodeHandler(handler string) {
	if m == nil {
		return
	}
	m.handlersTotal.WithLabelValues(handler).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *RenderMetrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
