// Package metrics exposes dashboard counters on a prometheus registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "enrollwatch"

// Metrics holds every collector the dashboard records to.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	forecastsGenerated prometheus.Counter
	forecastFailures   *prometheus.CounterVec
	anomalyScans       *prometheus.CounterVec
	anomaliesFlagged   *prometheus.GaugeVec
	exports            *prometheus.CounterVec
	eventsPublished    *prometheus.CounterVec
	eventsFailed       *prometheus.CounterVec
}

// New registers the dashboard collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests by route.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5},
		}, []string{"route"}),
		forecastsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_generated_total",
			Help:      "Total number of district forecasts computed.",
		}),
		forecastFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_failures_total",
			Help:      "Total number of forecast failures by reason.",
		}, []string{"reason"}),
		anomalyScans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomaly_scans_total",
			Help:      "Total number of IQR anomaly scans by scope.",
		}, []string{"scope"}),
		anomaliesFlagged: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "anomalies_flagged",
			Help:      "Records flagged by the most recent scan of each scope.",
		}, []string{"scope"}),
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Total number of forecast exports by format.",
		}, []string{"format"}),
		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events accepted by the broker.",
		}, []string{"subject"}),
		eventsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of events the broker rejected.",
		}, []string{"subject"}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware counts requests by matched route so path parameters do not explode cardinality
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		m.httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}

// ForecastGenerated records a successful forecast
func (m *Metrics) ForecastGenerated() {
	if m == nil {
		return
	}
	m.forecastsGenerated.Inc()
}

// ForecastFailed records a failed forecast under an error code
func (m *Metrics) ForecastFailed(reason string) {
	if m == nil {
		return
	}
	m.forecastFailures.WithLabelValues(reason).Inc()
}

// AnomalyScan records a scan and the number of flagged records
func (m *Metrics) AnomalyScan(scope string, flagged int) {
	if m == nil {
		return
	}
	m.anomalyScans.WithLabelValues(scope).Inc()
	m.anomaliesFlagged.WithLabelValues(scope).Set(float64(flagged))
}

// Exported records a forecast export
func (m *Metrics) Exported(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

// EventPublished records the outcome of an event publish
func (m *Metrics) EventPublished(subject string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.eventsFailed.WithLabelValues(subject).Inc()
		return
	}
	m.eventsPublished.WithLabelValues(subject).Inc()
}
