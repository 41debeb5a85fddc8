package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/premium-engine/pricing"
)

// Quote outcomes, one per error category.
const (
	OutcomeOK           = "ok"
	OutcomeInvalidInput = "invalid_input"
	OutcomeNotFound     = "not_found"
	OutcomeGridError    = "grid_error"
	OutcomeTimeout      = "timeout"
	OutcomeError        = "error"
)

// Metrics holds the rating engine's Prometheus collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	quotes        *prometheus.CounterVec
	quoteDuration *prometheus.HistogramVec
	rowsImported  prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotes_computed_total",
			Help: "Quote computations by product line and outcome.",
		}, []string{"product_line", "outcome"}),
		quoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quote_duration_seconds",
			Help:    "Quote computation latency, tariff lookup included.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"product_line"}),
		rowsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tariff_rows_imported_total",
			Help: "Tariff rows written by grid imports and reloads.",
		}),
	}

	reg.MustRegister(
		m.quotes,
		m.quoteDuration,
		m.rowsImported,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveQuote records one ComputeQuote call.
func (m *Metrics) ObserveQuote(line pricing.ProductLine, err error, elapsed time.Duration) {
	label := string(line)
	if !line.Valid() {
		label = "unknown"
	}
	m.quotes.WithLabelValues(label, Outcome(err)).Inc()
	m.quoteDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveImport(rows int) {
	m.rowsImported.Add(float64(rows))
}

// Outcome classifies a ComputeQuote error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case pricing.IsClientError(err):
		return OutcomeInvalidInput
	case pricing.IsNotFound(err):
		return OutcomeNotFound
	case pricing.IsGridError(err):
		return OutcomeGridError
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}
