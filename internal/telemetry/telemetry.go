// Package telemetry exposes Prometheus metrics for the admin service.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "search_admin"

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	// Correlation metrics
	Correlations          *prometheus.CounterVec
	CorrelationDuration   *prometheus.HistogramVec
	PendingCorrelations   prometheus.Gauge
	UncorrelatedDelivered prometheus.Counter

	// Mapping store metrics
	StoreOperations *prometheus.CounterVec
}

// New registers all metrics on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{registry: reg}
	initCorrelationMetrics(m, promauto.With(reg))
	initStoreMetrics(m, promauto.With(reg))
	return m
}

func initCorrelationMetrics(m *Metrics, f promauto.Factory) {
	m.Correlations = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "correlations_total",
		Help:      "Engine commands by outcome of their correlated wait",
	}, []string{"command", "outcome"})

	m.CorrelationDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "correlation_duration_seconds",
		Help:      "Time from sending a command to its notification or give-up",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"command"})

	m.PendingCorrelations = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_correlations",
		Help:      "Commands currently waiting for a notification",
	})

	m.UncorrelatedDelivered = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uncorrelated_notifications_total",
		Help:      "Notifications dropped because nobody was waiting for them",
	})
}

func initStoreMetrics(m *Metrics, f promauto.Factory) {
	m.StoreOperations = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mapping_store_operations_total",
		Help:      "Mapping store operations by outcome",
	}, []string{"operation", "outcome"})
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCorrelation records the outcome and latency of one correlated command.
func (m *Metrics) ObserveCorrelation(command, outcome string, elapsed time.Duration) {
	m.Correlations.WithLabelValues(command, outcome).Inc()
	m.CorrelationDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

func (m *Metrics) SetPendingCorrelations(n int) {
	m.PendingCorrelations.Set(float64(n))
}

func (m *Metrics) IncUncorrelatedNotifications() {
	m.UncorrelatedDelivered.Inc()
}

// ObserveStoreOperation counts one mapping store operation.
func (m *Metrics) ObserveStoreOperation(operation, outcome string) {
	m.StoreOperations.WithLabelValues(operation, outcome).Inc()
}
