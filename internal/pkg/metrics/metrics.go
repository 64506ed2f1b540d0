// Package metrics exposes the Prometheus metrics of vehicle-api on a registry owned by the server.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/autopeer-io/vehicle-api/pkg/log"
)

const namespace = "vehicle_api"

// Metrics holds every collector of the service.
type Metrics struct {
	registry *prometheus.Registry

	// operations counts guarded calls by operation and outcome (success/fallback/error).
	operations *prometheus.CounterVec

	// latency measures guarded calls, retries and fallback included.
	latency *prometheus.HistogramVec

	// breakerState is 0 closed, 1 open, 2 half-open.
	breakerState *prometheus.GaugeVec

	vehicles prometheus.Gauge

	// availability is 1 when the kind (liveness/readiness) is up.
	availability *prometheus.GaugeVec
}

// New creates the collectors and registers them, together with the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of vehicle operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of vehicle operations, retries and fallback included.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		vehicles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "vehicles_active",
				Help:      "Number of stored vehicles.",
			},
		),
		availability: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "availability",
				Help:      "Availability flags of the service (1=up, 0=down).",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.operations,
		m.latency,
		m.breakerState,
		m.vehicles,
		m.availability,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOperation records one guarded call.
func (m *Metrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// SetBreakerState sets the state gauge of the named circuit breaker.
func (m *Metrics) SetBreakerState(name string, value float64) {
	m.breakerState.WithLabelValues(name).Set(value)
}

// SetVehicles sets the stored vehicle gauge.
func (m *Metrics) SetVehicles(n int) {
	m.vehicles.Set(float64(n))
}

// SetAvailability sets the gauge of one availability kind.
func (m *Metrics) SetAvailability(kind string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.availability.WithLabelValues(kind).Set(v)
}

// Counter is anything that can count stored records.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// RefreshVehicles updates the vehicle gauge from c every interval until ctx is done.
func (m *Metrics) RefreshVehicles(ctx context.Context, c Counter, interval time.Duration) {
	wait.UntilWithContext(ctx, func(ctx context.Context) {
		n, err := c.Count(ctx)
		if err != nil {
			log.Warn("Failed to count vehicles", "error", err)
			return
		}
		m.SetVehicles(n)
	}, interval)
}
