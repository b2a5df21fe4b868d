// Package metrics exposes gateway counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wirechat"

// Event outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)

// Metrics holds the gateway collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	connections prometheus.Gauge
	evictions   prometheus.Counter
	authFails   prometheus.Counter
	events      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New registers the gateway collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Users holding a live websocket connection.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Connections replaced by a newer login of the same user.",
		}),
		authFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Websocket handshakes rejected during authentication.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events by name and outcome.",
		}, []string{"event", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Inbound event handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connections, m.evictions, m.authFails, m.events, m.duration,
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Connections sets the number of users currently present.
func (m *Metrics) Connections(n int) {
	if m != nil {
		m.connections.Set(float64(n))
	}
}

func (m *Metrics) Evicted() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *Metrics) AuthFailed() {
	if m != nil {
		m.authFails.Inc()
	}
}

// Event records one handled inbound event.
func (m *Metrics) Event(name, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name, outcome).Inc()
	m.duration.WithLabelValues(name).Observe(took.Seconds())
}
