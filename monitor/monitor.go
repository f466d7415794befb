// monitor/monitor.go
package monitor

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/matchlobby/events"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	OpenMatches      prometheus.Gauge
	MatchesStarted   prometheus.Counter
	Requests         *prometheus.CounterVec
	RequestLatency   *prometheus.HistogramVec
	MessagesReceived prometheus.Counter
	Uptime           prometheus.GaugeFunc
}

func NewMetrics(namespace string, startTime time.Time) *Metrics {
	return &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected players",
		}),
		OpenMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_matches",
			Help:      "Number of live matches",
		}),
		MatchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_started_total",
			Help:      "Total number of matches moved out of the lobby",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lobby_requests_total",
			Help:      "Lobby commands by operation and outcome",
		}, []string{"op", "outcome"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lobby_request_seconds",
			Help:      "Lobby command latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}, []string{"op"}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		Uptime: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the server started",
		}, func() float64 {
			return time.Since(startTime).Seconds()
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OnlinePlayers,
		m.OpenMatches,
		m.MatchesStarted,
		m.Requests,
		m.RequestLatency,
		m.MessagesReceived,
		m.Uptime,
	}
}

// Monitor owns the lobby metrics and the registry they are exposed from.
// It observes lobby requests and consumes lifecycle events.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	start := time.Now()
	m := &Monitor{
		metrics:   NewMetrics(namespace, start),
		registry:  prometheus.NewRegistry(),
		startTime: start,
	}
	m.registry.MustRegister(m.metrics.collectors()...)
	return m
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetOpenMatches(count int) {
	m.metrics.OpenMatches.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
}

// ObserveRequest records one handled lobby command.
func (m *Monitor) ObserveRequest(op, outcome string, took time.Duration) {
	m.metrics.Requests.WithLabelValues(op, outcome).Inc()
	m.metrics.RequestLatency.WithLabelValues(op).Observe(took.Seconds())
}

// Publish tracks match counts from lifecycle events.
func (m *Monitor) Publish(ctx context.Context, e events.Event) error {
	switch e.Type {
	case events.MatchHosted:
		m.metrics.OpenMatches.Inc()
	case events.MatchClosed:
		m.metrics.OpenMatches.Dec()
	case events.MatchStarted:
		m.metrics.MatchesStarted.Inc()
	}
	return nil
}
