// Package metrics is the Prometheus-backed implementation of
// orchestrator.Metrics (SS11: turn-stage latency, pane-poll, and
// route-tier counters), grounded on ent0n29's observability package shape.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every Prometheus instrument jarvisd exposes.
type Metrics struct {
	TurnStageLatency *prometheus.HistogramVec
	RouteTierCount   *prometheus.CounterVec
	PanePollCount    prometheus.Counter
}

// New registers every instrument under the given namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		TurnStageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_stage_latency_ms",
			Help:      "Conversation turn-stage latency in milliseconds.",
			Buckets:   []float64{20, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 20000, 60000},
		}, []string{"stage"}),
		RouteTierCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_tier_total",
			Help:      "THINKING-state routing decisions by tier.",
		}, []string{"tier"}),
		PanePollCount: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pane_polls_total",
			Help:      "Total Pane Monitor poll cycles.",
		}),
	}
}

// TurnStage implements orchestrator.Metrics.
func (m *Metrics) TurnStage(stage string, dur time.Duration) {
	m.TurnStageLatency.WithLabelValues(stage).Observe(float64(dur.Milliseconds()))
}

// RouteTier implements orchestrator.Metrics.
func (m *Metrics) RouteTier(tier string) {
	m.RouteTierCount.WithLabelValues(tier).Inc()
}

// PanePoll implements orchestrator.Metrics.
func (m *Metrics) PanePoll() {
	m.PanePollCount.Inc()
}

// Handler serves the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
