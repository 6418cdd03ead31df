package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eloforge"

// Metrics holds the battle engine's prometheus collectors
type Metrics struct {
	registry        *prometheus.Registry
	comparisons     prometheus.Counter
	ratingWrites    *prometheus.CounterVec
	selections      *prometheus.CounterVec
	sessionsStarted prometheus.Counter
	activeSessions  prometheus.Gauge
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		comparisons: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Pairwise comparisons recorded.",
		}),
		ratingWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_writes_total",
			Help:      "Background rating writes by result.",
		}, []string{"result"}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matchup_selections_total",
			Help:      "Matchup selections by kind (grouped, fallback, repeat).",
		}, []string{"kind"}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "battle_sessions_started_total",
			Help:      "Battle sessions started.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battle_sessions_active",
			Help:      "Battle sessions currently held in memory.",
		}),
	}

	m.registry.MustRegister(
		m.comparisons,
		m.ratingWrites,
		m.selections,
		m.sessionsStarted,
		m.activeSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ComparisonRecorded counts one comparison
func (m *Metrics) ComparisonRecorded() {
	m.comparisons.Inc()
}

// RatingWritten counts one background rating write
func (m *Metrics) RatingWritten(err error) {
	if err != nil {
		m.ratingWrites.WithLabelValues("failure").Inc()
		return
	}
	m.ratingWrites.WithLabelValues("success").Inc()
}

// PairSelected counts one matchup selection
func (m *Metrics) PairSelected(fallback, repeat bool) {
	switch {
	case fallback:
		m.selections.WithLabelValues("fallback").Inc()
	case repeat:
		m.selections.WithLabelValues("repeat").Inc()
	default:
		m.selections.WithLabelValues("grouped").Inc()
	}
}

// SessionStarted counts a new battle session
func (m *Metrics) SessionStarted() {
	m.sessionsStarted.Inc()
}

// SessionsActive reports the number of live sessions
func (m *Metrics) SessionsActive(n int) {
	m.activeSessions.Set(float64(n))
}
