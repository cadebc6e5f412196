// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qa"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// VoteMetrics holds the metrics of the vote coordinator. A nil *VoteMetrics is a no-op.
type VoteMetrics struct {
	VotesSubmitted  *prometheus.CounterVec
	VoteDuration    prometheus.Histogram
	Conflicts       prometheus.Counter
	ReputationMoved *prometheus.CounterVec
}

// NewVoteMetrics creates and registers vote metrics on reg.
func NewVoteMetrics(reg prometheus.Registerer) *VoteMetrics {
	m := &VoteMetrics{
		VotesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_submitted_total",
			Help:      "Vote submissions by target kind and outcome.",
		}, []string{"kind", "outcome"}),
		VoteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vote_duration_seconds",
			Help:      "Duration of a vote submission including retries.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_conflicts_total",
			Help:      "Write conflicts reported by the store during vote submission.",
		}),
		ReputationMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_reputation_delta_total",
			Help:      "Absolute reputation points moved by committed votes, by target kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(m.VotesSubmitted, m.VoteDuration, m.Conflicts, m.ReputationMoved)
	return m
}

func (m *VoteMetrics) ObserveVote(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.VotesSubmitted.WithLabelValues(kind, outcome).Inc()
	m.VoteDuration.Observe(elapsed.Seconds())
}

func (m *VoteMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.Conflicts.Inc()
}

func (m *VoteMetrics) ObserveReputation(kind string, points int) {
	if m == nil || points == 0 {
		return
	}
	if points < 0 {
		points = -points
	}
	m.ReputationMoved.WithLabelValues(kind).Add(float64(points))
}
