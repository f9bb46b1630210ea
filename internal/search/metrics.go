package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TFMV/pathfinder/internal/walk"
)

// Metrics records engine activity as Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	sessionsStarted  prometheus.Counter
	sessionsFinished *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	results          *prometheus.CounterVec
	entriesVisited   prometheus.Counter
	walkErrors       prometheus.Counter
	joinTimeouts     prometheus.Counter
	sessionDuration  prometheus.Histogram
}

// NewMetrics creates the engine collectors and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pathfinder",
			Name:      "sessions_started_total",
			Help:      "Search sessions started.",
		}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pathfinder",
			Name:      "sessions_finished_total",
			Help:      "Search sessions finished, by final state.",
		}, []string{"state"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pathfinder",
			Name:      "active_sessions",
			Help:      "Workers currently running, including workers that outlived a stop.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pathfinder",
			Name:      "results_total",
			Help:      "Results delivered to result streams, by kind.",
		}, []string{"kind"}),
		entriesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pathfinder",
			Name:      "entries_visited_total",
			Help:      "Filesystem entries visited by workers.",
		}),
		walkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pathfinder",
			Name:      "walk_errors_total",
			Help:      "Entries or subtrees skipped because of filesystem errors.",
		}),
		joinTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pathfinder",
			Name:      "join_timeouts_total",
			Help:      "Stops that gave up waiting for a worker to exit.",
		}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pathfinder",
			Name:      "session_duration_seconds",
			Help:      "Wall time of search sessions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.sessionsStarted,
			m.sessionsFinished,
			m.activeSessions,
			m.results,
			m.entriesVisited,
			m.walkErrors,
			m.joinTimeouts,
			m.sessionDuration,
		)
	}
	return m
}

func (m *Metrics) sessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
	m.activeSessions.Inc()
}

func (m *Metrics) sessionFinished(state State, stats walk.Stats, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
	m.sessionsFinished.WithLabelValues(state.String()).Inc()
	m.entriesVisited.Add(float64(stats.Files + stats.Dirs))
	m.walkErrors.Add(float64(stats.Errors))
	m.sessionDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) resultSent(kind Kind) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) joinTimedOut() {
	if m == nil {
		return
	}
	m.joinTimeouts.Inc()
}
