package events

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "railscan",
		Name:      "session_ticks_total",
		Help:      "Total recognition round trips dispatched across all sessions.",
	})

	OutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "railscan",
		Name:      "session_outcomes_total",
		Help:      "Classified round-trip outcomes by kind.",
	}, []string{"kind"})

	RoundTripDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "railscan",
		Name:      "recognition_round_trip_seconds",
		Help:      "Recognition round-trip latency in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10},
	})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "railscan",
		Name:      "active_sessions",
		Help:      "Number of currently open detection sessions.",
	})

	TerminalResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "railscan",
		Name:      "session_results_total",
		Help:      "Terminal session results by disposition (matched, fatal kind, closed).",
	}, []string{"disposition"})
)

var registerOnce sync.Once

// Register installs the collectors into the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			TicksTotal,
			OutcomesTotal,
			RoundTripDuration,
			ActiveSessions,
			TerminalResultsTotal,
		)
	})
}
