package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fanline"

var (
	queueJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "joins_total",
			Help:      "Queue join attempts by outcome",
		},
		[]string{"outcome"},
	)

	queueTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "transitions_total",
			Help:      "Entry state transitions by target state",
		},
		[]string{"to"},
	)

	renumberMoves = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "renumber_moves_total",
			Help:      "Entries moved by renumbering passes",
		},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "sweep_duration_seconds",
			Help:      "Time to run one notification sweep",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	sweepProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "sweep_entries_total",
			Help:      "Waiting entries inspected by sweeps",
		},
	)
)

func recordJoin(outcome string) {
	queueJoins.WithLabelValues(outcome).Inc()
}

func recordTransition(to string) {
	queueTransitions.WithLabelValues(to).Inc()
}

func recordRenumberMoves(count int) {
	renumberMoves.Add(float64(count))
}

func recordSweep(processed int, duration time.Duration) {
	sweepProcessed.Add(float64(processed))
	sweepDuration.Observe(duration.Seconds())
}
