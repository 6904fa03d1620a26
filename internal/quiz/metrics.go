package quiz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildsTotal counts quiz builds by outcome: ok, parse_failed,
	// or error.
	BuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "quiz",
			Name:      "builds_total",
			Help:      "Total quiz builds by outcome.",
		},
		[]string{"outcome"},
	)

	// ScoresTotal counts scored attempts by assigned level.
	ScoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "quiz",
			Name:      "scores_total",
			Help:      "Total scored quiz attempts by expertise level.",
		},
		[]string{"level"},
	)
)
