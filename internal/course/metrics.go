package course

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts generation runs by outcome: completed, failed,
	// or canceled.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "course",
			Name:      "runs_total",
			Help:      "Total course generation runs by outcome.",
		},
		[]string{"outcome"},
	)

	// SlidesTotal counts per-topic slide outcomes across all runs.
	SlidesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "course",
			Name:      "slides_total",
			Help:      "Total slides by result: generated or skipped.",
		},
		[]string{"result"},
	)

	// RunDuration observes wall-clock duration of completed runs.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tutord",
			Subsystem: "course",
			Name:      "run_duration_seconds",
			Help:      "Duration of completed course generation runs.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)
)
