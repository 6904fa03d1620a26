package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildsTotal counts sync outcomes per index.
	// Labels: index (vector, tree), outcome (loaded, rebuilt).
	BuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "index",
			Name:      "builds_total",
			Help:      "Total number of index syncs by outcome",
		},
		[]string{"index", "outcome"},
	)

	// BuildDuration tracks how long index syncs take. Rebuilds embed the
	// whole corpus, so the upper buckets are generous.
	BuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tutord",
			Subsystem: "index",
			Name:      "build_duration_seconds",
			Help:      "Duration of index syncs in seconds",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		},
		[]string{"index"},
	)

	// QueriesTotal counts index queries.
	// Labels: index (vector, tree).
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "index",
			Name:      "queries_total",
			Help:      "Total number of index queries",
		},
		[]string{"index"},
	)
)
