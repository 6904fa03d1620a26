package keywords

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExtractionsTotal counts per-summary keyword extraction completions.
	ExtractionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "keywords",
			Name:      "extractions_total",
			Help:      "Total number of keyword extraction completions",
		},
	)

	// FilterBatchesTotal counts genericness-filter batches by result.
	// Labels: result (filtered, dropped).
	FilterBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "keywords",
			Name:      "filter_batches_total",
			Help:      "Total number of keyword filter batches by result",
		},
		[]string{"result"},
	)
)
