package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilesProcessed counts source files seen per ingestion.
	// Labels: result (processed, cached)
	FilesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Total number of source files handled, by result",
		},
		[]string{"result"},
	)

	// ChunksCreated counts newly created chunks.
	ChunksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "ingest",
			Name:      "chunks_created_total",
			Help:      "Total number of document chunks created",
		},
	)

	// IngestDuration tracks how long a full ingestion takes.
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tutord",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Duration of full ingestion runs in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)
)
