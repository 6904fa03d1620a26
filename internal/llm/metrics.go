package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts completion requests.
	// Labels: provider (openai, ollama), result (success, error)
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total number of completion requests",
		},
		[]string{"provider", "result"},
	)

	// RequestDuration tracks completion request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tutord",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Duration of completion requests in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	// RetriesTotal counts retry attempts after transient failures.
	RetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "llm",
			Name:      "retries_total",
			Help:      "Total number of completion retries after transient failures",
		},
	)
)
