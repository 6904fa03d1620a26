package outline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutlinesTotal counts outline syntheses by how rows were obtained:
// structured, fallback, or failed.
var OutlinesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tutord",
		Subsystem: "outline",
		Name:      "syntheses_total",
		Help:      "Total outline syntheses by extraction outcome.",
	},
	[]string{"result"},
)
