package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ActionsTotal counts action log entries by action type.
var ActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tutord",
		Subsystem: "session",
		Name:      "actions_total",
		Help:      "Total recorded user actions by type.",
	},
	[]string{"type"},
)
