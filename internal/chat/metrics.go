package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatsTotal counts chat exchanges by outcome.
	ChatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "chat",
			Name:      "exchanges_total",
			Help:      "Total chat exchanges by outcome.",
		},
		[]string{"outcome"},
	)

	// ToolCallsTotal counts study_materials tool invocations.
	ToolCallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "chat",
			Name:      "tool_calls_total",
			Help:      "Total study_materials tool invocations.",
		},
	)
)
