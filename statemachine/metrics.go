package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric outcome constants.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

var (
	// dispatchTotal counts HandleMessage calls by the state that handled them.
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flexiflow_machine_dispatch_total",
		Help: "Total number of messages dispatched to a state, by state and outcome (success or error)",
	}, []string{"state", "outcome"})

	// transitionsTotal counts reported transitions.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flexiflow_machine_transitions_total",
		Help: "Total number of state transitions by from_state and to_state",
	}, []string{"from_state", "to_state"})

	// dispatchDuration tracks how long states take to decide.
	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flexiflow_machine_dispatch_duration_seconds",
		Help:    "Duration of a state's HandleMessage call by state",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"state"})
)

func sanitizeState(state string) string {
	if state == "" {
		return "unknown"
	}

	return state
}
