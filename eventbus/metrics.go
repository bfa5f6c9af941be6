package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flexiflow_bus_events_published_total",
		Help: "Total number of events published, by event name",
	}, []string{"event"})

	handlerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flexiflow_bus_handler_failures_total",
		Help: "Total number of handler failures, by event name and subscriber",
	}, []string{"event", "subscriber"})

	handlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flexiflow_bus_handler_duration_seconds",
		Help:    "Duration of individual handler calls, by event name",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"event"})
)
