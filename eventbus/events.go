package eventbus

import "context"

// Event names published by flexiflow itself.
const (
	EventComponentRegistered = "engine.component.registered"
	EventMessageReceived     = "component.message.received"
	EventStateChanged        = "state.changed"
	EventHandlerFailed       = "event.handler.failed"
)

// DefaultPriority is the priority given to subscriptions that do not set one.
// Lower priorities run first.
const DefaultPriority = 100

// DefaultMaxConcurrency bounds the bus's own worker pool.
const DefaultMaxConcurrency = 64

// Data is an event payload. Handlers share the map and must not modify it.
type Data map[string]any

// Handler reacts to an event.
type Handler func(ctx context.Context, data Data) error

// Delivery selects how a publish runs its handlers.
type Delivery int

const (
	// Sequential runs handlers one at a time in priority order.
	Sequential Delivery = iota
	// Concurrent runs all handlers on the worker pool and waits for all of them.
	Concurrent
)

func (d Delivery) String() string {
	switch d {
	case Sequential:
		return "sequential"
	case Concurrent:
		return "concurrent"
	default:
		return "unknown"
	}
}

// ErrorPolicy selects what a publish does when a handler fails.
type ErrorPolicy int

const (
	// Continue reports the failure as an event.handler.failed event and keeps going.
	Continue ErrorPolicy = iota
	// Raise returns the first failure from Publish and emits nothing.
	Raise
)

func (p ErrorPolicy) String() string {
	switch p {
	case Continue:
		return "continue"
	case Raise:
		return "raise"
	default:
		return "unknown"
	}
}
