package statemachine

import (
	"context"
	"time"

	"github.com/amp-labs/flexiflow/logger"
)

// Logger provides logging hooks for message dispatch.
type Logger interface {
	MessageDispatched(ctx context.Context, state string, msg Message, duration time.Duration, err error)
	TransitionExecuted(ctx context.Context, from, to string)
}

// DefaultLogger implements Logger on top of the context logger.
type DefaultLogger struct{}

// NewDefaultLogger creates a new default logger.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

func (l *DefaultLogger) MessageDispatched(
	ctx context.Context,
	state string,
	msg Message,
	duration time.Duration,
	err error,
) {
	fields := []any{
		"state", state,
		"message_type", msg.Type(),
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		logger.Get(ctx).ErrorContext(ctx, "State failed to handle message", append(fields, "error", err)...)
	} else {
		logger.Get(ctx).DebugContext(ctx, "State handled message", fields...)
	}
}

func (l *DefaultLogger) TransitionExecuted(ctx context.Context, from, to string) {
	logger.Get(ctx).InfoContext(ctx, "Transition executed",
		"from", from,
		"to", to,
	)
}
