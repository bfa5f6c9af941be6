package eventbus

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// startPublishSpan creates the span covering one publish.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startPublishSpan(ctx context.Context, event string, opts publishOptions, handlers int) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("eventbus").Start(ctx, "eventbus.publish")
	span.SetAttributes(
		attribute.String("event", event),
		attribute.String("delivery", opts.delivery.String()),
		attribute.String("on_error", opts.onError.String()),
		attribute.Int("handlers", handlers),
	)

	return ctx, span
}
