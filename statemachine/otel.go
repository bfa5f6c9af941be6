package statemachine

import (
	"context"

	"github.com/amp-labs/flexiflow/envutil"
	"github.com/amp-labs/flexiflow/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startDispatchSpan creates the span covering one HandleMessage call.
// Uses the global tracer initialized by the telemetry package.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startDispatchSpan(ctx context.Context, state string, msg Message) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.dispatch")
	span.SetAttributes(
		attribute.String("state", state),
		attribute.String("message_type", msg.Type()),
	)
	logSpanDebug(ctx, "started", "statemachine.dispatch", span)

	return ctx, span
}

// logSpanDebug logs span creation when FLEXIFLOW_DEBUG is set.
func logSpanDebug(ctx context.Context, phase string, spanName string, span trace.Span) {
	if !isDebugMode() {
		return
	}

	spanCtx := span.SpanContext()
	logger.Get(ctx).InfoContext(ctx, "OTEL Span "+phase,
		"span_name", spanName,
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}

func isDebugMode() bool {
	return envutil.Bool("FLEXIFLOW_DEBUG", envutil.Default(false)).ValueOrElse(false)
}
