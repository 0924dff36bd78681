package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the named tracer every digest span comes from. Without a
// registered provider otel hands back a no-op implementation.
var tracer = otel.Tracer("dailybrief")

// StartRun starts the root span for a single user's digest run.
// All activity spans created from the returned context become children
// of this span, so one run shows up as one trace.
//
// Example usage:
//
//	ctx, span := tracing.StartRun(ctx, runID, userID)
//	defer span.End()
func StartRun(ctx context.Context, runID, userID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "digest.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("user.id", userID),
		),
	)
}

// StartActivity starts a child span for one pipeline activity
// (fetch, validate, summarize, ...). The span is named "activity.<name>".
func StartActivity(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "activity."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("activity.name", name),
		),
	)
}

// RecordBatch attaches batch counters to an activity span after the
// batch completes. A batch with recorded errors is marked with the
// error attribute even though the activity itself succeeded.
func RecordBatch(span trace.Span, articles, cacheHits, aiCalls, errs int) {
	span.SetAttributes(
		attribute.Int("activity.articles", articles),
		attribute.Int("activity.cache_hits", cacheHits),
		attribute.Int("activity.ai_calls", aiCalls),
		attribute.Int("activity.errors", errs),
	)

	if errs > 0 {
		span.SetAttributes(attribute.Bool("error", true))
	}
}

// EndSpan finishes the span. A non-nil err marks the span as failed and
// records the error as a span event.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.Bool("error", true))
		span.RecordError(err)
	}
	span.End()
}
