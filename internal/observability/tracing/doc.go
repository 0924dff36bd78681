// Package tracing provides OpenTelemetry tracing integration.
//
// One digest run maps to one trace: StartRun opens the root span for a
// user's run and StartActivity opens a child span per pipeline activity.
// Exporter wiring (OTLP, Jaeger) is left to the process entry point;
// without a configured provider the spans are no-ops.
//
// Example usage:
//
//	import "dailybrief/internal/observability/tracing"
//
//	func (r *Runner) Run(ctx context.Context, userID string) error {
//	    ctx, span := tracing.StartRun(ctx, runID, userID)
//	    defer span.End()
//
//	    ctx, actSpan := tracing.StartActivity(ctx, "validate")
//	    defer actSpan.End()
//	    // ... run the activity ...
//	}
package tracing
