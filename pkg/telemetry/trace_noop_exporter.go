package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/sdk/trace"
)

// NoopSpanExporter discards all spans. Used as the autoexport fallback when
// no exporter is configured through the environment.
type NoopSpanExporter struct{}

var _ trace.SpanExporter = NoopSpanExporter{}

// ExportSpans implements trace.SpanExporter.
func (NoopSpanExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error {
	return nil
}

// Shutdown implements trace.SpanExporter.
func (NoopSpanExporter) Shutdown(context.Context) error {
	return nil
}
