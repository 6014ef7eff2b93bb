package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// filteringTracerProvider wraps a real TracerProvider and suppresses noisy
// internal dependency traces. Entire tracer names can be suppressed
// (returning noop tracers), and individual span names can be suppressed
// within otherwise-active tracers.
type filteringTracerProvider struct {
	embedded.TracerProvider

	delegate          trace.TracerProvider
	noop              trace.TracerProvider
	suppressedTracers map[string]bool
	suppressedSpans   map[string]bool
}

// NewFilteringTracerProvider wraps delegate so that spans from the named
// tracers, and spans with the named span names, are replaced with no-op
// spans. Used to keep storage polling and config refresh chatter out of the
// export pipeline.
func NewFilteringTracerProvider(delegate trace.TracerProvider, tracers, spans []string) trace.TracerProvider {
	suppressedTracers := make(map[string]bool, len(tracers))
	for _, name := range tracers {
		suppressedTracers[name] = true
	}
	suppressedSpans := make(map[string]bool, len(spans))
	for _, name := range spans {
		suppressedSpans[name] = true
	}

	return &filteringTracerProvider{
		delegate:          delegate,
		noop:              nooptrace.NewTracerProvider(),
		suppressedTracers: suppressedTracers,
		suppressedSpans:   suppressedSpans,
	}
}

// Tracer returns a tracer for the given name, suppressing muted tracers.
func (f *filteringTracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if f.suppressedTracers[name] {
		return f.noop.Tracer(name, opts...)
	}

	actual := f.delegate.Tracer(name, opts...)

	if len(f.suppressedSpans) > 0 {
		return &filteringTracer{
			delegate: actual,
			noop:     f.noop.Tracer(name, opts...),
			suppress: f.suppressedSpans,
		}
	}

	return actual
}

// filteringTracer wraps a real Tracer and returns noop spans for suppressed
// span names while delegating everything else.
type filteringTracer struct {
	embedded.Tracer

	delegate trace.Tracer
	noop     trace.Tracer
	suppress map[string]bool
}

// Start creates a span, returning a noop span for suppressed names.
func (f *filteringTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if f.suppress[name] {
		return f.noop.Start(ctx, name, opts...)
	}

	return f.delegate.Start(ctx, name, opts...)
}
