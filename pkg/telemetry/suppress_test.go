package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestFilteringTracerProvider(t *testing.T) {
	recorder := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	provider := NewFilteringTracerProvider(tp,
		[]string{"Azure.Storage.Blobs"},
		[]string{"config-refresh"},
	)

	ctx := context.Background()

	// suppressed tracer: nothing recorded
	_, span := provider.Tracer("Azure.Storage.Blobs").Start(ctx, "BlobClient.Download")
	span.End()
	assert.False(t, span.SpanContext().IsValid())

	// active tracer, suppressed span name: nothing recorded
	_, span = provider.Tracer("host").Start(ctx, "config-refresh")
	span.End()
	assert.False(t, span.SpanContext().IsValid())

	// active tracer, normal span: recorded
	_, span = provider.Tracer("host").Start(ctx, "invoke-function")
	span.End()
	assert.True(t, span.SpanContext().IsValid())

	spans := recorder.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "invoke-function", spans[0].Name)
}

func TestFilteringTracerProvider_NoSuppressedSpans(t *testing.T) {
	recorder := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	provider := NewFilteringTracerProvider(tp, []string{"noisy"}, nil)

	// with no span-name suppression the delegate tracer is returned directly
	_, span := provider.Tracer("host").Start(context.Background(), "work")
	span.End()

	require.Len(t, recorder.GetSpans(), 1)
}
