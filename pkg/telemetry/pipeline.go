package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/brandonh-msft/azure-functions-host/pkg/config"
	"github.com/brandonh-msft/azure-functions-host/pkg/tags"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const defaultExportTimeout = 10 * time.Second

// Setup wires the trace export pipeline from configuration: exporter
// selection, resource attributes, sampling, URL redaction, and dependency
// trace suppression. It returns a shutdown function that flushes pending
// spans.
func Setup(ctx context.Context, logger *zap.Logger, tel *config.Telemetry, serviceName string, deploymentTags tags.List) (func(context.Context) error, error) {
	tc := tel.TracesOrDefault()
	rc := tel.ResourceOrDefault()

	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	exporter, configured, err := newSpanExporter(ctx, tc)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	if !configured {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	if !tc.Redact.Disabled {
		exporter = NewRedactingExporter(exporter, tc.Redact.AllowedQueryParams)
	}

	otelResource, err := OtelResource(ctx, serviceName, rc, deploymentTags)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	ratio := 1.0
	if tc.SampleRatio != nil {
		ratio = *tc.SampleRatio
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(otelResource),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)

	var provider trace.TracerProvider = tp
	if len(tc.Suppress.Tracers) > 0 || len(tc.Suppress.Spans) > 0 {
		provider = NewFilteringTracerProvider(tp, tc.Suppress.Tracers, tc.Suppress.Spans)
	}
	otel.SetTracerProvider(provider)

	logger.Info("trace pipeline configured",
		zap.String("exporter", string(tc.Exporter)),
		zap.Float64("sample_ratio", ratio),
		zap.Bool("redaction", !tc.Redact.Disabled),
		zap.Int("suppressed_tracers", len(tc.Suppress.Tracers)),
		zap.Int("suppressed_spans", len(tc.Suppress.Spans)),
	)

	return tp.Shutdown, nil
}

// newSpanExporter builds the configured exporter. The configured result is
// false when tracing should stay disabled (mode none, or auto with no
// environment configuration).
func newSpanExporter(ctx context.Context, tc config.TracesConfig) (sdktrace.SpanExporter, bool, error) {
	switch tc.Exporter {
	case config.TraceExporterType_NONE:
		return nil, false, nil

	case config.TraceExporterType_CONSOLE:
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		return exporter, err == nil, err

	case config.TraceExporterType_OTLP:
		exporter, err := newOTLPExporter(ctx, tc)
		return exporter, err == nil, err

	default: // auto: honor OTEL_* environment, fall back to disabled
		var notConfigured bool
		exporter, err := autoexport.NewSpanExporter(ctx, autoexport.WithFallbackSpanExporter(func(ctx context.Context) (sdktrace.SpanExporter, error) {
			notConfigured = true
			return NoopSpanExporter{}, nil
		}))
		if err != nil {
			return nil, false, err
		}
		return exporter, !notConfigured, nil
	}
}

func newOTLPExporter(ctx context.Context, tc config.TracesConfig) (sdktrace.SpanExporter, error) {
	timeout := tc.Timeout.Duration()
	if timeout <= 0 {
		timeout = defaultExportTimeout
	}

	switch tc.Protocol {
	case config.OTLPProtocol_HTTP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(tc.Endpoint),
			otlptracehttp.WithTimeout(timeout),
		}
		if len(tc.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(tc.Headers))
		}
		if tc.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)

	default:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(tc.Endpoint),
			otlptracegrpc.WithTimeout(timeout),
		}
		if len(tc.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(tc.Headers))
		}
		if tc.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}
}
