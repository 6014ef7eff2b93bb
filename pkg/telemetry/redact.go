package telemetry

import (
	"context"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const redactedValue = "REDACTED"

// urlAttrKeys are span attribute keys whose values carry full URLs.
var urlAttrKeys = map[attribute.Key]bool{
	"url.full":    true,
	"http.url":    true,
	"http.target": true,
}

// queryAttrKeys are span attribute keys whose values carry a bare query string.
var queryAttrKeys = map[attribute.Key]bool{
	"url.query": true,
}

var redactedSpans = Counter(
	"host_telemetry_redacted_spans",
	WithDescription("Spans whose URL attributes were redacted before export"),
)

// RedactingExporter wraps a SpanExporter and strips sensitive URL data from
// span attributes before they leave the process: query parameter values are
// replaced unless allowlisted, and userinfo is removed. The rewrite runs in
// the batch export goroutine, not on the request hot path.
type RedactingExporter struct {
	wrapped sdktrace.SpanExporter
	allowed map[string]bool
}

var _ sdktrace.SpanExporter = (*RedactingExporter)(nil)

// NewRedactingExporter returns a SpanExporter that redacts URL-bearing
// attributes before delegating to the wrapped exporter. Query parameters
// named in allowedQueryParams keep their values.
func NewRedactingExporter(wrapped sdktrace.SpanExporter, allowedQueryParams []string) *RedactingExporter {
	allowed := make(map[string]bool, len(allowedQueryParams))
	for _, p := range allowedQueryParams {
		allowed[strings.ToLower(p)] = true
	}
	return &RedactingExporter{
		wrapped: wrapped,
		allowed: allowed,
	}
}

// ExportSpans redacts URL attributes then delegates to the wrapped exporter.
// Clean spans pass through without copying.
func (e *RedactingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	out := make([]sdktrace.ReadOnlySpan, len(spans))
	for i, s := range spans {
		out[i] = e.redactSpan(s)
	}
	return e.wrapped.ExportSpans(ctx, out)
}

// Shutdown delegates to the wrapped exporter.
func (e *RedactingExporter) Shutdown(ctx context.Context) error {
	return e.wrapped.Shutdown(ctx)
}

func (e *RedactingExporter) redactSpan(s sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan {
	if !e.spanNeedsRedaction(s) {
		return s
	}

	stub := tracetest.SpanStubFromReadOnlySpan(s)
	stub.Attributes = e.redactAttributes(stub.Attributes)
	for i, event := range stub.Events {
		stub.Events[i].Attributes = e.redactAttributes(event.Attributes)
	}
	stub.Status.Description = e.redactText(stub.Status.Description)

	redactedSpans(1)
	return stub.Snapshot()
}

func (e *RedactingExporter) spanNeedsRedaction(s sdktrace.ReadOnlySpan) bool {
	if attrsNeedRedaction(s.Attributes(), e.allowed) {
		return true
	}
	for _, event := range s.Events() {
		if attrsNeedRedaction(event.Attributes, e.allowed) {
			return true
		}
	}
	if desc := s.Status().Description; e.redactText(desc) != desc {
		return true
	}
	return false
}

// redactText scrubs URLs embedded in free text, such as error messages
// surfaced as span status descriptions.
func (e *RedactingExporter) redactText(text string) string {
	if !strings.Contains(text, "://") {
		return text
	}

	fields := strings.Fields(text)
	changed := false
	for i, f := range fields {
		if !strings.Contains(f, "://") {
			continue
		}
		if redacted := RedactURL(f, e.allowed); redacted != f {
			fields[i] = redacted
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(fields, " ")
}

func attrsNeedRedaction(attrs []attribute.KeyValue, allowed map[string]bool) bool {
	for _, a := range attrs {
		if a.Value.Type() != attribute.STRING {
			continue
		}
		switch {
		case urlAttrKeys[a.Key]:
			if RedactURL(a.Value.AsString(), allowed) != a.Value.AsString() {
				return true
			}
		case queryAttrKeys[a.Key]:
			if redactQuery(a.Value.AsString(), allowed) != a.Value.AsString() {
				return true
			}
		}
	}
	return false
}

func (e *RedactingExporter) redactAttributes(attrs []attribute.KeyValue) []attribute.KeyValue {
	result := make([]attribute.KeyValue, len(attrs))
	for i, a := range attrs {
		if a.Value.Type() == attribute.STRING {
			switch {
			case urlAttrKeys[a.Key]:
				result[i] = attribute.String(string(a.Key), RedactURL(a.Value.AsString(), e.allowed))
				continue
			case queryAttrKeys[a.Key]:
				result[i] = attribute.String(string(a.Key), redactQuery(a.Value.AsString(), e.allowed))
				continue
			}
		}
		result[i] = a
	}
	return result
}

// RedactURL strips userinfo and replaces query parameter values that are not
// allowlisted. Unparseable URLs are truncated at the query separator so a
// malformed value can never leak its query data.
func RedactURL(raw string, allowed map[string]bool) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}

	u.User = nil
	if u.RawQuery != "" {
		u.RawQuery = redactQuery(u.RawQuery, allowed)
	}
	return u.String()
}

// redactQuery rewrites a raw query string, preserving parameter order.
func redactQuery(rawQuery string, allowed map[string]bool) string {
	if rawQuery == "" {
		return rawQuery
	}

	params := strings.Split(rawQuery, "&")
	for i, param := range params {
		key, _, found := strings.Cut(param, "=")
		if !found {
			continue
		}
		if allowed[strings.ToLower(key)] {
			continue
		}
		params[i] = key + "=" + redactedValue
	}
	return strings.Join(params, "&")
}
