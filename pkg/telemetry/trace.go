package telemetry

import (
	"context"
	"net/http"
	"runtime"
	"strings"

	"github.com/brandonh-msft/azure-functions-host/pkg/buildinfo"
	"github.com/brandonh-msft/azure-functions-host/pkg/config"
	"github.com/brandonh-msft/azure-functions-host/pkg/tags"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"
)

func Tracer() trace.Tracer {
	pkg, _ := callerInfo(1)
	return otel.Tracer(pkg)
}

func callerInfo(skip int) (pkg, fn string) {
	pc, _, _, _ := runtime.Caller(1 + skip)
	funcName := runtime.FuncForPC(pc).Name()
	lastSlash := strings.LastIndexByte(funcName, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}
	lastDot := strings.LastIndexByte(funcName[lastSlash:], '.') + lastSlash

	pkg = funcName[:lastDot]
	fn = funcName[lastDot+1:]

	return
}

// OtelResource builds the resource attached to all exported spans. The
// service name defaults to the host binary name; a configured role name
// overrides it, which is how hosted backends rename the cloud role.
func OtelResource(ctx context.Context, name string, rc config.ResourceConfig, deploymentTags tags.List) (*resource.Resource, error) {
	serviceName := name
	if rc.RoleName != "" {
		serviceName = rc.RoleName
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceNamespaceKey.String("functions"),
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(buildinfo.Version()),
		semconv.ServiceInstanceIDKey.String(InstanceID()),
		semconv.HostNameKey.String(Hostname()),
	}

	for k, v := range rc.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	if deploymentTags != nil {
		for key, values := range deploymentTags.Map() {
			attrs = append(attrs, attribute.String("tags."+key, strings.Join(values, ",")))
		}
	}

	return resource.New(ctx, resource.WithAttributes(attrs...))
}

func InstrumentHTTPClient(client *http.Client) {
	client.Transport = otelhttp.NewTransport(client.Transport)
}

func WithBaggage(ctx context.Context, values map[string]string) context.Context {
	members := make([]baggage.Member, 0, len(values))
	for k, v := range values {
		m, _ := baggage.NewMember(k, v)
		members = append(members, m)
	}
	bag, _ := baggage.New(members...)
	return baggage.ContextWithBaggage(ctx, bag)
}
