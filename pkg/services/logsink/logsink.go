package logsink

import (
	"context"
	"fmt"
	"time"

	"github.com/brandonh-msft/azure-functions-host/pkg/services"
)

const (
	TypeLogSink services.ServiceType = "logsink"
)

// Entry is a single worker log line routed through the host.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	WorkerID  string    `json:"workerId"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`

	// System marks host-internal worker diagnostics, as opposed to
	// user-visible function output.
	System bool `json:"system,omitempty"`
}

// LogSink receives worker log entries
type LogSink interface {
	services.Service
	Write(ctx context.Context, entry Entry)
}

// BaseLogSink provides common functionality for LogSink implementations
type BaseLogSink struct {
	Registry services.RegistryAccessor
}

// ServiceType returns the service type
func (b *BaseLogSink) ServiceType() services.ServiceType {
	return TypeLogSink
}

func (b *BaseLogSink) SetRegistry(registry services.RegistryAccessor) {
	b.Registry = registry
}

// Resolve returns the active log sink from the registry.
func Resolve(ctx context.Context, registry services.RegistryAccessor) (LogSink, error) {
	factory := registry.Get(TypeLogSink)
	if factory == nil {
		return nil, fmt.Errorf("no log sink registered")
	}

	svc, err := factory.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating log sink: %w", err)
	}

	sink, ok := svc.(LogSink)
	if !ok {
		return nil, fmt.Errorf("service %s is not a log sink", svc.ServiceType())
	}

	return sink, nil
}
