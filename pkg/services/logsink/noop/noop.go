package noop

import (
	"context"
	"fmt"

	"github.com/brandonh-msft/azure-functions-host/pkg/services"
	"github.com/brandonh-msft/azure-functions-host/pkg/services/logsink"
)

const (
	TypeNoopLogSink services.ServiceType = "noop"
)

type Factory struct {
	logsink.BaseLogSink
}

func (f *Factory) Init(ctx context.Context, cfg any) error {
	return nil
}

func (f *Factory) Create(ctx context.Context) (services.Service, error) {
	return &LogSink{}, nil
}

// FactoryType returns the service type
func (f *Factory) FactoryType() services.ServiceType {
	return services.ServiceType(fmt.Sprintf("%s.%s", logsink.TypeLogSink, TypeNoopLogSink))
}

// LogSink discards worker log entries
type LogSink struct {
	logsink.BaseLogSink
}

func (s *LogSink) Write(ctx context.Context, entry logsink.Entry) {}
