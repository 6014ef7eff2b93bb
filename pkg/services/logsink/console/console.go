package console

import (
	"context"
	"fmt"

	"github.com/brandonh-msft/azure-functions-host/pkg/services"
	"github.com/brandonh-msft/azure-functions-host/pkg/services/logsink"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	TypeConsoleLogSink services.ServiceType = "console"
)

type Factory struct {
	services.LogHelper
	logsink.BaseLogSink
}

func (f *Factory) Init(ctx context.Context, cfg any) error {
	return nil
}

func (f *Factory) Create(ctx context.Context) (services.Service, error) {
	sink := &LogSink{}
	sink.SetLogger(f.Log())
	return sink, nil
}

// FactoryType returns the service type
func (f *Factory) FactoryType() services.ServiceType {
	return services.ServiceType(fmt.Sprintf("%s.%s", logsink.TypeLogSink, TypeConsoleLogSink))
}

// LogSink forwards worker log entries to the host logger
type LogSink struct {
	services.LogHelper
	logsink.BaseLogSink
}

// Write logs an entry at its mapped level
func (s *LogSink) Write(ctx context.Context, entry Entry) {
	s.Log().Log(level(entry.Level), entry.Message,
		zap.String("worker_id", entry.WorkerID),
		zap.Bool("system", entry.System),
		zap.Time("worker_time", entry.Timestamp),
	)
}

// Entry aliases the logsink entry type to keep call sites short
type Entry = logsink.Entry

func level(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
