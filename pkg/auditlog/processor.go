package auditlog

import (
	"github.com/brandonh-msft/azure-functions-host/pkg/config"
	"go.uber.org/zap"
)

// Processor records secret access and mutation events. Events go to the host
// log under the "audit" message so operators can trace who touched which key.
type Processor struct {
	logger   *zap.Logger
	sinkType config.LogSinkType
}

func New(logger *zap.Logger) *Processor {
	return &Processor{
		logger:   logger,
		sinkType: config.LogSinkType_CONSOLE,
	}
}

func (p *Processor) Log(fields ...zap.Field) {
	switch p.sinkType {
	case config.LogSinkType_DISABLED:
		return
	default:
		p.logger.Info("audit", fields...)
	}
}

func (p *Processor) SetConfig(conf *config.Config) {
	if !conf.Services.HasAnyLogSinks() {
		p.logger.Warn("no log sinks configured; audit logs will be discarded")

		return
	}

	sink := conf.Services.FirstLogSink()

	if p.sinkType != sink.Type {
		p.sinkType = sink.Type
		p.logger.Info("audit log processor sink type changed", zap.String("new type", string(p.sinkType)))
	}
}
