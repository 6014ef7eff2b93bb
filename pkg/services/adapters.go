package services

import (
	"go.uber.org/zap"
)

// LoggerAdapter is implemented by factories that accept the host logger.
type LoggerAdapter interface {
	SetLogger(*zap.Logger)
}

// LogHelper embeds a lazily-defaulted logger into service factories.
type LogHelper struct {
	logger *zap.Logger
}

func (l *LogHelper) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Log never returns nil; factories that were not handed a logger get a noop.
func (l *LogHelper) Log() *zap.Logger {
	if l.logger == nil {
		return zap.NewNop()
	}
	return l.logger
}
