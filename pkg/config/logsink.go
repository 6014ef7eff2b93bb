package config

type LogSinkType string

const (
	LogSinkType_DISABLED LogSinkType = "disabled"
	LogSinkType_CONSOLE  LogSinkType = "stdout"
)

type ServiceLogSink struct {
	Type LogSinkType `yaml:"type" validate:"required"`
	ID   string      `yaml:"id"`
}

func (s ServiceLogSink) ServiceType() string {
	switch s.Type {
	case LogSinkType_CONSOLE:
		return "logsink.console"
	case LogSinkType_DISABLED:
		return "logsink.noop"
	default:
		return "logsink.console"
	}
}
