package config

type TraceExporterType string

const (
	TraceExporterType_NONE    TraceExporterType = "none"
	TraceExporterType_AUTO    TraceExporterType = "auto"
	TraceExporterType_CONSOLE TraceExporterType = "console"
	TraceExporterType_OTLP    TraceExporterType = "otlp"
)

type OTLPProtocol string

const (
	OTLPProtocol_GRPC OTLPProtocol = "grpc"
	OTLPProtocol_HTTP OTLPProtocol = "http"
)

type Telemetry struct {
	Traces   TracesConfig   `yaml:"traces"`
	Resource ResourceConfig `yaml:"resource"`
}

type TracesConfig struct {
	Exporter TraceExporterType `yaml:"exporter" validate:"omitempty,trace_exporter"`

	// OTLP exporter options
	Protocol OTLPProtocol      `yaml:"protocol" validate:"omitempty,otlp_protocol"`
	Endpoint string            `yaml:"endpoint"`
	Headers  map[string]string `yaml:"headers"`
	Insecure bool              `yaml:"insecure"`
	Timeout  Duration          `yaml:"timeout"`

	// SampleRatio is the parent-based trace sampling ratio. Unset means 1.0.
	SampleRatio *float64 `yaml:"sample_ratio" validate:"omitempty,gte=0,lte=1"`

	Redact   RedactConfig   `yaml:"redact"`
	Suppress SuppressConfig `yaml:"suppress"`
}

// RedactConfig controls URL scrubbing on exported spans. Redaction is on by
// default; query parameter names listed in AllowedQueryParams keep their
// values.
type RedactConfig struct {
	Disabled           bool     `yaml:"disabled"`
	AllowedQueryParams []string `yaml:"allowed_query_params"`
}

// SuppressConfig lists tracer and span names whose spans are dropped before
// export. Used to mute internal dependency chatter such as storage polling
// and config refresh loops.
type SuppressConfig struct {
	Tracers []string `yaml:"tracers"`
	Spans   []string `yaml:"spans"`
}

type ResourceConfig struct {
	// RoleName overrides the exported service name, the way a cloud role
	// rename does on hosted telemetry backends.
	RoleName   string            `yaml:"role_name"`
	Attributes map[string]string `yaml:"attributes"`
}

func (t *Telemetry) TracesOrDefault() TracesConfig {
	if t == nil {
		return TracesConfig{Exporter: TraceExporterType_AUTO}
	}
	tc := t.Traces
	if tc.Exporter == "" {
		tc.Exporter = TraceExporterType_AUTO
	}
	if tc.Protocol == "" {
		tc.Protocol = OTLPProtocol_GRPC
	}
	return tc
}

func (t *Telemetry) ResourceOrDefault() ResourceConfig {
	if t == nil {
		return ResourceConfig{}
	}
	return t.Resource
}
