package config

import (
	"fmt"
	"slices"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"
)

type Services struct {
	SecretStores []ServiceSecretStore `yaml:"secret_stores"`
	LogSinks     []ServiceLogSink     `yaml:"log_sinks"`
}

func (s Services) ToMap() map[string]any {
	m := make(map[string]any)

	m[s.FirstSecretStore().ServiceType()] = s.FirstSecretStore()

	m[s.FirstLogSink().ServiceType()] = s.FirstLogSink()

	return m
}

func (s Services) HasAnySecretStores() bool {
	return len(s.SecretStores) > 0
}

func (s Services) FirstSecretStore() ServiceSecretStore {
	if len(s.SecretStores) == 0 {
		return ServiceSecretStore{
			Type: SecretStoreType_MEMORY,
		}
	}

	return s.SecretStores[0]
}

func (s Services) HasAnyLogSinks() bool {
	return len(s.LogSinks) > 0
}

func (s Services) FirstLogSink() ServiceLogSink {
	if len(s.LogSinks) == 0 {
		return ServiceLogSink{
			Type: LogSinkType_DISABLED,
		}
	}

	return s.LogSinks[0]
}

type HostConfig struct {
	// ID identifies this host instance on exported telemetry and in secret
	// blobs. Generated when empty.
	ID string `yaml:"id"`
}

type SecretsConfig struct {
	// EncryptionKey seals secret values at rest. When unset, secrets are
	// persisted in plaintext.
	EncryptionKey ValueSource `yaml:"encryption_key"`

	// CacheTTL bounds how long decrypted secrets stay cached before a
	// repository re-read. Unset means 5m.
	CacheTTL Duration `yaml:"cache_ttl"`

	// CacheSize caps the number of cached per-function secret sets.
	CacheSize int `yaml:"cache_size" validate:"omitempty,gte=0"`
}

type Config struct {
	Host      *HostConfig    `yaml:"host"`
	Telemetry *Telemetry     `yaml:"telemetry"`
	Services  Services       `yaml:"services"`
	Secrets   *SecretsConfig `yaml:"secrets"`
}

func (c *Config) SetDefaults() {
	if c.Telemetry != nil && c.Telemetry.Traces.Exporter == "" {
		c.Telemetry.Traces.Exporter = TraceExporterType_AUTO
	}
	if c.Telemetry != nil && c.Telemetry.Traces.Exporter == TraceExporterType_OTLP && c.Telemetry.Traces.Protocol == "" {
		c.Telemetry.Traces.Protocol = OTLPProtocol_GRPC
	}
}

func (c *Config) Validate() error {
	validate := validator.New()

	for name, fn := range map[string]validator.Func{
		"stringnotempty": validateStringNotEmpty,
		"trace_exporter": ValidateTraceExporter,
		"otlp_protocol":  ValidateOTLPProtocol,
	} {
		if err := validate.RegisterValidation(name, fn); err != nil {
			return fmt.Errorf("failed to register %s validation: %w", name, err)
		}
	}

	c.SetDefaults()

	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Telemetry != nil {
		tc := c.Telemetry.Traces
		if tc.Exporter == TraceExporterType_OTLP && tc.Endpoint == "" {
			return fmt.Errorf("telemetry.traces: otlp exporter requires an endpoint")
		}
	}

	return nil
}

func validateStringNotEmpty(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) != 0
}

// ValidateTraceExporter validates that the field is a known trace exporter mode
func ValidateTraceExporter(fl validator.FieldLevel) bool {
	return slices.Contains([]TraceExporterType{
		TraceExporterType_NONE,
		TraceExporterType_AUTO,
		TraceExporterType_CONSOLE,
		TraceExporterType_OTLP,
	}, TraceExporterType(fl.Field().String()))
}

// ValidateOTLPProtocol validates that the field is a known OTLP transport protocol
func ValidateOTLPProtocol(fl validator.FieldLevel) bool {
	return slices.Contains([]OTLPProtocol{
		OTLPProtocol_GRPC,
		OTLPProtocol_HTTP,
	}, OTLPProtocol(fl.Field().String()))
}

func UnmarshalConfig(bytes []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
