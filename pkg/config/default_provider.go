package config

import (
	_ "embed"
	"fmt"

	"go.uber.org/zap"
)

//go:embed default.yaml
var defaultConfigBytes []byte

// DefaultConfigProvider serves the embedded default configuration. Used when
// no config file is given on the command line.
type DefaultConfigProvider struct {
	logger   *zap.Logger
	cfg      *Config
	callback func(*Config) error
}

// NewDefaultConfigProvider creates a new provider for default config
func NewDefaultConfigProvider(logger *zap.Logger) *DefaultConfigProvider {
	return &DefaultConfigProvider{
		logger: logger,
	}
}

// Start loads the embedded default config
func (p *DefaultConfigProvider) Start() error {
	cfg, err := UnmarshalConfig(defaultConfigBytes)
	if err != nil {
		return fmt.Errorf("failed to unmarshal default config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid default config: %w", err)
	}

	p.cfg = cfg

	if p.callback != nil {
		return p.callback(p.cfg)
	}

	return nil
}

// Stop watching for config changes
func (p *DefaultConfigProvider) Stop() {}

// OnConfigChange registers a callback for config changes
func (p *DefaultConfigProvider) OnConfigChange(callback func(*Config) error) {
	p.callback = callback
}

// Reload re-delivers the embedded default config
func (p *DefaultConfigProvider) Reload() error {
	if p.callback == nil {
		return nil
	}
	return p.callback(p.cfg)
}
