package config

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ConfigProvider is a source of configuration that can watch for changes
type ConfigProvider interface {
	// Start monitoring for configuration changes
	Start() error

	// Stop monitoring for configuration changes
	Stop()

	// OnConfigChange registers a callback for configuration changes
	OnConfigChange(callback func(*Config) error)

	// Reload forces a configuration reload
	Reload() error
}

// ConfigManager fans provider updates out to subscribers and holds the
// current config. Subscribers are invoked synchronously and in registration
// order, so components that depend on each other's config handling can rely
// on their ordering.
type ConfigManager struct {
	config      *Config
	provider    ConfigProvider
	subscribers []func(*Config)
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewConfigManager creates a config manager with a specific provider
func NewConfigManager(logger *zap.Logger, provider ConfigProvider) *ConfigManager {
	cm := &ConfigManager{
		logger:   logger,
		provider: provider,
	}

	provider.OnConfigChange(func(cfg *Config) error {
		cm.updateConfig(cfg)
		return nil
	})

	return cm
}

// Subscribe registers for config changes. If a config is already loaded the
// callback fires immediately with it.
func (cm *ConfigManager) Subscribe(callback func(*Config)) {
	cm.mu.Lock()
	cm.subscribers = append(cm.subscribers, callback)
	current := cm.config
	cm.mu.Unlock()

	if current != nil {
		callback(current)
	}
}

// GetConfig returns the current configuration
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

func (cm *ConfigManager) updateConfig(cfg *Config) {
	cm.mu.Lock()
	cm.config = cfg
	subscribers := make([]func(*Config), len(cm.subscribers))
	copy(subscribers, cm.subscribers)
	cm.mu.Unlock()

	cm.logger.Info("configuration updated, notifying subscribers",
		zap.Int("subscribers", len(subscribers)))

	for _, sub := range subscribers {
		sub(cfg)
	}
}

// Reload forces a configuration reload
func (cm *ConfigManager) Reload() error {
	return cm.provider.Reload()
}

// Run starts the underlying provider and stops it when ctx ends
func (cm *ConfigManager) Run(ctx context.Context) error {
	if err := cm.provider.Start(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		cm.provider.Stop()
	}()

	return nil
}
