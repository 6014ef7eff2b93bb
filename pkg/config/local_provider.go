package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// LocalConfigProvider loads configuration from a local file. The file is
// watched so edits apply without a restart; Reload can force one (wired to
// SIGHUP by the command layer).
type LocalConfigProvider struct {
	logger     *zap.Logger
	configPath string
	callback   func(*Config) error
	watcher    *fsnotify.Watcher
	done       chan struct{}
	mu         sync.Mutex
}

// NewLocalConfigProvider creates a provider for a local config file
func NewLocalConfigProvider(logger *zap.Logger, configPath string) *LocalConfigProvider {
	return &LocalConfigProvider{
		logger:     logger,
		configPath: configPath,
		done:       make(chan struct{}),
	}
}

// Start loads the config and begins watching the file for changes
func (p *LocalConfigProvider) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.callback == nil {
		return errors.New("no callback registered for config changes")
	}

	if err := p.loadAndNotify(); err != nil {
		return fmt.Errorf("initial config load failed: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}

	// watch the directory, not the file: editors and orchestrators replace
	// config files by rename, which drops a file-level watch
	if err := watcher.Add(filepath.Dir(p.configPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching config directory: %w", err)
	}

	p.watcher = watcher
	go p.watchFile(watcher)

	return nil
}

// Stop ends the file watch
func (p *LocalConfigProvider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.watcher == nil {
		return
	}

	close(p.done)
	p.watcher.Close()
	p.watcher = nil
}

// OnConfigChange registers a callback for config changes
func (p *LocalConfigProvider) OnConfigChange(callback func(*Config) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callback = callback
}

// Reload forces a configuration reload
func (p *LocalConfigProvider) Reload() error {
	return p.loadAndNotify()
}

func (p *LocalConfigProvider) watchFile(watcher *fsnotify.Watcher) {
	target := filepath.Clean(p.configPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}

			p.logger.Info("config file changed, reloading", zap.String("path", p.configPath))
			if err := p.loadAndNotify(); err != nil {
				p.logger.Error("failed to reload changed config", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("config watcher error", zap.Error(err))
		case <-p.done:
			return
		}
	}
}

// loadAndNotify loads the config and calls the registered callback. A config
// that fails validation is rejected; the previous config stays active.
func (p *LocalConfigProvider) loadAndNotify() error {
	data, err := os.ReadFile(p.configPath)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	conf, err := UnmarshalConfig(data)
	if err != nil {
		return fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	callback := p.callback
	if callback != nil {
		if err := callback(conf); err != nil {
			return fmt.Errorf("config callback failed: %w", err)
		}
	}

	return nil
}
