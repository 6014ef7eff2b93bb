package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/brandonh-msft/azure-functions-host/pkg/auditlog"
	"github.com/brandonh-msft/azure-functions-host/pkg/buildinfo"
	"github.com/brandonh-msft/azure-functions-host/pkg/config"
	"github.com/brandonh-msft/azure-functions-host/pkg/secrets"
	"github.com/brandonh-msft/azure-functions-host/pkg/services"
	"github.com/brandonh-msft/azure-functions-host/pkg/services/logsink"
	logsinkconsole "github.com/brandonh-msft/azure-functions-host/pkg/services/logsink/console"
	logsinknoop "github.com/brandonh-msft/azure-functions-host/pkg/services/logsink/noop"
	"github.com/brandonh-msft/azure-functions-host/pkg/services/secretstore"
	secretstorefile "github.com/brandonh-msft/azure-functions-host/pkg/services/secretstore/file"
	secretstorememory "github.com/brandonh-msft/azure-functions-host/pkg/services/secretstore/memory"
	secretstorenoop "github.com/brandonh-msft/azure-functions-host/pkg/services/secretstore/noop"
	"github.com/brandonh-msft/azure-functions-host/pkg/status"
	"github.com/brandonh-msft/azure-functions-host/pkg/tags"
	"github.com/brandonh-msft/azure-functions-host/pkg/telemetry"
	"github.com/brandonh-msft/azure-functions-host/pkg/workerlogs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serviceFactories = []services.ServiceFactory{
	// Secret store services
	&secretstorefile.Factory{},
	&secretstorememory.Factory{},
	&secretstorenoop.Factory{},

	// Log sink services
	&logsinkconsole.Factory{},
	&logsinknoop.Factory{},

	// Add more services here...
}

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Run the functions host",
	Run: func(cmd *cobra.Command, args []string) {
		logger := initLogger()
		defer syncLogger(logger)

		runHostCmd(logger)
	},
}

func init() {
	// Common options
	hostCmd.Flags().StringVar(&hostConfig, "config",
		getEnvOr("FUNCTIONS_HOST_CONFIG", ""),
		"Configuration file path")
	hostCmd.Flags().StringVar(&deploymentTags, "tags",
		getEnvOr("FUNCTIONS_DEPLOYMENT_TAGS", ""),
		"Tags to add to the host")

	// Data directory options
	hostCmd.PersistentFlags().StringVar(&dataDir, "data-dir",
		getEnvOr("DATA_DIR", "/tmp/functions-host"),
		"Directory to store state")

	// Worker log options
	hostCmd.Flags().StringVar(&workerPipe, "worker-pipe",
		getEnvOr("WORKER_PIPE", ""),
		"Path to a pipe carrying worker console output")

	// Status options
	hostCmd.Flags().StringVar(&statusListen, "status-listen",
		getEnvOr("STATUS_LISTEN", "0.0.0.0:10001"),
		"IP:PORT of status server to listen on")
}

func runHostCmd(logger *zap.Logger) {
	ctx := context.Background()

	// Parse deployment tags if provided
	dTags := tags.New()
	if deploymentTags != "" {
		if err := parseDeploymentTags(dTags); err != nil {
			logger.Error("failed to parse deployment tags", zap.Error(err))
		}
	}

	// Create config provider based on command line flags
	var provider config.ConfigProvider

	// Setup configuration context
	configCtx, configCancel := context.WithCancel(ctx)
	defer configCancel()

	// Initialize a local config provider
	if hostConfig != "" {
		provider = config.NewLocalConfigProvider(logger, hostConfig)
	} else {
		logger.Warn("no config file provided, using default config")
		provider = config.NewDefaultConfigProvider(logger)
	}

	// Create and start config manager
	configManager := config.NewConfigManager(logger, provider)
	if err := configManager.Run(configCtx); err != nil {
		logger.Fatal("unable to start config manager", zap.Error(err))
	}

	cfg := configManager.GetConfig()
	if cfg == nil {
		logger.Fatal("no configuration loaded")
	}

	// Register for SIGHUP to reload configuration
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGHUP)
		for {
			select {
			case <-sigCh:
				logger.Info("SIGHUP received, reloading configuration")
				if err := configManager.Reload(); err != nil {
					logger.Error("failed to reload config on SIGHUP", zap.Error(err))
				}
			case <-configCtx.Done():
				return
			}
		}
	}()

	shutdownTelemetry, err := telemetry.Setup(ctx, logger, cfg.Telemetry, "functions-host", dTags)
	if err != nil {
		logger.Fatal("unable to setup telemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Error("unable to shutdown tracer provider", zap.Error(err))
		}
	}()

	// Log startup information
	logger.Info("Starting functions host",
		zap.String("version", buildinfo.Version()),
		zap.String("instance_id", telemetry.InstanceID()),
		zap.Strings("tags", dTags.List()),
	)

	// Audit log processor
	auditLogger := auditlog.New(logger)

	// Initialize the service system
	svcRegistry := services.NewServiceRegistry()
	defer func() {
		if err := svcRegistry.Close(); err != nil {
			logger.Warn("unable to close services", zap.Error(err))
		}
	}()
	svcManager := services.NewServiceManager(ctx, logger, svcRegistry)
	svcManager.RegisterFactory(serviceFactories...)

	// Subscribers fire synchronously with the current config, so services
	// are resolvable immediately below; reloads go through the same path.
	configManager.Subscribe(func(cfg *config.Config) {
		normalizeConfig(cfg)
		auditLogger.SetConfig(cfg)
		svcManager.SetConfig(cfg)
	})

	// Resolve the secret repository and build the secret manager
	store, err := secretstore.Resolve(ctx, svcRegistry)
	if err != nil {
		logger.Fatal("unable to resolve secret store", zap.Error(err))
	}

	crypto, err := secretCrypto(cfg.Secrets)
	if err != nil {
		logger.Fatal("unable to initialize secret encryption", zap.Error(err))
	}

	secretManager := secrets.NewManager(logger, store, crypto, auditLogger, cfg.Secrets)

	var ready atomic.Bool
	if _, err := secretManager.GetHostSecrets(ctx); err != nil {
		logger.Fatal("unable to load host secrets", zap.Error(err))
	}
	ready.Store(true)
	logger.Info("host secrets ready")

	// Worker log shuttle
	sink, err := logsink.Resolve(ctx, svcRegistry)
	if err != nil {
		logger.Warn("no log sink available, worker system logs will be discarded", zap.Error(err))
		sink = nil
	}

	shuttle := workerlogs.NewShuttle(ctx, logger, sink)
	defer shuttle.Stop()

	if workerPipe != "" {
		var pipe atomic.Pointer[os.File]

		// This defer runs before shuttle.Stop; closing the pipe unblocks
		// the attached reader so Stop can drain and return.
		defer func() {
			if p := pipe.Load(); p != nil {
				p.Close()
			}
		}()

		// A FIFO open blocks until a worker connects, so it happens off
		// the startup path.
		go func() {
			p, err := os.Open(workerPipe)
			if err != nil {
				logger.Error("unable to open worker pipe", zap.Error(err))
				return
			}
			pipe.Store(p)
			shuttle.Attach("worker", p)
		}()
	}

	// Initialize status server
	hostID := telemetry.InstanceID()
	if cfg.Host != nil && cfg.Host.ID != "" {
		hostID = cfg.Host.ID
	}

	s := status.NewServer(statusListen, logger,
		ready.Load,
		status.WithMetricsHandler(telemetry.Handler()),
		status.WithIdentity(hostID, telemetry.InstanceID()),
	)
	if err := s.Start(); err != nil {
		logger.Fatal("failed to start status server", zap.Error(err))
	}
	defer func() {
		if err := s.Stop(); err != nil {
			logger.Error("unable to cleanup status server")
		}
	}()

	logger.Info("functions host running")

	// trap int/term signals
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
}

// normalizeConfig fills flag-derived defaults the config file may omit.
func normalizeConfig(cfg *config.Config) {
	for i := range cfg.Services.SecretStores {
		sc := &cfg.Services.SecretStores[i]
		if sc.Type == config.SecretStoreType_FILE && sc.Path == "" {
			sc.Path = filepath.Join(dataDir, "secrets")
		}
	}
}

// secretCrypto builds the value crypto from config. No key configured means
// secrets are persisted in plaintext.
func secretCrypto(sc *config.SecretsConfig) (secrets.ValueCrypto, error) {
	if sc == nil {
		return nil, nil
	}

	material := sc.EncryptionKey.String()
	if material == "" {
		return nil, nil
	}

	return secrets.NewAESValueCrypto(material)
}

// parseDeploymentTags parses the deployment tags string into the given list
func parseDeploymentTags(t tags.List) error {
	for _, tag := range strings.Split(deploymentTags, ",") {
		if err := t.AddString(tag); err != nil {
			return err
		}
	}
	return nil
}
