package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/brandonh-msft/azure-functions-host/pkg/auditlog"
	"github.com/brandonh-msft/azure-functions-host/pkg/config"
	"github.com/brandonh-msft/azure-functions-host/pkg/services/secretstore"
	"github.com/brandonh-msft/azure-functions-host/pkg/telemetry"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	defaultCacheTTL  = 5 * time.Minute
	defaultCacheSize = 128
)

// ErrKeyNotFound is returned when a named key does not exist in a secret set.
var ErrKeyNotFound = errors.New("secret key not found")

var (
	secretsGenerated = telemetry.Counter(
		"host_secrets_generated",
		telemetry.WithDescription("Secret key values generated on demand"),
		telemetry.WithLabels("scope"),
	)
	secretsRefreshed = telemetry.Counter(
		"host_secrets_refreshed",
		telemetry.WithDescription("Secret blobs re-encrypted under the active crypto key"),
		telemetry.WithLabels("scope"),
	)
	secretCacheHits = telemetry.Counter(
		"host_secrets_cache_hits",
		telemetry.WithDescription("Secret reads served from cache"),
		telemetry.WithLabels("scope"),
	)
	secretCacheMisses = telemetry.Counter(
		"host_secrets_cache_misses",
		telemetry.WithDescription("Secret reads that hit the repository"),
		telemetry.WithLabels("scope"),
	)
)

// Manager is the host's secret authority. Reads are served from a TTL cache
// in front of the repository; all persistence runs under a single guard so
// generation, refresh, and mutation never interleave writes to one blob.
//
// Secrets are held decrypted in memory and sealed by the value crypto only
// at the persistence boundary. A read that finds values sealed under a
// different crypto key re-encrypts the blob under the active key, writing a
// snapshot backup first.
type Manager struct {
	logger *zap.Logger
	store  secretstore.SecretStore
	crypto ValueCrypto
	audit  *auditlog.Processor

	hostCache *expirable.LRU[string, *HostSecrets]
	funcCache *expirable.LRU[string, *FunctionSecrets]

	// persistMu serializes everything that writes to the repository.
	persistMu sync.Mutex
}

// NewManager builds a secret manager on top of the given repository. If the
// store signals external modification, affected cache entries are dropped.
func NewManager(logger *zap.Logger, store secretstore.SecretStore, crypto ValueCrypto, audit *auditlog.Processor, cfg *config.SecretsConfig) *Manager {
	ttl := defaultCacheTTL
	size := defaultCacheSize
	if cfg != nil {
		if cfg.CacheTTL.Duration() > 0 {
			ttl = cfg.CacheTTL.Duration()
		}
		if cfg.CacheSize > 0 {
			size = cfg.CacheSize
		}
	}

	if crypto == nil {
		crypto = PlaintextCrypto{}
	}

	m := &Manager{
		logger:    logger,
		store:     store,
		crypto:    crypto,
		audit:     audit,
		hostCache: expirable.NewLRU[string, *HostSecrets](1, nil, ttl),
		funcCache: expirable.NewLRU[string, *FunctionSecrets](size, nil, ttl),
	}

	if notifier, ok := store.(secretstore.ChangeNotifier); ok {
		notifier.Subscribe(m.Invalidate)
	}

	return m
}

// Invalidate drops the cached secrets for a blob so the next read goes back
// to the repository. Called when the store reports an external change.
func (m *Manager) Invalidate(name string) {
	if name == HostBlobName {
		m.hostCache.Remove(HostBlobName)
	} else {
		m.funcCache.Remove(name)
	}

	m.logger.Debug("secret cache invalidated", zap.String("blob", name))
}

// GetHostSecrets returns the host-level secrets, generating and persisting
// them on first read.
func (m *Manager) GetHostSecrets(ctx context.Context) (*HostSecrets, error) {
	if cached, ok := m.hostCache.Get(HostBlobName); ok {
		secretCacheHits(1, "host")
		return cached.clone(), nil
	}
	secretCacheMisses(1, "host")

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	// another reader may have loaded while we waited on the guard
	if cached, ok := m.hostCache.Get(HostBlobName); ok {
		return cached.clone(), nil
	}

	hs, err := m.loadHostSecrets(ctx)
	if err != nil {
		return nil, err
	}

	m.hostCache.Add(HostBlobName, hs)
	return hs.clone(), nil
}

// GetFunctionSecrets returns the named function's secrets, generating a
// default key on first read.
func (m *Manager) GetFunctionSecrets(ctx context.Context, function string) (*FunctionSecrets, error) {
	if function == "" {
		return nil, errors.New("function name is empty")
	}

	if cached, ok := m.funcCache.Get(function); ok {
		secretCacheHits(1, "function")
		return cached.clone(), nil
	}
	secretCacheMisses(1, "function")

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	if cached, ok := m.funcCache.Get(function); ok {
		return cached.clone(), nil
	}

	fs, err := m.loadFunctionSecrets(ctx, function)
	if err != nil {
		return nil, err
	}

	m.funcCache.Add(function, fs)
	return fs.clone(), nil
}

// AddOrUpdateFunctionSecret sets a named key on a function's secret set. An
// empty value means generate one. The resulting key is returned with its
// plaintext value.
func (m *Manager) AddOrUpdateFunctionSecret(ctx context.Context, function, keyName, value string) (Key, error) {
	if keyName == "" {
		return Key{}, errors.New("key name is empty")
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	fs, err := m.loadFunctionSecrets(ctx, function)
	if err != nil {
		return Key{}, err
	}

	if value == "" {
		value, err = generateValue()
		if err != nil {
			return Key{}, err
		}
		secretsGenerated(1, "function")
	}

	updated := false
	for i := range fs.Keys {
		if fs.Keys[i].Name == keyName {
			fs.Keys[i].Value = value
			updated = true
			break
		}
	}
	if !updated {
		fs.Keys = append(fs.Keys, Key{Name: keyName, Value: value})
	}

	if err := m.store.Snapshot(ctx, function); err != nil {
		return Key{}, fmt.Errorf("snapshotting function secrets: %w", err)
	}
	if err := m.persistFunctionSecrets(ctx, fs); err != nil {
		return Key{}, err
	}

	m.funcCache.Add(function, fs)
	m.audit.Log(
		zap.String("action", "secret-set"),
		zap.String("function", function),
		zap.String("key", keyName),
	)

	return Key{Name: keyName, Value: value}, nil
}

// DeleteFunctionSecret removes a named key from a function's secret set.
func (m *Manager) DeleteFunctionSecret(ctx context.Context, function, keyName string) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	fs, err := m.loadFunctionSecrets(ctx, function)
	if err != nil {
		return err
	}

	before := len(fs.Keys)
	fs.Keys = slices.DeleteFunc(fs.Keys, func(k Key) bool {
		return k.Name == keyName
	})
	if len(fs.Keys) == before {
		return fmt.Errorf("%w: %s/%s", ErrKeyNotFound, function, keyName)
	}

	if err := m.store.Snapshot(ctx, function); err != nil {
		return fmt.Errorf("snapshotting function secrets: %w", err)
	}
	if err := m.persistFunctionSecrets(ctx, fs); err != nil {
		return err
	}

	m.funcCache.Add(function, fs)
	m.audit.Log(
		zap.String("action", "secret-delete"),
		zap.String("function", function),
		zap.String("key", keyName),
	)

	return nil
}

// RotateMasterKey replaces the host master key with a fresh value and
// returns the new plaintext value.
func (m *Manager) RotateMasterKey(ctx context.Context) (string, error) {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	hs, err := m.loadHostSecrets(ctx)
	if err != nil {
		return "", err
	}

	value, err := generateValue()
	if err != nil {
		return "", err
	}
	hs.MasterKey.Value = value
	secretsGenerated(1, "host")

	if err := m.store.Snapshot(ctx, HostBlobName); err != nil {
		return "", fmt.Errorf("snapshotting host secrets: %w", err)
	}
	if err := m.persistHostSecrets(ctx, hs); err != nil {
		return "", err
	}

	m.hostCache.Add(HostBlobName, hs)
	m.audit.Log(
		zap.String("action", "master-key-rotate"),
	)

	return value, nil
}

// PurgeStale deletes persisted secrets for functions that no longer exist.
// The host blob is never purged.
func (m *Manager) PurgeStale(ctx context.Context, activeFunctions []string) error {
	active := make(map[string]bool, len(activeFunctions))
	for _, f := range activeFunctions {
		active[f] = true
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	names, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing secret blobs: %w", err)
	}

	var errs []error
	for _, name := range names {
		if name == HostBlobName || active[name] {
			continue
		}

		if err := m.store.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("purging secrets for %s: %w", name, err))
			continue
		}

		m.funcCache.Remove(name)
		m.logger.Info("purged secrets for removed function", zap.String("function", name))
		m.audit.Log(
			zap.String("action", "secret-purge"),
			zap.String("function", name),
		)
	}

	return errors.Join(errs...)
}

// loadHostSecrets reads, unseals, and if needed refreshes the host blob.
// Caller holds persistMu.
func (m *Manager) loadHostSecrets(ctx context.Context) (*HostSecrets, error) {
	data, err := m.store.Read(ctx, HostBlobName)
	if errors.Is(err, secretstore.ErrNotFound) {
		return m.generateHostSecrets(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("reading host secrets: %w", err)
	}

	var hs HostSecrets
	if err := json.Unmarshal(data, &hs); err != nil {
		return nil, fmt.Errorf("unmarshaling host secrets: %w", err)
	}

	stale, err := m.unsealKeys(hs.allKeys(), "host")
	if err != nil {
		return nil, err
	}

	if stale {
		if err := m.refresh(ctx, HostBlobName, func() error {
			return m.persistHostSecrets(ctx, &hs)
		}); err != nil {
			return nil, err
		}
		secretsRefreshed(1, "host")
	}

	return &hs, nil
}

// loadFunctionSecrets reads, unseals, and if needed refreshes one function's
// blob. Caller holds persistMu.
func (m *Manager) loadFunctionSecrets(ctx context.Context, function string) (*FunctionSecrets, error) {
	data, err := m.store.Read(ctx, function)
	if errors.Is(err, secretstore.ErrNotFound) {
		return m.generateFunctionSecrets(ctx, function)
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets for %s: %w", function, err)
	}

	fs := FunctionSecrets{FunctionName: function}
	if err := json.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("unmarshaling secrets for %s: %w", function, err)
	}

	stale, err := m.unsealKeys(fs.allKeys(), "function")
	if err != nil {
		return nil, err
	}

	if stale {
		if err := m.refresh(ctx, function, func() error {
			return m.persistFunctionSecrets(ctx, &fs)
		}); err != nil {
			return nil, err
		}
		secretsRefreshed(1, "function")
	}

	return &fs, nil
}

func (m *Manager) generateHostSecrets(ctx context.Context) (*HostSecrets, error) {
	master, err := generateValue()
	if err != nil {
		return nil, err
	}
	functionKey, err := generateValue()
	if err != nil {
		return nil, err
	}

	hs := &HostSecrets{
		MasterKey:    Key{Name: MasterKeyName, Value: master},
		FunctionKeys: []Key{{Name: DefaultKeyName, Value: functionKey}},
		SystemKeys:   []Key{},
	}
	secretsGenerated(2, "host")

	if err := m.persistHostSecrets(ctx, hs); err != nil {
		return nil, err
	}

	m.logger.Info("generated host secrets")
	m.audit.Log(
		zap.String("action", "secret-generate"),
		zap.String("scope", "host"),
	)

	return hs, nil
}

func (m *Manager) generateFunctionSecrets(ctx context.Context, function string) (*FunctionSecrets, error) {
	value, err := generateValue()
	if err != nil {
		return nil, err
	}

	fs := &FunctionSecrets{
		FunctionName: function,
		Keys:         []Key{{Name: DefaultKeyName, Value: value}},
	}
	secretsGenerated(1, "function")

	if err := m.persistFunctionSecrets(ctx, fs); err != nil {
		return nil, err
	}

	m.logger.Info("generated function secrets", zap.String("function", function))
	m.audit.Log(
		zap.String("action", "secret-generate"),
		zap.String("function", function),
	)

	return fs, nil
}

// refresh writes a snapshot backup and re-persists a blob under the active
// crypto key.
func (m *Manager) refresh(ctx context.Context, name string, persist func() error) error {
	if err := m.store.Snapshot(ctx, name); err != nil {
		return fmt.Errorf("snapshotting %s before refresh: %w", name, err)
	}
	if err := persist(); err != nil {
		return err
	}

	m.logger.Info("re-encrypted secrets under active key",
		zap.String("blob", name),
		zap.String("key_id", m.crypto.KeyID()),
	)
	return nil
}

// unsealKeys decrypts stored key values in place. The stale result is true
// when the blob needs re-persisting: plaintext values while encryption is
// configured, or values sealed under a different key, which cannot be
// opened with a single configured key and are regenerated.
func (m *Manager) unsealKeys(keys []*Key, scope string) (bool, error) {
	stale := false

	for _, k := range keys {
		if !k.Encrypted {
			if m.crypto.KeyID() != "" {
				stale = true
			}
			continue
		}

		plain, err := m.crypto.Open(k.Value, k.EncryptionKeyID)
		if err != nil {
			m.logger.Warn("secret value unreadable under active key, regenerating",
				zap.String("key", k.Name),
				zap.String("sealed_key_id", k.EncryptionKeyID),
				zap.Error(err),
			)
			plain, err = generateValue()
			if err != nil {
				return false, err
			}
			secretsGenerated(1, scope)
			stale = true
		}

		k.Value = plain
		k.Encrypted = false
		k.EncryptionKeyID = ""
	}

	return stale, nil
}

// sealKeys encrypts key values on a clone for persistence.
func (m *Manager) sealKeys(keys []*Key) error {
	keyID := m.crypto.KeyID()
	if keyID == "" {
		return nil
	}

	for _, k := range keys {
		sealed, err := m.crypto.Seal(k.Value)
		if err != nil {
			return fmt.Errorf("sealing key %s: %w", k.Name, err)
		}
		k.Value = sealed
		k.Encrypted = true
		k.EncryptionKeyID = keyID
	}

	return nil
}

func (m *Manager) persistHostSecrets(ctx context.Context, hs *HostSecrets) error {
	sealed := hs.clone()
	if err := m.sealKeys(sealed.allKeys()); err != nil {
		return err
	}

	data, err := marshalSecrets(sealed)
	if err != nil {
		return err
	}

	if err := m.store.Write(ctx, HostBlobName, data); err != nil {
		return fmt.Errorf("writing host secrets: %w", err)
	}
	return nil
}

func (m *Manager) persistFunctionSecrets(ctx context.Context, fs *FunctionSecrets) error {
	sealed := fs.clone()
	if err := m.sealKeys(sealed.allKeys()); err != nil {
		return err
	}

	data, err := marshalSecrets(sealed)
	if err != nil {
		return err
	}

	if err := m.store.Write(ctx, fs.FunctionName, data); err != nil {
		return fmt.Errorf("writing secrets for %s: %w", fs.FunctionName, err)
	}
	return nil
}
