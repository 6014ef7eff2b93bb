package secrets

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/brandonh-msft/azure-functions-host/pkg/auditlog"
	"github.com/brandonh-msft/azure-functions-host/pkg/services/secretstore"
	"github.com/brandonh-msft/azure-functions-host/pkg/services/secretstore/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMemoryStore(t *testing.T) secretstore.SecretStore {
	t.Helper()

	factory := &memory.Factory{}
	require.NoError(t, factory.Init(context.Background(), nil))

	svc, err := factory.Create(context.Background())
	require.NoError(t, err)

	store, ok := svc.(secretstore.SecretStore)
	require.True(t, ok)
	return store
}

func newTestManager(t *testing.T, store secretstore.SecretStore, crypto ValueCrypto) *Manager {
	t.Helper()
	return NewManager(zap.NewNop(), store, crypto, auditlog.New(zap.NewNop()), nil)
}

func TestManager_GeneratesHostSecretsOnFirstRead(t *testing.T) {
	store := newMemoryStore(t)
	m := newTestManager(t, store, nil)
	ctx := context.Background()

	hs, err := m.GetHostSecrets(ctx)
	require.NoError(t, err)

	assert.Equal(t, MasterKeyName, hs.MasterKey.Name)
	assert.NotEmpty(t, hs.MasterKey.Value)
	require.Len(t, hs.FunctionKeys, 1)
	assert.Equal(t, DefaultKeyName, hs.FunctionKeys[0].Name)
	assert.NotEmpty(t, hs.FunctionKeys[0].Value)

	// generated secrets were persisted
	data, err := store.Read(ctx, HostBlobName)
	require.NoError(t, err)

	var persisted HostSecrets
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, hs.MasterKey.Value, persisted.MasterKey.Value)
}

func TestManager_ServesRepeatReadsFromCache(t *testing.T) {
	store := newMemoryStore(t)
	m := newTestManager(t, store, nil)
	ctx := context.Background()

	first, err := m.GetHostSecrets(ctx)
	require.NoError(t, err)

	// deleting the blob does not affect cached reads
	require.NoError(t, store.Delete(ctx, HostBlobName))

	second, err := m.GetHostSecrets(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.MasterKey.Value, second.MasterKey.Value)
}

func TestManager_GeneratesFunctionSecretsOnFirstRead(t *testing.T) {
	store := newMemoryStore(t)
	m := newTestManager(t, store, nil)
	ctx := context.Background()

	fs, err := m.GetFunctionSecrets(ctx, "http-trigger")
	require.NoError(t, err)

	assert.Equal(t, "http-trigger", fs.FunctionName)
	require.Len(t, fs.Keys, 1)
	assert.Equal(t, DefaultKeyName, fs.Keys[0].Name)
	assert.NotEmpty(t, fs.Keys[0].Value)

	// repeat reads return the same generated value
	again, err := m.GetFunctionSecrets(ctx, "http-trigger")
	require.NoError(t, err)
	assert.Equal(t, fs.Keys[0].Value, again.Keys[0].Value)
}

func TestManager_AddOrUpdateFunctionSecret(t *testing.T) {
	store := newMemoryStore(t)
	m := newTestManager(t, store, nil)
	ctx := context.Background()

	// explicit value
	key, err := m.AddOrUpdateFunctionSecret(ctx, "http-trigger", "deploy", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", key.Value)

	// generated value
	key, err = m.AddOrUpdateFunctionSecret(ctx, "http-trigger", "ci", "")
	require.NoError(t, err)
	assert.NotEmpty(t, key.Value)

	// update in place, no duplicate key entries
	_, err = m.AddOrUpdateFunctionSecret(ctx, "http-trigger", "deploy", "xyz789")
	require.NoError(t, err)

	fs, err := m.GetFunctionSecrets(ctx, "http-trigger")
	require.NoError(t, err)

	names := make(map[string]string)
	for _, k := range fs.Keys {
		names[k.Name] = k.Value
	}
	assert.Equal(t, "xyz789", names["deploy"])
	assert.Len(t, fs.Keys, 3) // default, deploy, ci
}

func TestManager_DeleteFunctionSecret(t *testing.T) {
	store := newMemoryStore(t)
	m := newTestManager(t, store, nil)
	ctx := context.Background()

	_, err := m.AddOrUpdateFunctionSecret(ctx, "http-trigger", "deploy", "abc123")
	require.NoError(t, err)

	require.NoError(t, m.DeleteFunctionSecret(ctx, "http-trigger", "deploy"))

	fs, err := m.GetFunctionSecrets(ctx, "http-trigger")
	require.NoError(t, err)
	for _, k := range fs.Keys {
		assert.NotEqual(t, "deploy", k.Name)
	}

	err = m.DeleteFunctionSecret(ctx, "http-trigger", "deploy")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestManager_SealsValuesAtRest(t *testing.T) {
	store := newMemoryStore(t)
	crypto, err := NewAESValueCrypto("test-encryption-key")
	require.NoError(t, err)

	m := newTestManager(t, store, crypto)
	ctx := context.Background()

	fs, err := m.GetFunctionSecrets(ctx, "http-trigger")
	require.NoError(t, err)
	plaintext := fs.Keys[0].Value

	data, err := store.Read(ctx, "http-trigger")
	require.NoError(t, err)

	var persisted FunctionSecrets
	require.NoError(t, json.Unmarshal(data, &persisted))
	require.Len(t, persisted.Keys, 1)
	assert.True(t, persisted.Keys[0].Encrypted)
	assert.Equal(t, crypto.KeyID(), persisted.Keys[0].EncryptionKeyID)
	assert.NotEqual(t, plaintext, persisted.Keys[0].Value)
	assert.NotContains(t, string(data), plaintext)
}

func TestManager_RefreshesPlaintextBlobWhenEncryptionEnabled(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	// first manager persists plaintext
	plain := newTestManager(t, store, nil)
	fs, err := plain.GetFunctionSecrets(ctx, "http-trigger")
	require.NoError(t, err)
	original := fs.Keys[0].Value

	// second manager has encryption configured: the read upgrades the blob
	crypto, err := NewAESValueCrypto("test-encryption-key")
	require.NoError(t, err)
	encrypted := newTestManager(t, store, crypto)

	fs, err = encrypted.GetFunctionSecrets(ctx, "http-trigger")
	require.NoError(t, err)
	assert.Equal(t, original, fs.Keys[0].Value, "refresh must preserve readable values")

	data, err := store.Read(ctx, "http-trigger")
	require.NoError(t, err)

	var persisted FunctionSecrets
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.True(t, persisted.Keys[0].Encrypted)
	assert.Equal(t, crypto.KeyID(), persisted.Keys[0].EncryptionKeyID)
}

func TestManager_RegeneratesUnreadableValues(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	cryptoA, err := NewAESValueCrypto("key-a")
	require.NoError(t, err)
	managerA := newTestManager(t, store, cryptoA)

	fs, err := managerA.GetFunctionSecrets(ctx, "http-trigger")
	require.NoError(t, err)
	original := fs.Keys[0].Value

	// a manager with a different key cannot open the stored values and
	// regenerates them under its own key
	cryptoB, err := NewAESValueCrypto("key-b")
	require.NoError(t, err)
	managerB := newTestManager(t, store, cryptoB)

	fs, err = managerB.GetFunctionSecrets(ctx, "http-trigger")
	require.NoError(t, err)
	assert.NotEqual(t, original, fs.Keys[0].Value)

	data, err := store.Read(ctx, "http-trigger")
	require.NoError(t, err)

	var persisted FunctionSecrets
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, cryptoB.KeyID(), persisted.Keys[0].EncryptionKeyID)
}

func TestManager_RotateMasterKey(t *testing.T) {
	store := newMemoryStore(t)
	m := newTestManager(t, store, nil)
	ctx := context.Background()

	hs, err := m.GetHostSecrets(ctx)
	require.NoError(t, err)
	original := hs.MasterKey.Value

	rotated, err := m.RotateMasterKey(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, original, rotated)

	hs, err = m.GetHostSecrets(ctx)
	require.NoError(t, err)
	assert.Equal(t, rotated, hs.MasterKey.Value)

	// rotation persisted
	data, err := store.Read(ctx, HostBlobName)
	require.NoError(t, err)

	var persisted HostSecrets
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, rotated, persisted.MasterKey.Value)
}

func TestManager_PurgeStale(t *testing.T) {
	store := newMemoryStore(t)
	m := newTestManager(t, store, nil)
	ctx := context.Background()

	_, err := m.GetHostSecrets(ctx)
	require.NoError(t, err)
	_, err = m.GetFunctionSecrets(ctx, "keep-me")
	require.NoError(t, err)
	removed, err := m.GetFunctionSecrets(ctx, "remove-me")
	require.NoError(t, err)

	require.NoError(t, m.PurgeStale(ctx, []string{"keep-me"}))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{HostBlobName, "keep-me"}, names)

	// re-reading a purged function generates fresh secrets
	fresh, err := m.GetFunctionSecrets(ctx, "remove-me")
	require.NoError(t, err)
	assert.NotEqual(t, removed.Keys[0].Value, fresh.Keys[0].Value)
}

func TestManager_InvalidateForcesRepositoryRead(t *testing.T) {
	store := newMemoryStore(t)
	m := newTestManager(t, store, nil)
	ctx := context.Background()

	_, err := m.GetFunctionSecrets(ctx, "http-trigger")
	require.NoError(t, err)

	// an external writer replaces the blob behind the cache
	replacement := FunctionSecrets{
		Keys: []Key{{Name: DefaultKeyName, Value: "externally-written"}},
	}
	data, err := json.Marshal(replacement)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, "http-trigger", data))

	m.Invalidate("http-trigger")

	fs, err := m.GetFunctionSecrets(ctx, "http-trigger")
	require.NoError(t, err)
	require.Len(t, fs.Keys, 1)
	assert.Equal(t, "externally-written", fs.Keys[0].Value)
}

func TestManager_ReturnsCopies(t *testing.T) {
	store := newMemoryStore(t)
	m := newTestManager(t, store, nil)
	ctx := context.Background()

	hs, err := m.GetHostSecrets(ctx)
	require.NoError(t, err)

	hs.MasterKey.Value = "tampered"
	hs.FunctionKeys[0].Value = "tampered"

	again, err := m.GetHostSecrets(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "tampered", again.MasterKey.Value)
	assert.NotEqual(t, "tampered", again.FunctionKeys[0].Value)
}
