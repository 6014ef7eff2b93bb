package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brandonh-msft/azure-functions-host/pkg/config"
	"github.com/brandonh-msft/azure-functions-host/pkg/services/secretstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, snapshotLimit int) (*Factory, secretstore.SecretStore) {
	t.Helper()

	factory := &Factory{}
	err := factory.Init(context.Background(), config.ServiceSecretStore{
		Type: config.SecretStoreType_FILE,
		SecretStoreConfig: config.SecretStoreConfig{
			SecretStoreFileConfig: config.SecretStoreFileConfig{
				Path:          t.TempDir(),
				SnapshotLimit: snapshotLimit,
			},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })

	svc, err := factory.Create(context.Background())
	require.NoError(t, err)

	store, ok := svc.(secretstore.SecretStore)
	require.True(t, ok)
	return factory, store
}

func TestStore_ReadWriteDelete(t *testing.T) {
	_, store := newTestStore(t, 0)
	ctx := context.Background()

	_, err := store.Read(ctx, "host")
	assert.ErrorIs(t, err, secretstore.ErrNotFound)

	require.NoError(t, store.Write(ctx, "host", []byte(`{"v":1}`)))

	data, err := store.Read(ctx, "host")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(data))

	require.NoError(t, store.Delete(ctx, "host"))
	_, err = store.Read(ctx, "host")
	assert.ErrorIs(t, err, secretstore.ErrNotFound)

	// deleting a missing blob is not an error
	require.NoError(t, store.Delete(ctx, "host"))
}

func TestStore_List(t *testing.T) {
	_, store := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "host", []byte("{}")))
	require.NoError(t, store.Write(ctx, "http-trigger", []byte("{}")))
	require.NoError(t, store.Snapshot(ctx, "host"))

	names, err := store.List(ctx)
	require.NoError(t, err)

	// snapshots are not blobs
	assert.ElementsMatch(t, []string{"host", "http-trigger"}, names)
}

func TestStore_SnapshotLimit(t *testing.T) {
	factory, store := newTestStore(t, 3)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "host", []byte("{}")))
	for i := 0; i < 6; i++ {
		require.NoError(t, store.Snapshot(ctx, "host"))
	}

	pattern := filepath.Join(factory.path, "host"+snapshotMarker+"*"+blobExt)
	snaps, err := filepath.Glob(pattern)
	require.NoError(t, err)
	assert.Len(t, snaps, 3)
}

func TestStore_DeleteRemovesSnapshots(t *testing.T) {
	factory, store := newTestStore(t, 5)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "host", []byte("{}")))
	require.NoError(t, store.Snapshot(ctx, "host"))
	require.NoError(t, store.Delete(ctx, "host"))

	entries, err := os.ReadDir(factory.path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_NameSanitization(t *testing.T) {
	factory, store := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "My Function/../Name", []byte("{}")))

	entries, err := os.ReadDir(factory.path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "my-function----name.json", entries[0].Name())
}

func TestFactory_NotifiesOnExternalWrite(t *testing.T) {
	factory, store := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "http-trigger", []byte("{}")))

	changed := make(chan string, 8)
	notifier, ok := store.(secretstore.ChangeNotifier)
	require.True(t, ok)
	notifier.Subscribe(func(name string) {
		changed <- name
	})

	// simulate another process rewriting the blob
	path := filepath.Join(factory.path, "http-trigger"+blobExt)
	require.NoError(t, os.WriteFile(path, []byte(`{"v":2}`), 0o600))

	select {
	case name := <-changed:
		assert.Equal(t, "http-trigger", name)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification received")
	}
}

func TestFactory_CloseStopsWatcher(t *testing.T) {
	factory, store := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "http-trigger", []byte("{}")))

	changed := make(chan string, 8)
	factory.Subscribe(func(name string) {
		changed <- name
	})

	require.NoError(t, factory.Close())
	// closing twice is fine
	require.NoError(t, factory.Close())

	path := filepath.Join(factory.path, "http-trigger"+blobExt)
	require.NoError(t, os.WriteFile(path, []byte(`{"v":2}`), 0o600))

	select {
	case name := <-changed:
		t.Fatalf("notification after close: %s", name)
	case <-time.After(250 * time.Millisecond):
	}
}
