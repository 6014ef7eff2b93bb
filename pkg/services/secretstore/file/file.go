package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/brandonh-msft/azure-functions-host/pkg/config"
	"github.com/brandonh-msft/azure-functions-host/pkg/services"
	"github.com/brandonh-msft/azure-functions-host/pkg/services/secretstore"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

const (
	TypeFileSecretStore services.ServiceType = "file"

	blobExt              = ".json"
	snapshotMarker       = ".snapshot."
	defaultSnapshotLimit = 10
)

type Factory struct {
	services.LogHelper
	secretstore.BaseSecretStore

	mu            sync.Mutex
	path          string
	snapshotLimit int

	watcher *fsnotify.Watcher
	done    chan struct{}
	subs    []func(name string)
}

func (f *Factory) Init(ctx context.Context, cfg any) error {
	sc, ok := cfg.(config.ServiceSecretStore)
	if !ok {
		return fmt.Errorf("unexpected config type %T", cfg)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.path = sc.Path
	if f.path == "" {
		return fmt.Errorf("file secret store requires a path")
	}

	f.snapshotLimit = sc.SnapshotLimit
	if f.snapshotLimit <= 0 {
		f.snapshotLimit = defaultSnapshotLimit
	}

	if err := os.MkdirAll(f.path, 0o700); err != nil {
		return fmt.Errorf("creating secret store directory: %w", err)
	}

	return f.startWatcher()
}

func (f *Factory) Create(ctx context.Context) (services.Service, error) {
	return &Store{factory: f}, nil
}

// FactoryType returns the service type
func (f *Factory) FactoryType() services.ServiceType {
	return services.ServiceType(fmt.Sprintf("%s.%s", secretstore.TypeSecretStore, TypeFileSecretStore))
}

// Subscribe registers a callback invoked when a secret blob file changes.
func (f *Factory) Subscribe(callback func(name string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, callback)
}

func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watcher == nil {
		return nil
	}

	close(f.done)
	err := f.watcher.Close()
	f.watcher = nil
	return err
}

// startWatcher watches the store directory so externally-modified blobs can
// invalidate cached secrets. Callers hold f.mu.
func (f *Factory) startWatcher() error {
	if f.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating secret store watcher: %w", err)
	}
	if err := watcher.Add(f.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watching secret store directory: %w", err)
	}

	f.watcher = watcher
	f.done = make(chan struct{})

	go f.watchEvents(watcher, f.done)

	return nil
}

func (f *Factory) watchEvents(watcher *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) {
				continue
			}

			name := blobName(filepath.Base(event.Name))
			if name == "" {
				continue
			}

			f.Log().Debug("secret blob changed on disk", zap.String("name", name), zap.String("op", event.Op.String()))
			f.notify(name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.Log().Warn("secret store watcher error", zap.Error(err))
		case <-done:
			return
		}
	}
}

func (f *Factory) notify(name string) {
	f.mu.Lock()
	subs := make([]func(string), len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, sub := range subs {
		sub(name)
	}
}

// Store implements the SecretStore interface on the local filesystem
type Store struct {
	secretstore.BaseSecretStore

	factory *Factory
}

// Subscribe forwards change notifications from the directory watcher.
func (s *Store) Subscribe(callback func(name string)) {
	s.factory.Subscribe(callback)
}

func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.blobPath(name))
	if os.IsNotExist(err) {
		return nil, secretstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading secret blob %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	path := s.blobPath(name)

	// write-then-rename so watchers never observe a partial blob
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing secret blob %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("committing secret blob %s: %w", name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := os.Remove(s.blobPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting secret blob %s: %w", name, err)
	}

	for _, snap := range s.snapshots(name) {
		_ = os.Remove(snap)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.factory.path)
	if err != nil {
		return nil, fmt.Errorf("listing secret store: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := blobName(entry.Name()); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Snapshot copies the current blob aside before an overwrite. Snapshot
// filenames embed an xid so lexicographic order is chronological order.
func (s *Store) Snapshot(ctx context.Context, name string) error {
	data, err := os.ReadFile(s.blobPath(name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading secret blob %s for snapshot: %w", name, err)
	}

	snapPath := filepath.Join(s.factory.path, fileName(name)+snapshotMarker+xid.New().String()+blobExt)
	if err := os.WriteFile(snapPath, data, 0o600); err != nil {
		return fmt.Errorf("writing secret snapshot for %s: %w", name, err)
	}

	s.pruneSnapshots(name)
	return nil
}

func (s *Store) pruneSnapshots(name string) {
	snaps := s.snapshots(name)
	if len(snaps) <= s.factory.snapshotLimit {
		return
	}

	sort.Strings(snaps)
	for _, snap := range snaps[:len(snaps)-s.factory.snapshotLimit] {
		_ = os.Remove(snap)
	}
}

func (s *Store) snapshots(name string) []string {
	pattern := filepath.Join(s.factory.path, fileName(name)+snapshotMarker+"*"+blobExt)
	snaps, _ := filepath.Glob(pattern)
	return snaps
}

func (s *Store) blobPath(name string) string {
	return filepath.Join(s.factory.path, fileName(name)+blobExt)
}

// fileName maps a blob name to a safe filename
func fileName(name string) string {
	name = strings.ToLower(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}

// blobName reverses fileName for directory entries, skipping snapshots and
// temp files. Returns "" for files that are not secret blobs.
func blobName(file string) string {
	if !strings.HasSuffix(file, blobExt) {
		return ""
	}
	if strings.Contains(file, snapshotMarker) {
		return ""
	}
	return strings.TrimSuffix(file, blobExt)
}
