package memory

import (
	"context"
	"fmt"

	"github.com/brandonh-msft/azure-functions-host/pkg/services"
	"github.com/brandonh-msft/azure-functions-host/pkg/services/secretstore"
	"github.com/brandonh-msft/azure-functions-host/pkg/synq"
)

const (
	TypeMemorySecretStore services.ServiceType = "memory"
)

type Factory struct {
	secretstore.BaseSecretStore

	blobs *synq.Map[string, []byte]
}

func (f *Factory) Init(ctx context.Context, cfg any) error {
	if f.blobs == nil {
		f.blobs = synq.NewMap[string, []byte]()
	}
	return nil
}

func (f *Factory) Create(ctx context.Context) (services.Service, error) {
	return &Store{blobs: f.blobs}, nil
}

// FactoryType returns the service type
func (f *Factory) FactoryType() services.ServiceType {
	return services.ServiceType(fmt.Sprintf("%s.%s", secretstore.TypeSecretStore, TypeMemorySecretStore))
}

// Store implements the SecretStore interface in process memory. Secrets do
// not survive a host restart; useful for local development and tests.
type Store struct {
	secretstore.BaseSecretStore

	blobs *synq.Map[string, []byte]
}

func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	data, ok := s.blobs.Load(name)
	if !ok {
		return nil, secretstore.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	s.blobs.Store(name, append([]byte(nil), data...))
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	s.blobs.Delete(name)
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	var names []string
	s.blobs.Iter(func(name string, _ []byte) bool {
		names = append(names, name)
		return true
	})
	return names, nil
}

// Snapshot is a no-op; the memory store keeps no history.
func (s *Store) Snapshot(ctx context.Context, name string) error {
	return nil
}
