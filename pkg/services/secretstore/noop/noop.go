package noop

import (
	"context"
	"fmt"

	"github.com/brandonh-msft/azure-functions-host/pkg/services"
	"github.com/brandonh-msft/azure-functions-host/pkg/services/secretstore"
)

const (
	TypeNoopSecretStore services.ServiceType = "noop"
)

type Factory struct {
	secretstore.BaseSecretStore
}

func (f *Factory) Init(ctx context.Context, cfg any) error {
	return nil
}

func (f *Factory) Create(ctx context.Context) (services.Service, error) {
	return &Store{}, nil
}

// FactoryType returns the service type
func (f *Factory) FactoryType() services.ServiceType {
	return services.ServiceType(fmt.Sprintf("%s.%s", secretstore.TypeSecretStore, TypeNoopSecretStore))
}

// Store discards all writes and never finds a blob
type Store struct {
	secretstore.BaseSecretStore
}

func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	return nil, secretstore.ErrNotFound
}

func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *Store) Snapshot(ctx context.Context, name string) error {
	return nil
}
