package secretstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/brandonh-msft/azure-functions-host/pkg/services"
)

const (
	TypeSecretStore services.ServiceType = "secretstore"
)

// ErrNotFound is returned when a named secret blob does not exist.
var ErrNotFound = errors.New("secret blob not found")

// SecretStore persists opaque secret blobs keyed by name. The host uses one
// blob per scope: "host" for host-level secrets and the function name for
// per-function secrets.
type SecretStore interface {
	services.Service

	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)

	// Snapshot writes a backup copy of the current blob before it is
	// overwritten. Stores without history keep this a no-op.
	Snapshot(ctx context.Context, name string) error
}

// ChangeNotifier is implemented by stores that can signal that a blob was
// modified outside this process.
type ChangeNotifier interface {
	Subscribe(func(name string))
}

// BaseSecretStore provides common functionality for SecretStore implementations
type BaseSecretStore struct {
	Registry services.RegistryAccessor
}

// ServiceType returns the service type
func (b *BaseSecretStore) ServiceType() services.ServiceType {
	return TypeSecretStore
}

func (b *BaseSecretStore) SetRegistry(registry services.RegistryAccessor) {
	b.Registry = registry
}

// Resolve returns the active secret store from the registry.
func Resolve(ctx context.Context, registry services.RegistryAccessor) (SecretStore, error) {
	factory := registry.Get(TypeSecretStore)
	if factory == nil {
		return nil, fmt.Errorf("no secret store registered")
	}

	svc, err := factory.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating secret store: %w", err)
	}

	store, ok := svc.(SecretStore)
	if !ok {
		return nil, fmt.Errorf("service %s is not a secret store", svc.ServiceType())
	}

	return store, nil
}
