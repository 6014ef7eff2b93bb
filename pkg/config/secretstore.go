package config

type SecretStoreType string

const (
	SecretStoreType_DISABLED SecretStoreType = "disabled"
	SecretStoreType_FILE     SecretStoreType = "file"
	SecretStoreType_MEMORY   SecretStoreType = "memory"
)

type ServiceSecretStore struct {
	Type              SecretStoreType `yaml:"type" validate:"required"`
	ID                string          `yaml:"id"`
	SecretStoreConfig `yaml:",inline,omitempty"`
}

func (s ServiceSecretStore) ServiceType() string {
	switch s.Type {
	case SecretStoreType_FILE:
		return "secretstore.file"
	case SecretStoreType_MEMORY:
		return "secretstore.memory"
	case SecretStoreType_DISABLED:
		return "secretstore.noop"
	default:
		return "secretstore.memory"
	}
}

type SecretStoreConfig struct {
	SecretStoreFileConfig `yaml:",inline,omitempty"`
}

type SecretStoreFileConfig struct {
	// Path is the directory holding secret blobs. Defaults to
	// <data-dir>/secrets when empty.
	Path string `yaml:"path"`

	// SnapshotLimit caps how many backup snapshots are kept per blob.
	SnapshotLimit int `yaml:"snapshot_limit"`
}
