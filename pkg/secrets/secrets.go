package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	// HostBlobName is the repository blob holding host-level secrets. Function
	// secrets are stored under the function's own name.
	HostBlobName = "host"

	// MasterKeyName is the name of the host master key.
	MasterKeyName = "master"

	// DefaultKeyName is the name assigned to generated default keys.
	DefaultKeyName = "default"

	// generatedKeyBytes is the entropy of a generated key value before
	// base64 encoding.
	generatedKeyBytes = 40
)

// Key is a single named secret value. At rest the value is sealed by the
// configured value crypto; in memory it is always plaintext.
type Key struct {
	Name            string `json:"name"`
	Value           string `json:"value"`
	Encrypted       bool   `json:"encrypted,omitempty"`
	EncryptionKeyID string `json:"encryptionKeyId,omitempty"`
}

// HostSecrets holds the host-scoped secrets: the master key, host-level
// function keys that authorize any function, and system keys for extensions.
type HostSecrets struct {
	MasterKey    Key   `json:"masterKey"`
	FunctionKeys []Key `json:"functionKeys"`
	SystemKeys   []Key `json:"systemKeys"`
}

// FunctionSecrets holds the named keys for one function.
type FunctionSecrets struct {
	FunctionName string `json:"-"`
	Keys         []Key  `json:"keys"`
}

func (h *HostSecrets) allKeys() []*Key {
	keys := []*Key{&h.MasterKey}
	for i := range h.FunctionKeys {
		keys = append(keys, &h.FunctionKeys[i])
	}
	for i := range h.SystemKeys {
		keys = append(keys, &h.SystemKeys[i])
	}
	return keys
}

func (f *FunctionSecrets) allKeys() []*Key {
	keys := make([]*Key, 0, len(f.Keys))
	for i := range f.Keys {
		keys = append(keys, &f.Keys[i])
	}
	return keys
}

func (h *HostSecrets) clone() *HostSecrets {
	c := &HostSecrets{
		MasterKey:    h.MasterKey,
		FunctionKeys: make([]Key, len(h.FunctionKeys)),
		SystemKeys:   make([]Key, len(h.SystemKeys)),
	}
	copy(c.FunctionKeys, h.FunctionKeys)
	copy(c.SystemKeys, h.SystemKeys)
	return c
}

func (f *FunctionSecrets) clone() *FunctionSecrets {
	c := &FunctionSecrets{
		FunctionName: f.FunctionName,
		Keys:         make([]Key, len(f.Keys)),
	}
	copy(c.Keys, f.Keys)
	return c
}

func marshalSecrets(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling secrets: %w", err)
	}
	return data, nil
}

// generateValue returns a fresh random key value.
func generateValue() (string, error) {
	buf := make([]byte, generatedKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating key material: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
