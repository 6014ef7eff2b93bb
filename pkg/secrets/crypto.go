package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrWrongKey is returned by Open when the ciphertext was sealed under a
// different crypto key than the one currently configured.
var ErrWrongKey = errors.New("value sealed under a different encryption key")

// ValueCrypto seals secret values for persistence. KeyID identifies the
// active key so stored blobs can be detected as sealed under an older key.
type ValueCrypto interface {
	// Seal encrypts a plaintext value for storage.
	Seal(plaintext string) (string, error)

	// Open decrypts a stored value sealed under the given key ID.
	Open(ciphertext string, keyID string) (string, error)

	// KeyID identifies the active encryption key. Empty means values are
	// stored in plaintext.
	KeyID() string
}

// PlaintextCrypto stores values unencrypted. Used when no encryption key is
// configured.
type PlaintextCrypto struct{}

var _ ValueCrypto = PlaintextCrypto{}

func (PlaintextCrypto) Seal(plaintext string) (string, error) {
	return plaintext, nil
}

func (PlaintextCrypto) Open(ciphertext string, keyID string) (string, error) {
	if keyID != "" {
		return "", ErrWrongKey
	}
	return ciphertext, nil
}

func (PlaintextCrypto) KeyID() string { return "" }

// AESValueCrypto seals values with AES-256-GCM. The cipher key is derived
// from the configured key material, and the key ID is a stable fingerprint
// of that material so a key change is detectable on read.
type AESValueCrypto struct {
	aead  cipher.AEAD
	keyID string
}

var _ ValueCrypto = (*AESValueCrypto)(nil)

// NewAESValueCrypto derives an AES-256-GCM cipher from the given key
// material. Any non-empty string works as material; it is hashed to the
// cipher key length.
func NewAESValueCrypto(material string) (*AESValueCrypto, error) {
	if material == "" {
		return nil, errors.New("encryption key material is empty")
	}

	key := sha256.Sum256([]byte(material))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}

	fingerprint := sha256.Sum256(key[:])

	return &AESValueCrypto{
		aead:  aead,
		keyID: hex.EncodeToString(fingerprint[:4]),
	}, nil
}

func (c *AESValueCrypto) Seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AESValueCrypto) Open(ciphertext string, keyID string) (string, error) {
	if keyID != c.keyID {
		return "", ErrWrongKey
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decoding sealed value: %w", err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("opening sealed value: %w", err)
	}

	return string(plaintext), nil
}

func (c *AESValueCrypto) KeyID() string { return c.keyID }
