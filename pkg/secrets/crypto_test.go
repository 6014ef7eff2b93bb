package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESValueCrypto_RoundTrip(t *testing.T) {
	crypto, err := NewAESValueCrypto("unit-test-key-material")
	require.NoError(t, err)
	require.NotEmpty(t, crypto.KeyID())

	sealed, err := crypto.Seal("super-secret-value")
	require.NoError(t, err)
	assert.NotEqual(t, "super-secret-value", sealed)

	opened, err := crypto.Open(sealed, crypto.KeyID())
	require.NoError(t, err)
	assert.Equal(t, "super-secret-value", opened)
}

func TestAESValueCrypto_WrongKeyID(t *testing.T) {
	crypto, err := NewAESValueCrypto("key-a")
	require.NoError(t, err)

	sealed, err := crypto.Seal("value")
	require.NoError(t, err)

	_, err = crypto.Open(sealed, "deadbeef")
	assert.ErrorIs(t, err, ErrWrongKey)
}

func TestAESValueCrypto_KeyIDIsStable(t *testing.T) {
	a1, err := NewAESValueCrypto("material-a")
	require.NoError(t, err)
	a2, err := NewAESValueCrypto("material-a")
	require.NoError(t, err)
	b, err := NewAESValueCrypto("material-b")
	require.NoError(t, err)

	assert.Equal(t, a1.KeyID(), a2.KeyID())
	assert.NotEqual(t, a1.KeyID(), b.KeyID())
}

func TestAESValueCrypto_EmptyMaterial(t *testing.T) {
	_, err := NewAESValueCrypto("")
	assert.Error(t, err)
}

func TestPlaintextCrypto(t *testing.T) {
	crypto := PlaintextCrypto{}
	assert.Empty(t, crypto.KeyID())

	sealed, err := crypto.Seal("value")
	require.NoError(t, err)
	assert.Equal(t, "value", sealed)

	opened, err := crypto.Open("value", "")
	require.NoError(t, err)
	assert.Equal(t, "value", opened)

	_, err = crypto.Open("value", "somekey")
	assert.ErrorIs(t, err, ErrWrongKey)
}
