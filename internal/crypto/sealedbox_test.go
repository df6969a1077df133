package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealUnsealRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("a 32-bit key share, sealed for one peer")
	sealed, err := Seal(msg, kp.Public)
	require.NoError(t, err)

	opened, err := Unseal(sealed, kp.Private)
	require.NoError(t, err)
	assert.Equal(t, msg, opened)
}

func TestUnsealWithWrongKeyFails(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	other, err := GenerateKeyPair()
	require.NoError(t, err)

	sealed, err := Seal([]byte("secret"), kp.Public)
	require.NoError(t, err)

	_, err = Unseal(sealed, other.Private)
	assert.Error(t, err)
}

func TestUnsealRejectsTruncatedInput(t *testing.T) {
	_, err := Unseal([]byte{1, 2, 3}, PrivateKey{})
	assert.Error(t, err)
}

func TestSealIsNotDeterministic(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	a, err := Seal([]byte("same message"), kp.Public)
	require.NoError(t, err)
	b, err := Seal([]byte("same message"), kp.Public)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "fresh ephemeral keypair and nonce per seal should make ciphertexts differ")
}
