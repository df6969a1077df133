package wire

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TaceoLabs/bitservice/internal/bserror"
	"github.com/TaceoLabs/bitservice/internal/crypto"
)

func TestSealOpenKeyShareRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	s := KeyShare{Lo: 42, Hi: 7}
	envelope, err := SealKeyShare(s, kp.Public)
	require.NoError(t, err)

	got, err := OpenKeyShare(envelope, kp.Private, "key")
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestSealOpenFieldShareRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	var lo, hi fr.Element
	lo.SetUint64(1)
	hi.SetUint64(2)
	s := FieldShare{Lo: lo, Hi: hi}

	envelope, err := SealFieldShare(s, kp.Public)
	require.NoError(t, err)

	got, err := OpenFieldShare(envelope, kp.Private, "r")
	require.NoError(t, err)
	assert.True(t, s.Lo.Equal(&got.Lo))
	assert.True(t, s.Hi.Equal(&got.Hi))
}

func TestOpenKeyShareRejectsMalformedBase64(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	_, err = OpenKeyShare("not-valid-base64!!", kp.Private, "key")
	require.Error(t, err)
	assert.Equal(t, bserror.BadRequest, bserror.KindOf(err))
}

func TestOpenKeyShareRejectsWrongRecipient(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	envelope, err := SealKeyShare(KeyShare{Lo: 1, Hi: 2}, kp.Public)
	require.NoError(t, err)

	_, err = OpenKeyShare(envelope, other.Private, "key")
	require.Error(t, err)
	assert.Equal(t, bserror.BadRequest, bserror.KindOf(err))
}
