package wire

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyShareRoundTrip(t *testing.T) {
	s := KeyShare{Lo: 0xdeadbeef, Hi: 0x00c0ffee}
	got, err := DecodeKeyShare(EncodeKeyShare(s))
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecodeKeyShareRejectsWrongLength(t *testing.T) {
	_, err := DecodeKeyShare([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestFieldShareRoundTrip(t *testing.T) {
	var lo, hi fr.Element
	lo.SetUint64(123456789)
	hi.SetUint64(987654321)
	s := FieldShare{Lo: lo, Hi: hi}

	got, err := DecodeFieldShare(EncodeFieldShare(s))
	require.NoError(t, err)
	assert.True(t, s.Lo.Equal(&got.Lo))
	assert.True(t, s.Hi.Equal(&got.Hi))
}

func TestDecodeFieldShareRejectsWrongLength(t *testing.T) {
	_, err := DecodeFieldShare([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestEncodeKeyShareIsLittleEndian(t *testing.T) {
	s := KeyShare{Lo: 1, Hi: 0}
	buf := EncodeKeyShare(s)
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, buf)
}
