package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TaceoLabs/bitservice/internal/bserror"
	"github.com/TaceoLabs/bitservice/internal/crypto"
	"github.com/TaceoLabs/bitservice/internal/snark"
)

func TestSplitKeyReconstructsToOriginal(t *testing.T) {
	shares := splitKey(123456789)

	sum := shares[0].Lo + shares[1].Lo + shares[2].Lo
	assert.Equal(t, uint32(123456789), sum)

	// Each peer's pair is (x_i, x_{i+1 mod 3}): the Hi half of peer i must
	// equal the Lo half of peer i+1.
	for i := 0; i < 3; i++ {
		assert.Equal(t, shares[(i+1)%3].Lo, shares[i].Hi)
	}
}

func TestSplitFieldReconstructsToOriginal(t *testing.T) {
	var v fr.Element
	v.SetUint64(42)

	shares, err := splitField(v)
	require.NoError(t, err)

	var sum fr.Element
	sum.Add(&shares[0].Lo, &shares[1].Lo)
	sum.Add(&sum, &shares[2].Lo)
	assert.True(t, v.Equal(&sum))

	for i := 0; i < 3; i++ {
		assert.True(t, shares[(i+1)%3].Lo.Equal(&shares[i].Hi))
	}
}

func TestReconstructBitZeroAndOne(t *testing.T) {
	var zero, one fr.Element
	one.SetOne()

	v, err := reconstructBit(zero)
	require.NoError(t, err)
	assert.Equal(t, NotBanned, v)

	v, err = reconstructBit(one)
	require.NoError(t, err)
	assert.Equal(t, Banned, v)
}

func TestReconstructBitRejectsOtherValues(t *testing.T) {
	var two fr.Element
	two.SetUint64(2)

	_, err := reconstructBit(two)
	require.Error(t, err)
	assert.Equal(t, bserror.ProtocolError, bserror.KindOf(err))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "Banned", Banned.String())
	assert.Equal(t, "NotBanned", NotBanned.String())
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	var peerPubKeys [3]crypto.PublicKey
	for i := range peerPubKeys {
		kp, err := crypto.GenerateKeyPair()
		require.NoError(t, err)
		peerPubKeys[i] = kp.Public
	}
	return New(nil, serverURL, "rp-1", peerPubKeys, snark.VerifyingKey{}, snark.VerifyingKey{})
}

func TestReadSurfacesNonSuccessStatusAsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	var r fr.Element
	_, err := r.SetRandom()
	require.NoError(t, err)

	_, err = c.Read(context.Background(), 7, r)
	require.Error(t, err)
	assert.Equal(t, bserror.UpstreamError, bserror.KindOf(err))
}

func TestReadSurfacesMalformedJSONAsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	var r fr.Element
	_, err := r.SetRandom()
	require.NoError(t, err)

	_, err = c.Read(context.Background(), 7, r)
	require.Error(t, err)
	assert.Equal(t, bserror.UpstreamError, bserror.KindOf(err))
}

func TestBanPostsToCorrectRoute(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	var rKey, rValue fr.Element
	_, _ = rKey.SetRandom()
	_, _ = rValue.SetRandom()

	err := c.Ban(context.Background(), 7, rKey, rValue)
	require.Error(t, err)
	assert.Equal(t, "/api/v1/ban/rp-1", gotPath)
}
