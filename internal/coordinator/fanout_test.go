package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoReq struct {
	N int `json:"n"`
}

type echoRes struct {
	N int `json:"n"`
}

func TestPostToPeersFansOutAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req echoReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echoRes{N: req.N * 2})
	}))
	defer srv.Close()

	f := newFanoutClient(0, nil)
	urls := peers{srv.URL, srv.URL, srv.URL}
	requests := [3]echoReq{{N: 1}, {N: 2}, {N: 3}}

	results, err := postToPeers[echoReq, echoRes](context.Background(), f, urls, requests)
	require.NoError(t, err)
	assert.Equal(t, [3]echoRes{{N: 2}, {N: 4}, {N: 6}}, results)
}

func TestPostToPeersFailsWholeCallOnOnePeerError(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echoRes{N: 1})
	}))
	defer okSrv.Close()
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer badSrv.Close()

	f := newFanoutClient(0, nil)
	urls := peers{okSrv.URL, badSrv.URL, okSrv.URL}
	requests := [3]echoReq{{N: 1}, {N: 1}, {N: 1}}

	_, err := postToPeers[echoReq, echoRes](context.Background(), f, urls, requests)
	require.Error(t, err)
}

func TestPeerURLBuildsExpectedPath(t *testing.T) {
	assert.Equal(t, "https://peer0/api/v1/read/abc", peerURL("https://peer0", "read", "abc"))
}
