package coordinator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TaceoLabs/bitservice/internal/logging"
	"github.com/TaceoLabs/bitservice/internal/metrics"
	"github.com/TaceoLabs/bitservice/internal/wire"
)

func newTestRouter(t *testing.T, rpPeers map[string][3]string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := metrics.NewCoordinator(prometheus.NewRegistry())
	c := New(rpPeers, 1000, 4, 5*time.Second, m, logging.Discard())
	r := gin.New()
	c.Register(r)
	return r
}

func TestHandleReadUnknownRelyingPartyIs404(t *testing.T) {
	r := newTestRouter(t, map[string][3]string{})

	body, _ := json.Marshal(wire.ReadRequest{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/read/does-not-exist", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleReadMalformedBodyIs400(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := newTestRouter(t, map[string][3]string{"rp-1": {srv.URL, srv.URL, srv.URL}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/read/rp-1", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleBanSucceedsAndReturnsPeerResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/ban/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wire.PeerBanResponse{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := newTestRouter(t, map[string][3]string{"rp-1": {srv.URL, srv.URL, srv.URL}})

	body, _ := json.Marshal(wire.BanRequest{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ban/rp-1", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res wire.BanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
}

func TestHandleReadUpstreamFailureIsBadGateway(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/read/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := newTestRouter(t, map[string][3]string{"rp-1": {srv.URL, srv.URL, srv.URL}})

	body, _ := json.Marshal(wire.ReadRequest{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/read/rp-1", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
