package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TaceoLabs/bitservice/internal/logging"
	"github.com/TaceoLabs/bitservice/internal/metrics"
	"github.com/TaceoLabs/bitservice/internal/wire"
)

func TestTaskSetSpawnWaitAnyWaitAll(t *testing.T) {
	ts := newTaskSet(2)
	assert.False(t, ts.Full())

	doneA := make(chan struct{})
	ts.Spawn(func() { <-doneA })
	assert.Equal(t, 1, ts.Len())
	assert.False(t, ts.Full())

	doneB := make(chan struct{})
	ts.Spawn(func() { <-doneB })
	assert.True(t, ts.Full())

	close(doneA)
	ts.WaitAny()
	assert.Equal(t, 1, ts.Len())

	close(doneB)
	ts.WaitAll()
	assert.Equal(t, 0, ts.Len())
}

func TestTaskSetWaitAllNoop(t *testing.T) {
	ts := newTaskSet(3)
	ts.WaitAll() // must not block when nothing is in flight
	ts.WaitAny()
}

// blockingPeerServer answers /read by blocking until release is closed, and
// answers everything else immediately, so tests can observe that a write
// really does wait for an in-flight read to drain.
func blockingPeerServer(t *testing.T, release <-chan struct{}, arrived chan<- struct{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/read/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case arrived <- struct{}{}:
		default:
		}
		<-release
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wire.PeerReadResponse{})
	})
	mux.HandleFunc("/api/v1/ban/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wire.PeerBanResponse{})
	})
	mux.HandleFunc("/api/v1/unban/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wire.PeerBanResponse{})
	})
	mux.HandleFunc("/api/v1/prune/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wire.PeerPruneResponse{})
	})
	return httptest.NewServer(mux)
}

func TestRPQueueWriteWaitsForInFlightRead(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{}, 3)
	srv := blockingPeerServer(t, release, arrived)
	defer srv.Close()

	m := metrics.NewCoordinator(prometheus.NewRegistry())
	q := NewRPQueue([3]string{srv.URL, srv.URL, srv.URL}, 1000, 4, 5*time.Second, m, logging.Discard())

	readDone := make(chan struct{})
	go func() {
		_, err := q.Read(context.Background(), wire.ReadRequest{})
		assert.NoError(t, err)
		close(readDone)
	}()

	// Wait for the read to actually reach the (blocked) peer handler.
	<-arrived

	writeDone := make(chan struct{})
	go func() {
		_, err := q.Ban(context.Background(), wire.BanRequest{})
		assert.NoError(t, err)
		close(writeDone)
	}()

	select {
	case <-writeDone:
		t.Fatal("ban completed before the in-flight read was released")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-readDone:
	case <-time.After(time.Second):
		t.Fatal("read never completed")
	}
	select {
	case <-writeDone:
	case <-time.After(time.Second):
		t.Fatal("ban never completed after read was released")
	}
}

func TestRPQueuePruneTriggersOnInterval(t *testing.T) {
	pruned := make(chan struct{}, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/ban/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wire.PeerBanResponse{})
	})
	mux.HandleFunc("/api/v1/prune/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case pruned <- struct{}{}:
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wire.PeerPruneResponse{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := metrics.NewCoordinator(prometheus.NewRegistry())
	q := NewRPQueue([3]string{srv.URL, srv.URL, srv.URL}, 1, 4, 5*time.Second, m, logging.Discard())

	_, err := q.Ban(context.Background(), wire.BanRequest{})
	require.NoError(t, err)

	select {
	case <-pruned:
	case <-time.After(time.Second):
		t.Fatal("prune was not triggered after pruneWriteInterval writes")
	}
}
