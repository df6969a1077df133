// Package coordinator implements the per-relying-party read/write queue
// that serializes access to one relying party's three peers: writes drain
// all in-flight reads first, and a periodic prune rides the write stream.
// It is a direct Go port of the original_source's
// bitservice-server/src/rw_queue.rs actor, generalizing the mpsc-actor
// pattern pkg/mcast/core.Peer uses for its own request queue.
package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TaceoLabs/bitservice/internal/wire"
)

// peers is the three ordered peer base URLs for one relying party, e.g.
// ["https://peer0", "https://peer1", "https://peer2"].
type peers [3]string

// fanoutClient posts one request per peer in parallel and fans the three
// responses back in, matching rw_queue.rs's post_to_peers.
type fanoutClient struct {
	http       *http.Client
	peerErrors *prometheus.CounterVec
}

func newFanoutClient(timeout time.Duration, peerErrors *prometheus.CounterVec) *fanoutClient {
	return &fanoutClient{
		http:       &http.Client{Timeout: timeout},
		peerErrors: peerErrors,
	}
}

type postResult struct {
	body []byte
	err  error
}

func (f *fanoutClient) post(ctx context.Context, url string, body any) postResult {
	payload, err := json.Marshal(body)
	if err != nil {
		return postResult{err: errors.Wrap(err, "marshaling peer request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return postResult{err: errors.Wrap(err, "building peer request")}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		if f.peerErrors != nil {
			f.peerErrors.WithLabelValues(url).Inc()
		}
		return postResult{err: errors.Wrapf(err, "sending request to %s", url)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return postResult{err: errors.Wrapf(err, "reading response from %s", url)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if f.peerErrors != nil {
			f.peerErrors.WithLabelValues(url).Inc()
		}
		return postResult{err: errors.Errorf("peer %s returned error: %s", url, string(respBody))}
	}
	return postResult{body: respBody}
}

// postToPeers POSTs requests[i] to urls[i] for i in 0..3, concurrently, and
// JSON-decodes each response into the matching element of the returned
// array. Any single peer failing fails the whole call.
func postToPeers[Req any, Res any](ctx context.Context, f *fanoutClient, urls peers, requests [3]Req) ([3]Res, error) {
	var results [3]postResult
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = f.post(ctx, urls[i], requests[i])
		}(i)
	}
	wg.Wait()

	var out [3]Res
	for i, res := range results {
		if res.err != nil {
			return out, errors.Wrapf(res.err, "peer%d", i)
		}
	}
	for i, res := range results {
		if err := json.Unmarshal(res.body, &out[i]); err != nil {
			return out, errors.Wrapf(err, "decoding response from peer%d", i)
		}
	}
	return out, nil
}

func peerURL(base, op, requestID string) string {
	return fmt.Sprintf("%s/api/v1/%s/%s", base, op, requestID)
}

func doPeerRead(ctx context.Context, f *fanoutClient, p peers, req wire.ReadRequest, requestID string) (wire.ReadResponse, error) {
	urls := peers{peerURL(p[0], "read", requestID), peerURL(p[1], "read", requestID), peerURL(p[2], "read", requestID)}
	responses, err := postToPeers[wire.PeerReadRequest, wire.PeerReadResponse](ctx, f, urls, req.Requests)
	if err != nil {
		return wire.ReadResponse{}, err
	}
	return wire.ReadResponse{Responses: responses}, nil
}

func doPeerBan(ctx context.Context, f *fanoutClient, p peers, req wire.BanRequest, requestID string) (wire.BanResponse, error) {
	urls := peers{peerURL(p[0], "ban", requestID), peerURL(p[1], "ban", requestID), peerURL(p[2], "ban", requestID)}
	responses, err := postToPeers[wire.PeerBanRequest, wire.PeerBanResponse](ctx, f, urls, req.Requests)
	if err != nil {
		return wire.BanResponse{}, err
	}
	return wire.BanResponse{Responses: responses}, nil
}

func doPeerUnban(ctx context.Context, f *fanoutClient, p peers, req wire.UnbanRequest, requestID string) (wire.UnbanResponse, error) {
	urls := peers{peerURL(p[0], "unban", requestID), peerURL(p[1], "unban", requestID), peerURL(p[2], "unban", requestID)}
	responses, err := postToPeers[wire.PeerUnbanRequest, wire.PeerUnbanResponse](ctx, f, urls, req.Requests)
	if err != nil {
		return wire.UnbanResponse{}, err
	}
	return wire.UnbanResponse{Responses: responses}, nil
}

func doPeerPrune(ctx context.Context, f *fanoutClient, p peers, requestID string) error {
	urls := peers{peerURL(p[0], "prune", requestID), peerURL(p[1], "prune", requestID), peerURL(p[2], "prune", requestID)}
	req := wire.PeerPruneRequest{RequestID: requestID}
	_, err := postToPeers[wire.PeerPruneRequest, wire.PeerPruneResponse](ctx, f, urls, [3]wire.PeerPruneRequest{req, req, req})
	return err
}
