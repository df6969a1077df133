// Package client implements the encoder/verifier library every bitservice
// caller links against: it splits a key and its randomness into replicated
// shares, seals one envelope per peer, posts the bundle to the coordinator,
// and verifies the returned Groth16 proofs before handing back a result.
// It generalizes original_source's bitservice-client crate, reusing
// internal/wire's envelope and internal/snark's verifier rather than a
// crate of its own.
package client

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/TaceoLabs/bitservice/internal/bserror"
	"github.com/TaceoLabs/bitservice/internal/crypto"
	"github.com/TaceoLabs/bitservice/internal/ids"
	"github.com/TaceoLabs/bitservice/internal/snark"
	"github.com/TaceoLabs/bitservice/internal/wire"
)

// Value is the reconstructed result of a read, per spec.md section 4.1.
type Value int

const (
	NotBanned Value = iota
	Banned
)

func (v Value) String() string {
	if v == Banned {
		return "Banned"
	}
	return "NotBanned"
}

// Client is the encoder/verifier half of bitservice: it never talks to
// peers directly, only to the coordinator, mirroring
// bitservice-client::Client's constructor shape.
type Client struct {
	http        *http.Client
	serverURL   string
	rpID        string
	peerPubKeys [3]crypto.PublicKey
	readVK      snark.VerifyingKey
	writeVK     snark.VerifyingKey
}

// New builds a Client addressed at serverURL's coordinator for relying
// party rpID, sealing shares to peerPubKeys and verifying proofs against
// readVK/writeVK.
func New(httpClient *http.Client, serverURL, rpID string, peerPubKeys [3]crypto.PublicKey, readVK, writeVK snark.VerifyingKey) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		http:        httpClient,
		serverURL:   serverURL,
		rpID:        rpID,
		peerPubKeys: peerPubKeys,
		readVK:      readVK,
		writeVK:     writeVK,
	}
}

// Read performs an oblivious membership check for key, using r as the
// read round's blinding randomness.
func (c *Client) Read(ctx context.Context, key uint32, r fr.Element) (Value, error) {
	keyShares := splitKey(key)
	rShares, err := splitField(r)
	if err != nil {
		return 0, err
	}

	requestID := ids.NewRequestID()
	var req wire.ReadRequest
	for i := 0; i < 3; i++ {
		sealedKey, err := wire.SealKeyShare(keyShares[i], c.peerPubKeys[i])
		if err != nil {
			return 0, err
		}
		sealedR, err := wire.SealFieldShare(rShares[i], c.peerPubKeys[i])
		if err != nil {
			return 0, err
		}
		req.Requests[i] = wire.PeerReadRequest{RequestID: requestID.String(), Key: sealedKey, R: sealedR}
	}

	var res wire.ReadResponse
	if err := c.post(ctx, "read", req, &res); err != nil {
		return 0, err
	}

	sum := res.Responses[0].Value.Element
	sum.Add(&sum, &res.Responses[1].Value.Element)
	sum.Add(&sum, &res.Responses[2].Value.Element)

	value, err := reconstructBit(sum)
	if err != nil {
		return 0, err
	}

	for i, resp := range res.Responses {
		publicInputs := []fr.Element{resp.Root.Element, resp.Commitment.Element}
		if err := snark.Verify(c.readVK, resp.Proof, publicInputs); err != nil {
			return 0, bserror.Wrap(bserror.ProofError, err, fmt.Sprintf("verifying read proof from peer%d", i))
		}
	}

	return value, nil
}

// Ban marks key as banned. rKey and rValue blind the write round.
func (c *Client) Ban(ctx context.Context, key uint32, rKey, rValue fr.Element) error {
	return c.write(ctx, "ban", key, valueOne(), rKey, rValue)
}

// Unban marks key as not banned.
func (c *Client) Unban(ctx context.Context, key uint32, rKey, rValue fr.Element) error {
	return c.write(ctx, "unban", key, fr.Element{}, rKey, rValue)
}

func (c *Client) write(ctx context.Context, op string, key uint32, value, rKey, rValue fr.Element) error {
	keyShares := splitKey(key)
	valueShares, err := splitField(value)
	if err != nil {
		return err
	}
	rKeyShares, err := splitField(rKey)
	if err != nil {
		return err
	}
	rValueShares, err := splitField(rValue)
	if err != nil {
		return err
	}

	requestID := ids.NewRequestID()
	var req wire.BanRequest
	for i := 0; i < 3; i++ {
		sealedKey, err := wire.SealKeyShare(keyShares[i], c.peerPubKeys[i])
		if err != nil {
			return err
		}
		sealedValue, err := wire.SealFieldShare(valueShares[i], c.peerPubKeys[i])
		if err != nil {
			return err
		}
		sealedRKey, err := wire.SealFieldShare(rKeyShares[i], c.peerPubKeys[i])
		if err != nil {
			return err
		}
		sealedRValue, err := wire.SealFieldShare(rValueShares[i], c.peerPubKeys[i])
		if err != nil {
			return err
		}
		req.Requests[i] = wire.PeerBanRequest{
			RequestID: requestID.String(),
			Key:       sealedKey,
			Value:     sealedValue,
			RKey:      sealedRKey,
			RValue:    sealedRValue,
		}
	}

	var res wire.BanResponse
	if err := c.post(ctx, op, req, &res); err != nil {
		return err
	}

	for i, resp := range res.Responses {
		publicInputs := []fr.Element{
			resp.OldRoot.Element,
			resp.NewRoot.Element,
			resp.CommitmentKey.Element,
			resp.CommitmentValue.Element,
		}
		if err := snark.Verify(c.writeVK, resp.Proof, publicInputs); err != nil {
			return bserror.Wrap(bserror.ProofError, err, fmt.Sprintf("verifying %s proof from peer%d", op, i))
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, op string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return bserror.Wrap(bserror.InternalError, err, "marshaling request")
	}

	url := fmt.Sprintf("%s/api/v1/%s/%s", c.serverURL, op, c.rpID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return bserror.Wrap(bserror.InternalError, err, "building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return bserror.Wrap(bserror.UpstreamError, err, "sending request to coordinator")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return bserror.Wrap(bserror.UpstreamError, err, "reading coordinator response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return bserror.Newf(bserror.UpstreamError, "coordinator returned %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return bserror.Wrap(bserror.UpstreamError, err, "decoding coordinator response")
	}
	return nil
}

func valueOne() fr.Element {
	var one fr.Element
	one.SetOne()
	return one
}

// reconstructBit checks that a reconstructed field sum is 0 or 1, per
// spec.md section 3's reconstruction invariant.
func reconstructBit(sum fr.Element) (Value, error) {
	var zero, one fr.Element
	one.SetOne()
	switch {
	case sum.Equal(&zero):
		return NotBanned, nil
	case sum.Equal(&one):
		return Banned, nil
	default:
		return 0, bserror.New(bserror.ProtocolError, "reconstructed value is not in {0, 1}")
	}
}

// splitKey splits key into a (2-of-3) replicated additive sharing over the
// 32-bit ring: x0 + x1 + x2 = key (mod 2^32), and peer i receives the pair
// (x_i, x_{i+1 mod 3}), per spec.md section 4.1 step 1.
func splitKey(key uint32) [3]wire.KeyShare {
	var x [3]uint32
	x[0] = randomUint32()
	x[1] = randomUint32()
	x[2] = key - x[0] - x[1]

	var shares [3]wire.KeyShare
	for i := 0; i < 3; i++ {
		shares[i] = wire.KeyShare{Lo: x[i], Hi: x[(i+1)%3]}
	}
	return shares
}

func randomUint32() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(errors.Wrap(err, "reading randomness"))
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}

// splitField splits v into a (2-of-3) replicated additive sharing over the
// scalar field: y0 + y1 + y2 = v, peer i receives (y_i, y_{i+1 mod 3}).
func splitField(v fr.Element) ([3]wire.FieldShare, error) {
	var y [3]fr.Element
	var err error
	y[0], err = randomFieldElement()
	if err != nil {
		return [3]wire.FieldShare{}, err
	}
	y[1], err = randomFieldElement()
	if err != nil {
		return [3]wire.FieldShare{}, err
	}
	y[2].Sub(&v, &y[0])
	y[2].Sub(&y[2], &y[1])

	var shares [3]wire.FieldShare
	for i := 0; i < 3; i++ {
		shares[i] = wire.FieldShare{Lo: y[i], Hi: y[(i+1)%3]}
	}
	return shares, nil
}

func randomFieldElement() (fr.Element, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return e, bserror.Wrap(bserror.InternalError, err, "generating random field element")
	}
	return e, nil
}
