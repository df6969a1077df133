// Package ids defines the identifier types shared across bitservice:
// relying-party ids, request ids and the session ids derived from them.
package ids

import (
	"github.com/google/uuid"
)

// RelyingPartyID identifies a tenant owning a distinct banlist.
type RelyingPartyID = uuid.UUID

// RequestID identifies one inbound client operation, minted by the
// coordinator and threaded unchanged through the peer fan-out.
type RequestID = uuid.UUID

// SessionID identifies the pair of transport channels used by one MPC
// round between two peers.
type SessionID = uuid.UUID

// sessionNamespace anchors the uuid5 derivation so the three peers agree on
// the same SessionID for a RequestID without any further coordination. Its
// value is arbitrary but must never change, or peers built from different
// versions would fail to rendezvous.
var sessionNamespace = uuid.MustParse("9b5b1f2e-6f3b-4f2a-8f1a-9a8f6a0e2c41")

// net0 / net1 label the two parallel transport pairs a read or write round
// may use, per spec.md section 4.3 step 2.
const (
	net0Label = "net0"
	net1Label = "net1"
)

// DeriveSessionIDs returns the deterministic pair of session ids for a
// request id. Every peer computes the same two ids given the same request
// id, so forward-connector and rendezvous-registry ends of the MPC network
// agree without an extra coordination round.
func DeriveSessionIDs(requestID RequestID) (net0, net1 SessionID) {
	net0 = uuid.NewSHA1(sessionNamespace, append(requestID[:], net0Label...))
	net1 = uuid.NewSHA1(sessionNamespace, append(requestID[:], net1Label...))
	return
}

// NewRequestID mints a fresh random request id; the client uses it to tag
// each operation it submits.
func NewRequestID() RequestID {
	return uuid.New()
}

// ParseRelyingPartyID parses a relying-party id from its string form, as it
// appears in the {rp_id} path segment.
func ParseRelyingPartyID(s string) (RelyingPartyID, error) {
	return uuid.Parse(s)
}

// ParseRequestID parses a request id from its string form, as it appears in
// the {request_id} path segment on the peer API.
func ParseRequestID(s string) (RequestID, error) {
	return uuid.Parse(s)
}
