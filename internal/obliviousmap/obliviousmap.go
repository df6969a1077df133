// Package obliviousmap declares the external collaborator interface for the
// replicated secret-shared banlist itself. The oblivious-map algorithm
// (read / insert-or-update / update / prune over rep3-shared state, plus
// SNARK emission) is explicitly out of scope for this repository: the peer
// orchestrator only needs the four synchronous operations below, mirroring
// the Storage/StateMachine split in pkg/mcast/types. Map is consumed as a
// black box; Unimplemented (in stub.go) lets the rest of the peer process
// link and serve without that collaborator present.
package obliviousmap

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/TaceoLabs/bitservice/internal/transport"
	"github.com/TaceoLabs/bitservice/internal/wire"
)

// ReadRequest is the peer-local decoding of a client's sealed read share.
type ReadRequest struct {
	Key wire.KeyShare
	R   wire.FieldShare
}

// ReadResult is the oblivious-map's answer to a read.
type ReadResult struct {
	ReadShare  fr.Element
	Proof      wire.Groth16Proof
	Root       fr.Element
	Commitment fr.Element
}

// WriteRequest is the peer-local decoding of a client's sealed ban/unban
// share. Value is the replicated share of the target banned/not-banned
// marker (1 for ban, 0 for unban).
type WriteRequest struct {
	Key    wire.KeyShare
	Value  wire.FieldShare
	RKey   wire.FieldShare
	RValue wire.FieldShare
}

// WriteResult is the oblivious-map's answer to an insert-or-update / update.
type WriteResult struct {
	Proof           wire.Groth16Proof
	OldRoot         fr.Element
	NewRoot         fr.Element
	CommitmentKey   fr.Element
	CommitmentValue fr.Element
}

// Map is the external-collaborator contract spec.md section 6 fixes: three
// MPC rounds driven over one or two transport pairs, plus an idempotent
// prune. Every method runs synchronously and is CPU-bound; callers MUST
// invoke it from a blocking worker (see internal/worker), never directly
// from a request-handling goroutine.
type Map interface {
	// Read performs an oblivious lookup of req.Key, returning this peer's
	// share of the result and a proof binding it to the published root and
	// commitment.
	Read(req ReadRequest, netA, netB transport.Transport) (ReadResult, error)

	// InsertOrUpdate writes req.Value at req.Key, creating the entry if it
	// did not already exist.
	InsertOrUpdate(req WriteRequest, netA, netB transport.Transport) (WriteResult, error)

	// Update writes req.Value at req.Key, which must already exist.
	Update(req WriteRequest, netA, netB transport.Transport) (WriteResult, error)

	// Prune performs peer-local maintenance (e.g. tree rebalancing) over one
	// MPC network round. It is invoked periodically by the coordinator's
	// write queue, never in the client-facing read/write path.
	Prune(net transport.Transport) error

	// Snapshot returns the canonical opaque byte encoding of the map's
	// current state, for persistence after a successful write.
	Snapshot() ([]byte, error)

	// Restore replaces the map's state with a previously persisted
	// snapshot, called once at peer startup.
	Restore(data []byte) error
}
