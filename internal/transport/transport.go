// Package transport implements the framed duplex channel two peers use for
// one MPC round, and the rendezvous-backed pump that bridges it to a
// synchronous Send/Recv contract. It generalizes the Transport interface in
// pkg/mcast/core/transport.go from broadcast/unicast group messaging to the
// spec's point-to-point framed byte streams, and mirrors the pump/channel
// structure of the original_source's bitservice-peer/src/ws_mpc_net.rs.
package transport

import "context"

// ConnectionStats reports the cumulative bytes a Transport has pushed and
// pulled, for observability parity with the original_source's
// ConnectionStats (per-party atomic byte counters).
type ConnectionStats struct {
	BytesSent     uint64
	BytesReceived uint64
}

// Transport is one MPC round's point-to-point duplex channel, bridging a
// synchronous Send/Recv contract used by blocking-worker code to an
// underlying async socket pump. All methods are safe for concurrent use by
// at most one reader and one writer at a time — the oblivious-map round
// driving it is itself single-threaded per direction.
type Transport interface {
	// Send blocks until message has been handed to the underlying pump, or
	// ctx is done, or the transport is closed.
	Send(ctx context.Context, message []byte) error

	// Recv blocks until a message arrives, ctx is done, or the transport is
	// closed. Once the connection is closed or fails, Recv returns the read
	// error that stopped the receive pump (wrapping io.EOF when the remote
	// end closed cleanly), and io.EOF on every call after that.
	Recv(ctx context.Context) ([]byte, error)

	// Stats returns a snapshot of cumulative byte counters.
	Stats() ConnectionStats

	// Close releases the underlying connection. Safe to call more than
	// once.
	Close() error
}
