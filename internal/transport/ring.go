package transport

import "context"

// Ring combines the two halves of one MPC round's channel to a ring
// neighbor: the connection this peer dialed out to its successor (out) and
// the connection its predecessor dialed in to it (in), fused into a single
// duplex Transport. This mirrors the original_source's WebSocketNetwork /
// TcpNetwork constructors, which take a "next" stream to send on and a
// "prev" stream to receive from and present them as one Network.
type Ring struct {
	out Transport
	in  Transport
}

// NewRing fuses an outgoing (dialed) and incoming (accepted) transport into
// one logical ring channel.
func NewRing(out, in Transport) *Ring {
	return &Ring{out: out, in: in}
}

func (r *Ring) Send(ctx context.Context, message []byte) error {
	return r.out.Send(ctx, message)
}

func (r *Ring) Recv(ctx context.Context) ([]byte, error) {
	return r.in.Recv(ctx)
}

func (r *Ring) Stats() ConnectionStats {
	out := r.out.Stats()
	in := r.in.Stats()
	return ConnectionStats{BytesSent: out.BytesSent, BytesReceived: in.BytesReceived}
}

func (r *Ring) Close() error {
	err1 := r.out.Close()
	err2 := r.in.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
