package transport

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
)

// maxFrameSize bounds a single frame to guard against a corrupt or hostile
// length prefix forcing an unbounded allocation.
const maxFrameSize = 64 << 20

// TCP is a Transport backed by a raw TCP connection, 4-byte big-endian
// length-delimited framing per message. NewTCP leaves socket options alone:
// DialTCP and DialTCPSession set TCP_NODELAY on the sockets they dial, and
// peer.TCPListener sets it on the sockets it accepts.
type TCP struct {
	conn net.Conn

	sendCh chan []byte
	recvCh chan recvResult

	sent     atomic.Uint64
	received atomic.Uint64

	closeOnce chan struct{}
	pumpDone  chan struct{}
}

// NewTCP wraps an already-connected socket and starts its send and receive
// pumps.
func NewTCP(conn net.Conn) *TCP {
	t := &TCP{
		conn:      conn,
		sendCh:    make(chan []byte, 32),
		recvCh:    make(chan recvResult, 32),
		closeOnce: make(chan struct{}),
		pumpDone:  make(chan struct{}),
	}
	go t.sendPump()
	go t.recvPump()
	return t
}

func (t *TCP) sendPump() {
	var header [4]byte
	for data := range t.sendCh {
		binary.BigEndian.PutUint32(header[:], uint32(len(data)))
		if _, err := t.conn.Write(header[:]); err != nil {
			return
		}
		if _, err := t.conn.Write(data); err != nil {
			return
		}
	}
}

func (t *TCP) recvPump() {
	defer close(t.pumpDone)
	defer close(t.recvCh)
	var header [4]byte
	for {
		if _, err := io.ReadFull(t.conn, header[:]); err != nil {
			t.recvCh <- recvResult{err: errors.Wrap(err, "tcp frame header read")}
			return
		}
		size := binary.BigEndian.Uint32(header[:])
		if size > maxFrameSize {
			t.recvCh <- recvResult{err: errors.Errorf("tcp frame too large: %d bytes", size)}
			return
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(t.conn, data); err != nil {
			t.recvCh <- recvResult{err: errors.Wrap(err, "tcp frame body read")}
			return
		}
		t.recvCh <- recvResult{data: data}
	}
}

func (t *TCP) Send(ctx context.Context, message []byte) error {
	t.sent.Add(uint64(len(message)))
	select {
	case t.sendCh <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.closeOnce:
		return errors.New("transport closed")
	}
}

func (t *TCP) Recv(ctx context.Context) ([]byte, error) {
	select {
	case res, ok := <-t.recvCh:
		if !ok {
			return nil, io.EOF
		}
		if res.err != nil {
			return nil, res.err
		}
		t.received.Add(uint64(len(res.data)))
		return res.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *TCP) Stats() ConnectionStats {
	return ConnectionStats{BytesSent: t.sent.Load(), BytesReceived: t.received.Load()}
}

func (t *TCP) Close() error {
	select {
	case <-t.closeOnce:
	default:
		close(t.closeOnce)
		close(t.sendCh)
	}
	return t.conn.Close()
}

// DialTCP connects to addr and sets TCP_NODELAY, since MPC rounds are
// latency-sensitive request/response exchanges rather than bulk transfers.
func DialTCP(ctx context.Context, addr string) (*TCP, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "dialing tcp transport")
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return NewTCP(conn), nil
}

// DialTCPSession connects to addr, writes sessionID as a 16-byte header
// ahead of the framed stream, then wraps the connection as a Transport.
// The header must land before the send pump starts, so it is written
// directly on the raw socket before NewTCP takes ownership of it.
func DialTCPSession(ctx context.Context, addr string, sessionID [16]byte) (*TCP, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "dialing tcp transport")
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	if _, err := conn.Write(sessionID[:]); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "writing session id header")
	}
	return NewTCP(conn), nil
}
