package transport

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// recvResult carries either a received frame or the error that ended the
// pump, mirroring the original_source's eyre::Result<Vec<u8>> channel item.
type recvResult struct {
	data []byte
	err  error
}

// WebSocket is a Transport backed by a single gorilla/websocket connection,
// one binary message per frame. Two goroutines bridge the async connection
// to bounded channels so blocking-worker code can Send/Recv synchronously,
// mirroring the per-direction pump pair in the original_source's
// bitservice-peer/src/ws_mpc_net.rs.
type WebSocket struct {
	conn *websocket.Conn

	sendCh chan []byte
	recvCh chan recvResult

	sent     atomic.Uint64
	received atomic.Uint64

	closeOnce chan struct{}
	pumpDone  chan struct{}
}

// NewWebSocket wraps an already-upgraded connection and starts its send and
// receive pumps. The caller must not use conn directly afterward.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	w := &WebSocket{
		conn:      conn,
		sendCh:    make(chan []byte, 32),
		recvCh:    make(chan recvResult, 32),
		closeOnce: make(chan struct{}),
		pumpDone:  make(chan struct{}),
	}
	go w.sendPump()
	go w.recvPump()
	return w
}

func (w *WebSocket) sendPump() {
	for data := range w.sendCh {
		if err := w.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return
		}
	}
}

func (w *WebSocket) recvPump() {
	defer close(w.pumpDone)
	defer close(w.recvCh)
	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			w.recvCh <- recvResult{err: errors.Wrap(err, "websocket read")}
			return
		}
		if kind != websocket.BinaryMessage {
			w.recvCh <- recvResult{err: errors.Errorf("unexpected websocket message kind %d", kind)}
			return
		}
		w.recvCh <- recvResult{data: data}
	}
}

func (w *WebSocket) Send(ctx context.Context, message []byte) error {
	w.sent.Add(uint64(len(message)))
	select {
	case w.sendCh <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.closeOnce:
		return errors.New("transport closed")
	}
}

func (w *WebSocket) Recv(ctx context.Context) ([]byte, error) {
	select {
	case res, ok := <-w.recvCh:
		if !ok {
			return nil, io.EOF
		}
		if res.err != nil {
			return nil, res.err
		}
		w.received.Add(uint64(len(res.data)))
		return res.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *WebSocket) Stats() ConnectionStats {
	return ConnectionStats{BytesSent: w.sent.Load(), BytesReceived: w.received.Load()}
}

func (w *WebSocket) Close() error {
	select {
	case <-w.closeOnce:
	default:
		close(w.closeOnce)
		close(w.sendCh)
	}
	return w.conn.Close()
}
