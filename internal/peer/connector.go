package peer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/TaceoLabs/bitservice/internal/bserror"
	"github.com/TaceoLabs/bitservice/internal/ids"
	"github.com/TaceoLabs/bitservice/internal/transport"
)

// WSConnector dials the next peer's /api/v1/ws endpoint, one connection per
// session id, per the original_source's ws_mpc_net::ws_connect helper
// invoked twice from init_ws_mpc_nets.
type WSConnector struct {
	nextPeerURL string
}

// NewWSConnector targets a peer reachable at baseURL (e.g.
// "ws://peer-1:4322").
func NewWSConnector(baseURL string) *WSConnector {
	return &WSConnector{nextPeerURL: baseURL}
}

func (c *WSConnector) Connect(ctx context.Context, net0, net1 ids.SessionID) (transport.Transport, transport.Transport, error) {
	t0, err := c.dial(ctx, net0)
	if err != nil {
		return nil, nil, err
	}
	t1, err := c.dial(ctx, net1)
	if err != nil {
		t0.Close()
		return nil, nil, err
	}
	return t0, t1, nil
}

func (c *WSConnector) dial(ctx context.Context, sessionID ids.SessionID) (*transport.WebSocket, error) {
	u, err := url.Parse(c.nextPeerURL)
	if err != nil {
		return nil, bserror.Wrap(bserror.InternalError, err, "parsing next peer url")
	}
	u.Path = "/api/v1/ws"

	header := http.Header{}
	header.Set("session_id", sessionID.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, bserror.Wrap(bserror.UpstreamError, err, fmt.Sprintf("dialing next peer at %s", u.String()))
	}
	return transport.NewWebSocket(conn), nil
}

// TCPConnector dials the next peer's raw TCP MPC listener, one connection
// per session id, writing the 16-byte session id ahead of the framed
// stream so the listener can rendezvous it (see TCPListener.handle).
type TCPConnector struct {
	nextPeerAddr string
}

// NewTCPConnector targets a peer reachable at addr (host:port).
func NewTCPConnector(addr string) *TCPConnector {
	return &TCPConnector{nextPeerAddr: addr}
}

func (c *TCPConnector) Connect(ctx context.Context, net0, net1 ids.SessionID) (transport.Transport, transport.Transport, error) {
	t0, err := c.dial(ctx, net0)
	if err != nil {
		return nil, nil, err
	}
	t1, err := c.dial(ctx, net1)
	if err != nil {
		t0.Close()
		return nil, nil, err
	}
	return t0, t1, nil
}

func (c *TCPConnector) dial(ctx context.Context, sessionID ids.SessionID) (*transport.TCP, error) {
	t, err := transport.DialTCPSession(ctx, c.nextPeerAddr, sessionID)
	if err != nil {
		return nil, bserror.Wrap(bserror.UpstreamError, err, fmt.Sprintf("dialing next peer at %s", c.nextPeerAddr))
	}
	return t, nil
}
