package peer

import (
	"io"
	"net"

	"github.com/google/uuid"

	"github.com/TaceoLabs/bitservice/internal/logging"
	"github.com/TaceoLabs/bitservice/internal/session"
	"github.com/TaceoLabs/bitservice/internal/transport"
)

// TCPListener accepts incoming MPC connections from this peer's predecessor
// over raw TCP, reading a 16-byte session id off the front of each new
// connection before handing the rest of the socket to the session registry
// as a framed Transport, per the TCP half of the connection upgrade
// protocol (the WebSocket half lives in API.handleWebSocket).
type TCPListener struct {
	sessions *session.Registry
	log      logging.Logger
}

// NewTCPListener builds a listener that rendezvouses accepted connections
// into sessions.
func NewTCPListener(sessions *session.Registry, log logging.Logger) *TCPListener {
	return &TCPListener{sessions: sessions, log: log}
}

// Serve accepts connections on ln until it is closed.
func (l *TCPListener) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go l.handle(conn)
	}
}

func (l *TCPListener) handle(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	var idBytes [16]byte
	if _, err := io.ReadFull(conn, idBytes[:]); err != nil {
		l.log.Warnf("tcp listener: reading session id: %v", err)
		conn.Close()
		return
	}
	sessionID, err := uuid.FromBytes(idBytes[:])
	if err != nil {
		l.log.Warnf("tcp listener: parsing session id: %v", err)
		conn.Close()
		return
	}

	t := transport.NewTCP(conn)
	if err := l.sessions.Put(sessionID, t); err != nil {
		l.log.Warnf("tcp listener: session %s: %v", sessionID, err)
		t.Close()
	}
}
