package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPSendRecvRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	client := NewTCP(clientConn)
	server := NewTCP(serverConn)
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msg := []byte("round message")
	require.NoError(t, client.Send(ctx, msg))

	got, err := server.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestTCPByteCountersMonotonic(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	client := NewTCP(clientConn)
	server := NewTCP(serverConn)
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	before := client.Stats()
	assert.Equal(t, uint64(0), before.BytesSent)

	require.NoError(t, client.Send(ctx, []byte("abcde")))
	_, err := server.Recv(ctx)
	require.NoError(t, err)

	afterSend := client.Stats()
	afterRecv := server.Stats()
	assert.Equal(t, uint64(5), afterSend.BytesSent)
	assert.Equal(t, uint64(5), afterRecv.BytesReceived)

	require.NoError(t, client.Send(ctx, []byte("fg")))
	_, err = server.Recv(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), client.Stats().BytesSent)
	assert.Equal(t, uint64(7), server.Stats().BytesReceived)
}

func TestTCPRecvAfterCloseReturnsEOF(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	client := NewTCP(clientConn)
	server := NewTCP(serverConn)
	defer server.Close()

	require.NoError(t, client.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := server.Recv(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)
}
