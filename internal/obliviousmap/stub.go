package obliviousmap

import (
	"github.com/pkg/errors"

	"github.com/TaceoLabs/bitservice/internal/transport"
)

// Unimplemented is a placeholder Map: every data operation fails
// immediately, while Snapshot and Restore succeed. The peer binary
// (cmd/bitservice-peer) does not use it; it constructs a Reference map.
type Unimplemented struct{}

var errUnimplemented = errors.New("oblivious map: no implementation configured")

func (Unimplemented) Read(ReadRequest, transport.Transport, transport.Transport) (ReadResult, error) {
	return ReadResult{}, errUnimplemented
}

func (Unimplemented) InsertOrUpdate(WriteRequest, transport.Transport, transport.Transport) (WriteResult, error) {
	return WriteResult{}, errUnimplemented
}

func (Unimplemented) Update(WriteRequest, transport.Transport, transport.Transport) (WriteResult, error) {
	return WriteResult{}, errUnimplemented
}

func (Unimplemented) Prune(transport.Transport) error { return errUnimplemented }

func (Unimplemented) Snapshot() ([]byte, error) { return nil, nil }

func (Unimplemented) Restore([]byte) error { return nil }
