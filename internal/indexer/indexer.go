// Package indexer is a deliberately peripheral stand-in for the
// Poseidon-based commitment registry indexer spec.md section 1 calls out as
// "independent and peripheral." It shows the collaborator's shape — record
// each write's commitment at a block height — without implementing Poseidon
// hashing or chain-watching, both out of core scope.
package indexer

import (
	"context"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Indexer records a write's key and value commitments at the block height
// it was observed.
type Indexer interface {
	Index(ctx context.Context, commitmentKey, commitmentValue fr.Element, blockHeight uint64) error
}

// Entry is one recorded commitment pair.
type Entry struct {
	CommitmentKey   fr.Element
	CommitmentValue fr.Element
	BlockHeight     uint64
}

// MemoryIndexer is an in-memory Indexer, enough to exercise the interface
// in tests and local development.
type MemoryIndexer struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryIndexer returns an empty MemoryIndexer.
func NewMemoryIndexer() *MemoryIndexer {
	return &MemoryIndexer{}
}

func (m *MemoryIndexer) Index(ctx context.Context, commitmentKey, commitmentValue fr.Element, blockHeight uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{CommitmentKey: commitmentKey, CommitmentValue: commitmentValue, BlockHeight: blockHeight})
	return nil
}

// Entries returns a snapshot of everything recorded so far.
func (m *MemoryIndexer) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
