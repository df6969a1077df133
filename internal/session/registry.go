// Package session implements the rendezvous registry a peer uses to hand a
// freshly-accepted transport connection to the request handler that is
// waiting for it, or vice versa, keyed by session id. It generalizes the
// observer/notify-channel pattern in pkg/mcast/core/peer.go (one-shot
// channel per pending request) to a variant slot per spec.md section 4.4:
// at most one of {waiter, ready} exists per session id, never both.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/TaceoLabs/bitservice/internal/bserror"
	"github.com/TaceoLabs/bitservice/internal/transport"
)

// slotKind distinguishes which half of the rendezvous a slot currently
// holds.
type slotKind int

const (
	slotWaiter slotKind = iota
	slotReady
	// slotAbandoned marks a session whose Get call gave up (context
	// cancellation or reaper sweep) before a transport arrived. It is kept
	// instead of deleted so a transport that turns up late is closed
	// instead of stranded in the registry as an unclaimed slotReady.
	slotAbandoned
)

// slot is the variant held per session id: either a Transport that arrived
// first and is waiting to be claimed, or a one-shot channel a Get call is
// blocked on, waiting for the Transport to arrive.
type slot struct {
	kind     slotKind
	ready    transport.Transport
	waiterCh chan transport.Transport
}

// Registry is a single-mutex-guarded map of pending rendezvous slots. It is
// safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slot
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[uuid.UUID]*slot)}
}

// Put registers a freshly-accepted transport for id. If a Get call is
// already waiting on id, it is woken immediately and Put returns nil with
// the slot consumed. If id was abandoned (its Get gave up already), t is
// closed instead of kept. If a transport already occupies id, Put returns a
// SessionConflict error per spec.md section 4.4 ("reject
// double-get/double-insert").
func (r *Registry) Put(id uuid.UUID, t transport.Transport) error {
	r.mu.Lock()
	existing, ok := r.slots[id]
	if !ok {
		r.slots[id] = &slot{kind: slotReady, ready: t}
		r.mu.Unlock()
		return nil
	}
	switch existing.kind {
	case slotWaiter:
		delete(r.slots, id)
		r.mu.Unlock()
		existing.waiterCh <- t
		return nil
	case slotAbandoned:
		delete(r.slots, id)
		r.mu.Unlock()
		t.Close()
		return nil
	default:
		r.mu.Unlock()
		return bserror.New(bserror.SessionConflict, "session already has a transport").WithField(id.String())
	}
}

// Get blocks until a transport arrives for id, returning immediately if one
// is already registered. If ctx is done first, Get abandons the wait and
// returns ctx.Err(); a transport that is handed to id afterwards is closed
// rather than leaked. If a Get call is already pending on id, the second
// call returns a SessionConflict error.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (transport.Transport, error) {
	r.mu.Lock()
	if existing, ok := r.slots[id]; ok {
		switch existing.kind {
		case slotReady:
			delete(r.slots, id)
			r.mu.Unlock()
			return existing.ready, nil
		case slotWaiter:
			r.mu.Unlock()
			return nil, bserror.New(bserror.SessionConflict, "session already has a waiter").WithField(id.String())
		default: // slotAbandoned: a stale tombstone from an earlier timed-out Get.
			delete(r.slots, id)
		}
	}
	waiterCh := make(chan transport.Transport, 1)
	r.slots[id] = &slot{kind: slotWaiter, waiterCh: waiterCh}
	r.mu.Unlock()

	select {
	case t := <-waiterCh:
		if t == nil {
			return nil, bserror.New(bserror.TimeoutError, "session waiter was reaped").WithField(id.String())
		}
		return t, nil
	case <-ctx.Done():
		r.mu.Lock()
		if s, ok := r.slots[id]; ok && s.kind == slotWaiter && s.waiterCh == waiterCh {
			r.slots[id] = &slot{kind: slotAbandoned}
		}
		r.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Forget abandons any waiter registered for id, waking the blocked Get call
// with an error instead of leaving it pinned forever. It leaves a tombstone
// behind so a transport arriving afterwards is closed rather than stashed as
// an unclaimed ready slot. A no-op if id has no waiter.
func (r *Registry) Forget(id uuid.UUID) {
	r.mu.Lock()
	existing, ok := r.slots[id]
	if !ok || existing.kind != slotWaiter {
		r.mu.Unlock()
		return
	}
	r.slots[id] = &slot{kind: slotAbandoned}
	r.mu.Unlock()
	existing.waiterCh <- nil
}

// Len reports the number of pending slots, for tests and metrics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
