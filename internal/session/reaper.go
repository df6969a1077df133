package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TaceoLabs/bitservice/internal/logging"
)

// pendingWaiter is a session id paired with the time its waiter was
// registered, tracked only so the reaper can evict entries nobody ever
// claimed (e.g. a peer that crashed mid-round before dialing back).
type pendingWaiter struct {
	id           uuid.UUID
	registeredAt time.Time
}

// Reaper periodically forgets waiters older than maxAge. This resolves the
// open question in spec.md section 9 about unclaimed waiter cleanup: without
// it, a crashed counterpart leaves a goroutine blocked on Get forever and a
// slot pinned in the registry.
type Reaper struct {
	registry *Registry
	maxAge   time.Duration
	interval time.Duration
	log      logging.Logger

	mu      sync.Mutex
	pending []pendingWaiter
}

// NewReaper constructs a Reaper that evicts waiters older than maxAge,
// checking every interval.
func NewReaper(registry *Registry, maxAge, interval time.Duration, log logging.Logger) *Reaper {
	return &Reaper{registry: registry, maxAge: maxAge, interval: interval, log: log}
}

// Track records that a waiter for id was just registered. Callers should
// invoke this immediately before or after Registry.Get blocks.
func (r *Reaper) Track(id uuid.UUID) {
	r.mu.Lock()
	r.pending = append(r.pending, pendingWaiter{id: id, registeredAt: now()})
	r.mu.Unlock()
}

// Run blocks, sweeping stale waiters until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reaper) sweep() {
	r.mu.Lock()
	cutoff := now().Add(-r.maxAge)
	kept := r.pending[:0]
	var stale []uuid.UUID
	for _, p := range r.pending {
		if p.registeredAt.Before(cutoff) {
			stale = append(stale, p.id)
		} else {
			kept = append(kept, p)
		}
	}
	r.pending = kept
	r.mu.Unlock()

	for _, id := range stale {
		r.registry.Forget(id)
		r.log.Warnf("reaped stale session waiter %s", id)
	}
}

func now() time.Time { return time.Now() }
