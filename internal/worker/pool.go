// Package worker provides the blocking dispatch boundary the peer
// orchestrator uses to run a CPU-bound oblivious-map round without blocking
// the HTTP goroutine pool it shares with request I/O. It is the Go analogue
// of tokio::task::block_in_place: a fixed pool of goroutines dedicated to
// blocking work, so a burst of MPC rounds cannot starve the listener. The
// dispatch idiom (Spawn a closure, wait on its result) follows
// pkg/mcast/core/peer.go's invoker.Spawn usage, generalized into a bounded
// pool since the teacher's own Invoker type was not available to copy.
package worker

import (
	"context"

	"github.com/pkg/errors"
)

// job pairs a blocking closure with the channel its result is delivered on.
type job struct {
	fn     func() (any, error)
	result chan<- jobResult
}

type jobResult struct {
	value any
	err   error
}

// Pool is a fixed-size pool of goroutines dedicated to blocking work.
type Pool struct {
	jobs chan job
	done chan struct{}
}

// NewPool starts size worker goroutines. size should match the number of
// oblivious-map rounds the peer wants to run concurrently without queuing.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{
		jobs: make(chan job),
		done: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	for {
		select {
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			value, err := j.fn()
			j.result <- jobResult{value: value, err: err}
		case <-p.done:
			return
		}
	}
}

// Blocking runs fn on a pool worker and waits for it to finish, or for ctx
// to be cancelled. fn must not itself touch the async I/O path: it is the
// exact boundary spec.md section 5 forbids calling Send/Recv across.
func Blocking[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	resultCh := make(chan jobResult, 1)
	wrapped := func() (any, error) {
		v, err := fn()
		return v, err
	}

	select {
	case p.jobs <- job{fn: wrapped, result: resultCh}:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-p.done:
		return zero, errors.New("worker pool closed")
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			return zero, res.err
		}
		v, ok := res.value.(T)
		if !ok && res.value != nil {
			return zero, errors.New("worker: unexpected result type")
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops accepting new work. In-flight jobs still complete.
func (p *Pool) Close() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}
