package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockingReturnsResult(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	got, err := Blocking(context.Background(), p, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestBlockingPropagatesError(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	boom := errors.New("boom")
	_, err := Blocking(context.Background(), p, func() (int, error) {
		return 0, boom
	})
	require.Error(t, err)
	assert.Equal(t, boom, err)
}

func TestBlockingRespectsContextCancellation(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	block := make(chan struct{})
	defer close(block)

	// Occupy the pool's only worker so the next Blocking call has to wait.
	started := make(chan struct{})
	go func() {
		_, _ = Blocking(context.Background(), p, func() (int, error) {
			close(started)
			<-block
			return 0, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Blocking(ctx, p, func() (int, error) { return 1, nil })
	require.Error(t, err)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestPoolRunsJobsConcurrently(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var running, maxRunning int32
	observe := func() (int, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return 0, nil
	}

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			_, _ = Blocking(context.Background(), p, observe)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	assert.Greater(t, atomic.LoadInt32(&maxRunning), int32(1))
}
