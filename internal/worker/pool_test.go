package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsEveryJob(t *testing.T) {
	pool := NewWorkerPool(3)
	ctx := context.Background()
	pool.Start(ctx)

	var ran int64
	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(ctx, func(context.Context) error {
			atomic.AddInt64(&ran, 1)
			return nil
		}))
	}
	pool.Stop()
	pool.Stop()

	require.EqualValues(t, 50, atomic.LoadInt64(&ran))
}

func TestWorkerPoolSubmitHonoursContext(t *testing.T) {
	pool := NewWorkerPool(1)
	block := make(chan struct{})
	pool.Start(context.Background())
	defer func() {
		close(block)
		pool.Stop()
	}()

	wait := func(context.Context) error { <-block; return nil }
	// One running plus a full buffer of two.
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(context.Background(), wait))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, pool.Submit(ctx, wait), context.DeadlineExceeded)
}

func TestWorkerPoolSubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	cancel()
	pool.Stop()

	err := pool.Submit(context.Background(), func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrPoolStopped)
}
