package uploader

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// TestPool_DropsWhenFull keeps Submit non-blocking once the queue is full.
func TestPool_DropsWhenFull(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		p := NewPool(1, 2, time.Second)
		require.NoError(t, p.Start(ctx))

		release := make(chan struct{})

		var ran atomic.Int32

		blocking := func(context.Context) error {
			<-release
			ran.Add(1)

			return nil
		}

		// One job occupies the worker, two fill the queue.
		require.True(t, p.Submit(ctx, "a", blocking))
		synctest.Wait()
		require.True(t, p.Submit(ctx, "b", blocking))
		require.True(t, p.Submit(ctx, "c", blocking))
		require.False(t, p.Submit(ctx, "d", blocking))

		close(release)
		p.Stop()

		require.EqualValues(t, 3, ran.Load())
		require.False(t, p.Submit(ctx, "late", blocking))
	})
}

// TestPool_TimeoutAndPanic bounds each job and survives panics.
func TestPool_TimeoutAndPanic(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewPool(2, 4, 5*time.Second)
		require.NoError(t, p.Start(ctx))

		// Canceling the parent does not cut the job short.
		cancel()

		start := time.Now()
		finished := make(chan error, 1)

		require.True(t, p.Submit(ctx, "slow", func(ctx context.Context) error {
			<-ctx.Done()
			finished <- ctx.Err()

			return ctx.Err()
		}))

		require.True(t, p.Submit(ctx, "panics", func(context.Context) error {
			panic("boom")
		}))

		err := <-finished
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, 5*time.Second, time.Since(start))

		var ok atomic.Bool

		require.True(t, p.Submit(ctx, "after", func(context.Context) error {
			ok.Store(true)
			return nil
		}))

		p.Stop()
		require.True(t, ok.Load())
	})
}

// TestPool_StartTwice rejects a second start and a start after stop.
func TestPool_StartTwice(t *testing.T) {
	t.Parallel()

	p := NewPool(0, 0, 0)
	require.NoError(t, p.Start(context.Background()))
	require.ErrorIs(t, p.Start(context.Background()), errPoolStarted)

	p.Stop()
	p.Stop()

	require.ErrorIs(t, p.Start(context.Background()), errPoolStopped)
}

// TestSafeRun converts panics into errors.
func TestSafeRun(t *testing.T) {
	t.Parallel()

	errJob := errors.New("job failed")

	require.ErrorIs(t, safeRun(context.Background(), func(context.Context) error { return errJob }), errJob)
	require.ErrorContains(t, safeRun(context.Background(), func(context.Context) error { panic("boom") }), "boom")
}
