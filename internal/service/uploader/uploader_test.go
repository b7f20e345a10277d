package uploader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/climate-alarm/internal/domain/climate"
	"github.com/oshokin/climate-alarm/internal/repository/reading"
)

// fakeTransport records published sequences.
type fakeTransport struct {
	mu        sync.Mutex
	published []uint64
	err       error
	closed    bool
}

func (f *fakeTransport) Publish(_ context.Context, s *climate.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.published = append(f.published, s.Sequence)

	return f.err
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

// TestUploader_LoadsAtRunTime sends the newest snapshot, not the one current at Trigger.
func TestUploader_LoadsAtRunTime(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		repo := reading.NewMemoryRepository()
		transport := new(fakeTransport)

		// Not started yet, so the job stays queued.
		pool := NewPool(1, 4, time.Second)
		u := New(pool, repo, transport)

		require.NoError(t, repo.Save(ctx, &climate.Snapshot{Sequence: 1}))
		u.Trigger(ctx)
		require.NoError(t, repo.Save(ctx, &climate.Snapshot{Sequence: 2}))

		require.NoError(t, pool.Start(ctx))
		require.NoError(t, u.Close())

		require.Equal(t, []uint64{2}, transport.published)
		require.True(t, transport.closed)
	})
}

// TestUploader_NothingToSend skips the transport before the first reading.
func TestUploader_NothingToSend(t *testing.T) {
	t.Parallel()

	repo := reading.NewMemoryRepository()
	u := New(NewPool(1, 1, time.Second), repo, new(fakeTransport))

	require.NoError(t, u.upload(context.Background()))
}

// TestUploader_PublishError wraps transport failures with the sequence.
func TestUploader_PublishError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := reading.NewMemoryRepository()
	errDown := errors.New("broker down")

	require.NoError(t, repo.Save(ctx, &climate.Snapshot{Sequence: 7}))

	u := New(NewPool(1, 1, time.Second), repo, &fakeTransport{err: errDown})

	err := u.upload(ctx)
	require.ErrorIs(t, err, errDown)
	require.ErrorContains(t, err, "snapshot 7")
}
