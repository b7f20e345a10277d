package uploader

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/climate-alarm/internal/domain/climate"
	"github.com/oshokin/climate-alarm/internal/logger"
	"github.com/oshokin/climate-alarm/internal/repository/reading"
)

// Transport delivers a snapshot to the remote service.
type Transport interface {
	Publish(ctx context.Context, snapshot *climate.Snapshot) error
	Close() error
}

// Uploader schedules uploads of the latest snapshot.
type Uploader struct {
	pool      *Pool
	repo      reading.Repository
	transport Transport
}

const jobName = "upload"

// New creates an uploader over a started pool.
func New(pool *Pool, repo reading.Repository, transport Transport) *Uploader {
	return &Uploader{
		pool:      pool,
		repo:      repo,
		transport: transport,
	}
}

// Trigger submits one upload. The snapshot is loaded when the job runs, so a
// delayed job sends whatever is newest at that moment.
func (u *Uploader) Trigger(ctx context.Context) {
	u.pool.Submit(ctx, jobName, u.upload)
}

// Close drains pending uploads and closes the transport.
func (u *Uploader) Close() error {
	u.pool.Stop()

	if err := u.transport.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}

	return nil
}

func (u *Uploader) upload(ctx context.Context) error {
	snapshot, err := u.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, reading.ErrNotFound) {
			logger.DebugKV(ctx, "Nothing to upload yet")
			return nil
		}

		return fmt.Errorf("load snapshot: %w", err)
	}

	if err = u.transport.Publish(ctx, snapshot); err != nil {
		return fmt.Errorf("publish snapshot %d: %w", snapshot.Sequence, err)
	}

	return nil
}
