package uploader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/climate-alarm/internal/logger"
)

// Job is one unit of upload work.
type Job func(ctx context.Context) error

// task is a queued job with its name for logging.
type task struct {
	name string
	job  Job
}

// Pool runs jobs on a fixed number of workers.
type Pool struct {
	workers int
	timeout time.Duration
	queue   chan task

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

var (
	errPoolStarted = errors.New("pool already started")
	errPoolStopped = errors.New("pool stopped")
)

// NewPool creates a pool. Non-positive values are raised to one worker and a
// queue of one.
func NewPool(workers, queueSize int, timeout time.Duration) *Pool {
	return &Pool{
		workers: max(workers, 1),
		timeout: timeout,
		queue:   make(chan task, max(queueSize, 1)),
	}
}

// Start launches the workers. Jobs get a context that keeps ctx values but is
// not canceled with it, so in-flight uploads finish after shutdown starts.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.stopped:
		return errPoolStopped
	case p.started:
		return errPoolStarted
	}

	p.started = true
	base := context.WithoutCancel(ctx)

	p.wg.Add(p.workers)

	for range p.workers {
		go func() {
			defer p.wg.Done()

			for t := range p.queue {
				p.run(base, t)
			}
		}()
	}

	return nil
}

// Submit queues job and returns immediately. It reports false when the job
// was dropped because the queue is full or the pool is stopped.
func (p *Pool) Submit(ctx context.Context, name string, job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return false
	}

	select {
	case p.queue <- task{name: name, job: job}:
		return true
	default:
		logger.WarnKV(ctx, "Upload queue is full, dropping job", "job", name)
		return false
	}
}

// Stop rejects new jobs, drains the queue and waits for the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}

	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, t task) {
	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := safeRun(ctx, t.job); err != nil {
		logger.ErrorKV(ctx, "Upload job failed", "job", t.name, "error", err)
		return
	}

	logger.DebugKV(ctx, "Upload job done", "job", t.name)
}

// safeRun turns a panic in job into an error.
func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return job(ctx)
}
