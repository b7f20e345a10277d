package sampler

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/climate-alarm/internal/domain/climate"
	"github.com/oshokin/climate-alarm/internal/logger"
	"github.com/oshokin/climate-alarm/internal/repository/reading"
)

// Sensor produces one reading per call.
type Sensor interface {
	Read(ctx context.Context) (climate.Reading, error)
}

// Evaluator decides whether a reading should sound the buzzer.
type Evaluator interface {
	Evaluate(ctx context.Context, r climate.Reading) (climate.Quantity, bool)
}

// Uploader schedules an upload of the latest snapshot without waiting for it.
type Uploader interface {
	Trigger(ctx context.Context)
}

// Observer is told the outcome of every sensor read.
type Observer interface {
	Observe(ctx context.Context, err error)
}

// Options holds the collaborators of a Sampler.
type Options struct {
	Sensor     Sensor
	Evaluator  Evaluator
	Uploader   Uploader
	Repository reading.Repository
	// Observer is optional.
	Observer Observer
	// Interval is the pause after every cycle.
	Interval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Sampler reads the sensor at a fixed pace and fans the result out.
type Sampler struct {
	sensor    Sensor
	evaluator Evaluator
	uploader  Uploader
	repo      reading.Repository
	observer  Observer
	interval  time.Duration
	now       func() time.Time

	sequence uint64
}

var (
	errSensorRequired     = errors.New("sensor must be provided")
	errEvaluatorRequired  = errors.New("evaluator must be provided")
	errRepositoryRequired = errors.New("repository must be provided")
	errIntervalRequired   = errors.New("interval must be positive")
)

// New validates opts and builds a Sampler.
func New(opts *Options) (*Sampler, error) {
	switch {
	case opts == nil || opts.Sensor == nil:
		return nil, errSensorRequired
	case opts.Evaluator == nil:
		return nil, errEvaluatorRequired
	case opts.Repository == nil:
		return nil, errRepositoryRequired
	case opts.Interval <= 0:
		return nil, errIntervalRequired
	}

	s := &Sampler{
		sensor:    opts.Sensor,
		evaluator: opts.Evaluator,
		uploader:  opts.Uploader,
		repo:      opts.Repository,
		observer:  opts.Observer,
		interval:  opts.Interval,
		now:       opts.Now,
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s, nil
}

// Run samples until ctx is canceled. A failed read never stops the loop.
func (s *Sampler) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "sampler")

	logger.InfoKV(ctx, "Sampling started", "interval", s.interval.String())

	for {
		s.Cycle(ctx)

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Sampling stopped")
			return nil
		case <-time.After(s.interval):
		}
	}
}

// Cycle performs one read and, on success, stores, evaluates and uploads it.
// It reports whether the read succeeded.
func (s *Sampler) Cycle(ctx context.Context) bool {
	r, err := s.sensor.Read(ctx)

	if s.observer != nil {
		s.observer.Observe(ctx, err)
	}

	if err != nil {
		logger.ErrorKV(ctx, "could not read data from sensor", "error", err)
		return false
	}

	s.sequence++

	snapshot := &climate.Snapshot{
		Reading:   r,
		Timestamp: s.now(),
		Sequence:  s.sequence,
	}

	if err = s.repo.Save(ctx, snapshot); err != nil {
		logger.ErrorKV(ctx, "Save reading failed", "error", err)
		return false
	}

	s.evaluator.Evaluate(ctx, r)

	if s.uploader != nil {
		s.uploader.Trigger(ctx)
	}

	logger.InfoKV(ctx, r.String(), "sequence", s.sequence)

	return true
}
