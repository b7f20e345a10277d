// Package beep plays a buzzer pattern from the command line.
package beep

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/climate-alarm/internal/config"
	"github.com/oshokin/climate-alarm/internal/device/board"
	"github.com/oshokin/climate-alarm/internal/domain/climate"
	"github.com/oshokin/climate-alarm/internal/logger"
	"github.com/oshokin/climate-alarm/internal/service/instance"
)

// Options controls the beep command.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Count is the number of beeps; zero means the temperature alarm pattern.
	Count int
	// Force skips the single instance check.
	Force bool
}

var errNegativeCount = errors.New("count must not be negative")

// Run plays the pattern and returns once the buzzer is idle again.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "beep")

	if opts.Count < 0 {
		return errNegativeCount
	}

	count := opts.Count
	if count == 0 {
		count = climate.TemperatureBeeps
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if !opts.Force {
		if err = instance.EnsureSingle(); err != nil {
			return err
		}
	}

	b, err := board.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}

	logger.InfoKV(ctx, "Playing pattern", "count", count, "hold", cfg.Buzzer.Hold.String())

	b.Buzzer.Play(count)

	if err = b.Close(); err != nil {
		return fmt.Errorf("close board: %w", err)
	}

	return nil
}
