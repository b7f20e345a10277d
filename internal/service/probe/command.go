// Package probe reads the sensor from the command line, once or continuously.
package probe

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/oshokin/climate-alarm/internal/config"
	"github.com/oshokin/climate-alarm/internal/device/board"
	"github.com/oshokin/climate-alarm/internal/domain/climate"
	"github.com/oshokin/climate-alarm/internal/logger"
	"github.com/oshokin/climate-alarm/internal/service/instance"
)

// Options controls the read command.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Watch keeps reading at this interval when positive.
	Watch time.Duration
	// Force skips the single instance check.
	Force bool
	// Out receives one line per reading.
	Out io.Writer
}

// Run prints readings until ctx is canceled, or a single one without Watch.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "read")

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

	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Close board failed", "error", closeErr)
		}
	}()

	if opts.Watch <= 0 {
		r, err := b.Sensor.Read(ctx)
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}

		printReading(opts.Out, time.Now(), r)

		return nil
	}

	if b.Env != nil {
		return watchEnv(ctx, b.Env, opts.Watch, opts.Out)
	}

	return watchSensor(ctx, b.Sensor, opts.Watch, opts.Out)
}

// watchEnv uses the driver's own continuous mode.
func watchEnv(ctx context.Context, env physic.SenseEnv, interval time.Duration, out io.Writer) error {
	readings, err := env.SenseContinuous(interval)
	if err != nil {
		return fmt.Errorf("start continuous sensing: %w", err)
	}

	defer func() {
		_ = env.Halt()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-readings:
			if !ok {
				return nil
			}

			printReading(out, time.Now(), fromEnv(&e))
		}
	}
}

// watchSensor polls sensors without a continuous mode.
func watchSensor(ctx context.Context, sensor board.Sensor, interval time.Duration, out io.Writer) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r, err := sensor.Read(ctx)
		if err != nil {
			logger.ErrorKV(ctx, "could not read data from sensor", "error", err)
		} else {
			printReading(out, time.Now(), r)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func fromEnv(e *physic.Env) climate.Reading {
	percent := float64(e.Humidity) / float64(physic.PercentRH)

	return climate.Reading{
		Temperature: int16(math.Round(e.Temperature.Celsius() * 10)),
		Humidity:    int16(math.Round(percent * 10)),
	}
}

func printReading(out io.Writer, at time.Time, r climate.Reading) {
	_, _ = fmt.Fprintf(out, "%s temperature=%.1f°C humidity=%.1f%%\n",
		at.Format(time.RFC3339), r.Celsius(), r.Percent())
}
