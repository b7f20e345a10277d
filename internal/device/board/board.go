// Package board brings up the host GPIO drivers and builds the sensor and
// buzzer described by the configuration.
package board

import (
	"context"
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/oshokin/climate-alarm/internal/config"
	"github.com/oshokin/climate-alarm/internal/device/buzzer"
	"github.com/oshokin/climate-alarm/internal/device/dht"
	"github.com/oshokin/climate-alarm/internal/device/simulated"
	"github.com/oshokin/climate-alarm/internal/domain/climate"
	"github.com/oshokin/climate-alarm/internal/logger"
)

// Sensor reads one temperature/humidity sample.
type Sensor interface {
	Read(ctx context.Context) (climate.Reading, error)
}

// Board owns the peripherals used by the station.
type Board struct {
	// Sensor is the configured reader.
	Sensor Sensor
	// Env is set when the sensor also implements periph.io continuous sensing.
	Env physic.SenseEnv
	// Buzzer plays alarm patterns.
	Buzzer *buzzer.Buzzer

	output gpio.PinOut
}

// ErrPinNotFound is returned when a configured pin name is unknown to the host.
var ErrPinNotFound = errors.New("gpio pin not found")

// Open initialises the peripherals. Simulated boards never touch the host drivers.
func Open(ctx context.Context, cfg *config.Config) (*Board, error) {
	ctx = logger.WithName(ctx, "board")

	if cfg.Sensor.Driver == config.DriverSimulated {
		return openSimulated(ctx, cfg), nil
	}

	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	logger.DebugKV(ctx, "Host drivers loaded", "loaded", len(state.Loaded), "failed", len(state.Failed))

	sensorPin, err := lookup(cfg.Sensor.Pin)
	if err != nil {
		return nil, fmt.Errorf("sensor: %w", err)
	}

	buzzerPin, err := lookup(cfg.Buzzer.Pin)
	if err != nil {
		return nil, fmt.Errorf("buzzer: %w", err)
	}

	if err = buzzerPin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("buzzer: set output: %w", err)
	}

	opts := &dht.Opts{
		Model:       dht.DHT11,
		MinInterval: cfg.Sensor.MinInterval,
		Name:        cfg.Sensor.Driver,
	}
	if cfg.Sensor.Driver == config.DriverDHT22 {
		opts.Model = dht.DHT22
	}

	dev := dht.New(sensorPin, opts)

	logger.InfoKV(ctx, "Peripherals ready", "sensor", dev.String(), "buzzer", buzzerPin.Name())

	return &Board{
		Sensor: dev,
		Env:    dev,
		Buzzer: buzzer.New(buzzerPin, cfg.Buzzer.Hold),
		output: buzzerPin,
	}, nil
}

// Close stops continuous sensing, lets running patterns finish and silences the buzzer.
func (b *Board) Close() error {
	var errs []error

	if b.Env != nil {
		errs = append(errs, b.Env.Halt())
	}

	b.Buzzer.Wait()

	errs = append(errs, b.output.Out(gpio.Low))

	return errors.Join(errs...)
}

func openSimulated(ctx context.Context, cfg *config.Config) *Board {
	sim := cfg.Sensor.Simulated

	out := &tracedOutput{
		ctx: ctx,
		PinOut: &gpiotest.Pin{
			N: "SIM_BUZZER",
			L: gpio.Low,
		},
	}

	logger.InfoKV(ctx, "Using simulated peripherals",
		"temperature", sim.Temperature, "humidity", sim.Humidity, "jitter", sim.Jitter)

	return &Board{
		Sensor: simulated.New(climate.Reading{Temperature: sim.Temperature, Humidity: sim.Humidity}, sim.Jitter),
		Buzzer: buzzer.New(out, cfg.Buzzer.Hold),
		output: out,
	}
}

func lookup(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
	}

	return p, nil
}

// tracedOutput logs every level written to a virtual pin.
type tracedOutput struct {
	gpio.PinOut

	ctx context.Context //nolint:containedctx // Only carries the logger.
}

func (o *tracedOutput) Out(l gpio.Level) error {
	logger.DebugKV(o.ctx, "Buzzer output", "pin", o.PinOut.Name(), "level", l.String())

	return o.PinOut.Out(l)
}
