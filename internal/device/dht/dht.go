// Package dht reads DHT11/DHT22 humidity and temperature sensors over a single
// GPIO line using periph.io.
package dht

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/oshokin/climate-alarm/internal/domain/climate"
)

var (
	// ErrTimeout is returned when the sensor did not send a complete frame.
	ErrTimeout = errors.New("timeout waiting for sensor")
	// ErrChecksum is returned when the frame checksum does not match.
	ErrChecksum = errors.New("checksum mismatch")

	errContinuous = errors.New("already sensing continuously")
)

// Opts configures a Dev.
type Opts struct {
	Model Model
	// MinInterval is the minimum time between two reads; shorter values are raised to MinInterval.
	MinInterval time.Duration
	Name        string
}

// DefaultOpts returns settings for a DHT11.
func DefaultOpts() *Opts {
	return &Opts{
		Model:       DHT11,
		MinInterval: MinInterval,
		Name:        "dht11",
	}
}

// Dev is a handle to a DHT sensor on one pin.
type Dev struct {
	pin         gpio.PinIO
	model       Model
	minInterval time.Duration
	startLow    time.Duration
	now         func() time.Time
	Name        string

	mu       sync.Mutex
	lastRead time.Time
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New returns a Dev reading from pin.
func New(pin gpio.PinIO, opts *Opts) *Dev {
	if opts == nil {
		opts = DefaultOpts()
	}

	d := &Dev{
		pin:         pin,
		model:       opts.Model,
		minInterval: max(opts.MinInterval, MinInterval),
		startLow:    startLowDHT11,
		now:         time.Now,
		Name:        opts.Name,
	}

	if d.model == DHT22 {
		d.startLow = startLowDHT22
	}

	if d.Name == "" {
		d.Name = d.model.String()
	}

	return d
}

// Read returns one reading in tenths of a unit. Calls closer than the minimum
// interval wait for it to elapse.
func (d *Dev) Read(ctx context.Context) (climate.Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if wait := d.minInterval - d.now().Sub(d.lastRead); !d.lastRead.IsZero() && wait > 0 {
		select {
		case <-ctx.Done():
			return climate.Reading{}, ctx.Err()
		case <-time.After(wait):
		}
	}

	return d.read()
}

// Sense implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	stopped := d.stop == nil
	d.mu.Unlock()

	if !stopped {
		return d.wrap(errContinuous)
	}

	r, err := d.Read(context.Background())
	if err != nil {
		return err
	}

	toEnv(r, e)

	return nil
}

// SenseContinuous returns measurements on a continuous basis until Halt is called.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if err := d.Halt(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	interval = max(interval, d.minInterval)

	sensing := make(chan physic.Env)
	d.stop = make(chan struct{})
	d.wg.Add(1)

	go func(stop <-chan struct{}) {
		defer d.wg.Done()
		defer close(sensing)

		d.sensingContinuous(interval, sensing, stop)
	}(d.stop)

	return sensing, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	if d.model == DHT22 {
		e.Temperature = 100 * physic.MilliKelvin
		e.Humidity = physic.MilliRH

		return
	}

	e.Temperature = physic.Kelvin
	e.Humidity = physic.PercentRH
}

// Halt stops continuous sensing.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()

	if stop == nil {
		return nil
	}

	// The sensing goroutine takes d.mu for every read, so wait without holding it.
	close(stop)
	d.wg.Wait()

	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", d.Name, d.pin)
}

func (d *Dev) sensingContinuous(interval time.Duration, sensing chan<- physic.Env, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		d.mu.Lock()
		r, err := d.read()
		d.mu.Unlock()

		// A single bad frame is common on this bus; skip it and wait for the next tick.
		if err == nil {
			var e physic.Env

			toEnv(r, &e)

			select {
			case sensing <- e:
			case <-stop:
				return
			}
		}

		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}

// read performs one transaction. d.mu must be held.
func (d *Dev) read() (climate.Reading, error) {
	d.lastRead = d.now()

	if err := d.pin.Out(gpio.Low); err != nil {
		return climate.Reading{}, d.wrap(err)
	}

	time.Sleep(d.startLow)

	if err := d.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return climate.Reading{}, d.wrap(err)
	}

	data, err := decode(d.capture())
	if err != nil {
		return climate.Reading{}, d.wrap(err)
	}

	return climate.Reading{
		Humidity:    convert(d.model, data[0], data[1]),
		Temperature: convert(d.model, data[2], data[3]),
	}, nil
}

// capture records the width of every level until the frame is complete or the deadline passes.
func (d *Dev) capture() []pulse {
	pulses := make([]pulse, 0, maxEdges)

	level := d.pin.Read()
	start := d.now()
	deadline := start.Add(captureTimeout)

	for len(pulses) < maxEdges {
		now := d.now()
		if now.After(deadline) {
			break
		}

		if l := d.pin.Read(); l != level {
			pulses = append(pulses, pulse{level: level, width: now.Sub(start)})
			level, start = l, now
		}
	}

	return pulses
}

func (d *Dev) wrap(err error) error {
	return fmt.Errorf("%s: %w", d.Name, err)
}

func toEnv(r climate.Reading, e *physic.Env) {
	e.Temperature = physic.ZeroCelsius + physic.Temperature(r.Temperature)*100*physic.MilliCelsius
	e.Humidity = physic.RelativeHumidity(r.Humidity) * physic.MilliRH
}

var (
	_ conn.Resource   = &Dev{}
	_ physic.SenseEnv = &Dev{}
)
