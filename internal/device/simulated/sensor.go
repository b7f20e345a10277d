// Package simulated provides a sensor that needs no hardware.
package simulated

import (
	"context"
	"math/rand/v2"

	"github.com/oshokin/climate-alarm/internal/domain/climate"
)

// Sensor returns a fixed reading, optionally with random jitter.
type Sensor struct {
	base   climate.Reading
	jitter int16
	rand   *rand.Rand
}

// New creates a simulated sensor around base. Jitter is the maximum deviation
// in tenths applied to each value; zero makes the sensor deterministic.
func New(base climate.Reading, jitter int16) *Sensor {
	return &Sensor{
		base:   base,
		jitter: max(jitter, 0),
		//nolint:gosec // Simulation noise, not security sensitive.
		rand: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Read returns the next simulated reading.
func (s *Sensor) Read(ctx context.Context) (climate.Reading, error) {
	if err := ctx.Err(); err != nil {
		return climate.Reading{}, err
	}

	return climate.Reading{
		Temperature: s.base.Temperature + s.noise(),
		Humidity:    s.base.Humidity + s.noise(),
	}, nil
}

func (s *Sensor) noise() int16 {
	if s.jitter == 0 {
		return 0
	}

	return int16(s.rand.IntN(2*int(s.jitter)+1)) - s.jitter
}
