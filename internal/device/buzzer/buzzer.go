// Package buzzer drives a buzzer wired to a digital output.
package buzzer

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// DefaultHold is how long each level is kept.
const DefaultHold = 100 * time.Millisecond

// Output is the part of gpio.PinOut the buzzer needs.
type Output interface {
	Out(l gpio.Level) error
}

// Buzzer plays beep patterns on an output. Patterns never overlap on the pin.
type Buzzer struct {
	out  Output
	hold time.Duration

	// turn serialises patterns on the pin.
	turn chan struct{}
	// running tracks patterns started by Beep.
	running sync.WaitGroup
}

// New creates a Buzzer. A non-positive hold falls back to DefaultHold.
func New(out Output, hold time.Duration) *Buzzer {
	if hold <= 0 {
		hold = DefaultHold
	}

	return &Buzzer{
		out:  out,
		hold: hold,
		turn: make(chan struct{}, 1),
	}
}

// Play toggles the output 2*n times starting with High, keeping every level
// for the hold duration. The output ends Low. Write errors are ignored.
func (b *Buzzer) Play(n int) {
	b.turn <- struct{}{}
	defer func() { <-b.turn }()

	level := gpio.High
	for range 2 * n {
		_ = b.out.Out(level)

		time.Sleep(b.hold)

		level = !level
	}
}

// Beep starts a pattern of n beeps and returns immediately.
func (b *Buzzer) Beep(n int) {
	b.running.Add(1)

	go func() {
		defer b.running.Done()

		b.Play(n)
	}()
}

// Wait blocks until every pattern started by Beep has finished.
func (b *Buzzer) Wait() {
	b.running.Wait()
}
