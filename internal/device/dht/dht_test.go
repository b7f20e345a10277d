package dht

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/oshokin/climate-alarm/internal/domain/climate"
)

// segment is a level held by the simulated sensor for a number of microseconds.
type segment struct {
	level gpio.Level
	us    int
}

// scriptedPin replays a DHT frame on a virtual clock advanced by every Read.
type scriptedPin struct {
	gpio.PinIO

	mu       sync.Mutex
	clock    time.Time
	released time.Time
	script   []segment
	outs     []gpio.Level
}

func newScriptedPin(script []segment) *scriptedPin {
	return &scriptedPin{
		clock:  time.Unix(1_000, 0),
		script: script,
	}
}

func (p *scriptedPin) now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.clock
}

func (p *scriptedPin) advance(d time.Duration) {
	p.mu.Lock()
	p.clock = p.clock.Add(d)
	p.mu.Unlock()
}

func (p *scriptedPin) String() string { return "FAKE17" }

func (p *scriptedPin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.outs = append(p.outs, l)

	return nil
}

func (p *scriptedPin) In(gpio.Pull, gpio.Edge) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.released = p.clock

	return nil
}

func (p *scriptedPin) Read() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := int(p.clock.Sub(p.released) / time.Microsecond)
	p.clock = p.clock.Add(time.Microsecond)

	for _, s := range p.script {
		if elapsed < s.us {
			return s.level
		}

		elapsed -= s.us
	}

	// Released line idles high.
	return gpio.High
}

// frameScript builds the pulse train a sensor sends for data.
func frameScript(data [5]byte) []segment {
	script := []segment{
		{gpio.High, 20},
		{gpio.Low, 80},
		{gpio.High, 80},
	}

	for _, b := range data {
		for bit := 7; bit >= 0; bit-- {
			high := 26
			if b&(1<<bit) != 0 {
				high = 70
			}

			script = append(script, segment{gpio.Low, 50}, segment{gpio.High, high})
		}
	}

	return append(script, segment{gpio.Low, 50})
}

func withChecksum(data [4]byte) [5]byte {
	return [5]byte{data[0], data[1], data[2], data[3], data[0] + data[1] + data[2] + data[3]}
}

// pulsesFor turns a script into the pulses capture would record.
func pulsesFor(script []segment) []pulse {
	pulses := make([]pulse, 0, len(script))
	for _, s := range script {
		pulses = append(pulses, pulse{level: s.level, width: time.Duration(s.us) * time.Microsecond})
	}

	return pulses
}

// TestDecode_ValidFrame decodes a well-formed frame including the handshake.
func TestDecode_ValidFrame(t *testing.T) {
	t.Parallel()

	want := withChecksum([4]byte{0x02, 0x8C, 0x01, 0x5F})

	got, err := decode(pulsesFor(frameScript(want)))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestDecode_Errors covers short frames and checksum mismatches.
func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	_, err := decode(nil)
	require.ErrorIs(t, err, ErrTimeout)

	frame := frameScript(withChecksum([4]byte{55, 0, 24, 0}))
	_, err = decode(pulsesFor(frame[:40]))
	require.ErrorIs(t, err, ErrTimeout)

	bad := withChecksum([4]byte{55, 0, 24, 0})
	bad[4]++

	_, err = decode(pulsesFor(frameScript(bad)))
	require.ErrorIs(t, err, ErrChecksum)
}

// TestConvert checks the per-model scaling.
func TestConvert(t *testing.T) {
	t.Parallel()

	require.EqualValues(t, 550, convert(DHT11, 55, 0))
	require.EqualValues(t, 240, convert(DHT11, 24, 9))
	require.EqualValues(t, 652, convert(DHT22, 0x02, 0x8C))
	require.EqualValues(t, 351, convert(DHT22, 0x01, 0x5F))
	require.EqualValues(t, -101, convert(DHT22, 0x80, 0x65))
}

// TestRead_DHT11 reads a full frame from the scripted pin.
func TestRead_DHT11(t *testing.T) {
	t.Parallel()

	pin := newScriptedPin(frameScript(withChecksum([4]byte{80, 0, 15, 0})))
	d := New(pin, nil)
	d.now = pin.now

	r, err := d.Read(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 800, r.Humidity)
	require.EqualValues(t, 150, r.Temperature)

	// The start signal pulls the line low first.
	require.Equal(t, []gpio.Level{gpio.Low}, pin.outs)
}

// TestRead_DHT22Negative reads a signed temperature.
func TestRead_DHT22Negative(t *testing.T) {
	t.Parallel()

	pin := newScriptedPin(frameScript(withChecksum([4]byte{0x01, 0xF4, 0x80, 0x32})))
	d := New(pin, &Opts{Model: DHT22})
	d.now = pin.now

	r, err := d.Read(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 500, r.Humidity)
	require.EqualValues(t, -50, r.Temperature)
	require.Equal(t, "dht22", d.Name)
}

// TestRead_NoResponse reports a timeout when the line never moves.
func TestRead_NoResponse(t *testing.T) {
	t.Parallel()

	pin := newScriptedPin(nil)
	d := New(pin, &Opts{Name: "greenhouse"})
	d.now = pin.now

	_, err := d.Read(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorContains(t, err, "greenhouse")
}

// TestRead_RespectsMinInterval ensures an early read waits and honours cancellation.
func TestRead_RespectsMinInterval(t *testing.T) {
	t.Parallel()

	pin := newScriptedPin(frameScript(withChecksum([4]byte{40, 0, 20, 0})))
	d := New(pin, &Opts{MinInterval: 10 * time.Millisecond})
	d.now = pin.now

	_, err := d.Read(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.Read(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// Once the interval has passed the read goes through.
	pin.advance(MinInterval)

	r, err := d.Read(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 400, r.Humidity)
}

// TestPrecisionAndEnv checks the physic conversions.
func TestPrecisionAndEnv(t *testing.T) {
	t.Parallel()

	var e physic.Env

	New(newScriptedPin(nil), nil).Precision(&e)
	require.Equal(t, physic.Kelvin, e.Temperature)
	require.Equal(t, physic.PercentRH, e.Humidity)

	toEnv(climate.Reading{Temperature: 215, Humidity: 456}, &e)
	require.InDelta(t, 21.5, e.Temperature.Celsius(), 1e-6)
	require.Equal(t, 456*physic.MilliRH, e.Humidity)
}
