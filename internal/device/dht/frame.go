package dht

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// pulse is one level held on the line.
type pulse struct {
	level gpio.Level
	width time.Duration
}

// decode extracts the 5-byte frame from captured pulses. Every bit is a Low
// phase followed by a High phase; the bit is 1 when High outlasts Low. Only
// the last 40 pairs are used so the handshake is skipped whatever was captured
// before it.
func decode(pulses []pulse) ([5]byte, error) {
	var data [5]byte

	bits := make([]bool, 0, len(pulses)/2)

	for i := 1; i < len(pulses); i++ {
		if pulses[i].level == gpio.High && pulses[i-1].level == gpio.Low {
			bits = append(bits, pulses[i].width > pulses[i-1].width)
		}
	}

	if len(bits) < frameBits {
		return data, fmt.Errorf("%w: got %d of %d bits", ErrTimeout, len(bits), frameBits)
	}

	bits = bits[len(bits)-frameBits:]

	for i, bit := range bits {
		if bit {
			data[i/8] |= 1 << (7 - i%8)
		}
	}

	if sum := data[0] + data[1] + data[2] + data[3]; sum != data[4] {
		return data, fmt.Errorf("%w: got %#02x, want %#02x", ErrChecksum, data[4], sum)
	}

	return data, nil
}

// convert turns a big-endian value pair into tenths of a unit.
func convert(model Model, msb, lsb byte) int16 {
	if model == DHT11 {
		return int16(msb) * 10
	}

	v := int16(msb&0x7F)<<8 | int16(lsb)
	if msb&0x80 != 0 {
		v = -v
	}

	return v
}
