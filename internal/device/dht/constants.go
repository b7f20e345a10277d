package dht

import "time"

// Model selects the wire timings and data encoding.
type Model int

const (
	// DHT11 reports whole units.
	DHT11 Model = iota
	// DHT22 (and AM2301) report tenths with a sign bit on temperature.
	DHT22
)

func (m Model) String() string {
	if m == DHT22 {
		return "dht22"
	}

	return "dht11"
}

const (
	// MinInterval is the fastest the sensor may be polled without heating up.
	MinInterval = time.Second

	startLowDHT11 = 20 * time.Millisecond
	startLowDHT22 = 2 * time.Millisecond

	// captureTimeout bounds one frame: 80+80µs handshake and 40 bits of at most 120µs.
	captureTimeout = 10 * time.Millisecond

	// frameBits is the payload length: humidity, temperature, checksum.
	frameBits = 40
	// maxEdges covers the handshake, 40 bits and the trailing release.
	maxEdges = 2*frameBits + 4
)
