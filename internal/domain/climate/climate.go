package climate

import (
	"fmt"
	"time"
)

// Reading is one temperature/humidity sample in tenths of a unit.
type Reading struct {
	// Temperature in tenths of a degree Celsius.
	Temperature int16
	// Humidity in tenths of a percent of relative humidity.
	Humidity int16
}

// Celsius returns the temperature in degrees Celsius.
func (r Reading) Celsius() float64 {
	return float64(r.Temperature) / 10
}

// Percent returns the relative humidity in percent.
func (r Reading) Percent() float64 {
	return float64(r.Humidity) / 10
}

func (r Reading) String() string {
	return fmt.Sprintf("temperature=%d, humidity=%d", r.Temperature, r.Humidity)
}

// Snapshot is a reading together with when it was taken.
type Snapshot struct {
	Reading Reading
	// Timestamp is when the sensor was read.
	Timestamp time.Time
	// Sequence is the number of the sampling cycle that produced the reading.
	Sequence uint64
}

// Clone returns a copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// Quantity names a measured value that can raise an alarm.
type Quantity int

const (
	// Temperature is checked first.
	Temperature Quantity = iota + 1
	// Humidity is checked only when temperature did not trigger.
	Humidity
)

// Beep repeat counts per quantity.
const (
	TemperatureBeeps = 3
	HumidityBeeps    = 2
)

func (q Quantity) String() string {
	switch q {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	default:
		return "unknown"
	}
}

// BeepCount returns how many beeps announce an alarm on q.
func (q Quantity) BeepCount() int {
	switch q {
	case Temperature:
		return TemperatureBeeps
	case Humidity:
		return HumidityBeeps
	default:
		return 0
	}
}

// Thresholds are the alarm limits; a value at or above its limit is alarming.
type Thresholds struct {
	Temperature int16
	Humidity    int16
}

// DefaultThresholds are the compiled-in limits: 15.0 °C and 80.0 %RH.
//
//nolint:gochecknoglobals // Read-only defaults.
var DefaultThresholds = Thresholds{
	Temperature: 150,
	Humidity:    800,
}

// AlarmState holds the per-quantity "was alarming at the last evaluation" flags.
type AlarmState struct {
	TemperatureAlarm bool
	HumidityAlarm    bool
}
