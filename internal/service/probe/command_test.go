package probe

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/oshokin/climate-alarm/internal/config"
	"github.com/oshokin/climate-alarm/internal/domain/climate"
)

func simulatedSettings(t *testing.T) string {
	t.Helper()

	cfg := config.Default()
	cfg.Sensor.Driver = config.DriverSimulated
	cfg.Sensor.Simulated.Temperature = 215
	cfg.Sensor.Simulated.Humidity = 455

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(path, cfg))

	return path
}

// TestRun_Once prints a single simulated reading.
func TestRun_Once(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := Run(context.Background(), &Options{ConfigPath: simulatedSettings(t), Force: true, Out: &out})
	require.NoError(t, err)
	require.Contains(t, out.String(), "temperature=21.5°C humidity=45.5%")
	require.Equal(t, 1, strings.Count(out.String(), "\n"))
}

// flakySensor fails every other read.
type flakySensor struct {
	mu    sync.Mutex
	calls int
}

func (s *flakySensor) Read(context.Context) (climate.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls%2 == 0 {
		return climate.Reading{}, errors.New("checksum mismatch")
	}

	return climate.Reading{Temperature: 100, Humidity: 200}, nil
}

// TestWatchSensor keeps going after failed reads.
func TestWatchSensor(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
		defer cancel()

		var out bytes.Buffer

		require.NoError(t, watchSensor(ctx, new(flakySensor), time.Second, &out))

		// Reads at 0s, 1s, 2s and 3s; two of them fail.
		require.Equal(t, 2, strings.Count(out.String(), "temperature=10.0°C humidity=20.0%"))
	})
}

// fakeEnv emits a fixed measurement on every interval.
type fakeEnv struct {
	env    physic.Env
	stop   chan struct{}
	halted chan struct{}
}

func (f *fakeEnv) Sense(e *physic.Env) error {
	*e = f.env
	return nil
}

func (f *fakeEnv) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	ch := make(chan physic.Env)
	f.stop = make(chan struct{})
	f.halted = make(chan struct{})

	go func() {
		defer close(f.halted)
		defer close(ch)

		for {
			select {
			case <-f.stop:
				return
			case <-time.After(interval):
			}

			select {
			case <-f.stop:
				return
			case ch <- f.env:
			}
		}
	}()

	return ch, nil
}

func (f *fakeEnv) Precision(*physic.Env) {}

func (f *fakeEnv) Halt() error {
	close(f.stop)
	<-f.halted

	return nil
}

func (f *fakeEnv) String() string { return "fake" }

// TestWatchEnv prints continuous measurements and halts the sensor.
func TestWatchEnv(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		env := &fakeEnv{env: physic.Env{
			Temperature: physic.ZeroCelsius - 5*physic.Celsius,
			Humidity:    805 * physic.MilliRH,
		}}

		ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
		defer cancel()

		var out bytes.Buffer

		require.NoError(t, watchEnv(ctx, env, time.Second, &out))
		require.Equal(t, 2, strings.Count(out.String(), "temperature=-5.0°C humidity=80.5%"))
	})
}

// TestFromEnv rounds to tenths.
func TestFromEnv(t *testing.T) {
	t.Parallel()

	e := physic.Env{
		Temperature: physic.ZeroCelsius + 21500*physic.MilliCelsius,
		Humidity:    45 * physic.PercentRH,
	}

	require.Equal(t, climate.Reading{Temperature: 215, Humidity: 450}, fromEnv(&e))
}
