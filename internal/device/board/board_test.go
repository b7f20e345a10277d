package board

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/oshokin/climate-alarm/internal/config"
	"github.com/oshokin/climate-alarm/internal/domain/climate"
)

// TestOpen_Simulated builds a board without touching host drivers.
func TestOpen_Simulated(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Sensor.Driver = config.DriverSimulated
	cfg.Sensor.Simulated = config.Simulated{Temperature: 150, Humidity: 500}
	cfg.Buzzer.Hold = 1
	require.NoError(t, config.Validate(cfg))

	b, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	require.Nil(t, b.Env)

	r, err := b.Sensor.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, climate.Reading{Temperature: 150, Humidity: 500}, r)

	b.Buzzer.Play(1)

	out, ok := b.output.(*tracedOutput)
	require.True(t, ok)

	pin, ok := out.PinOut.(*gpiotest.Pin)
	require.True(t, ok)
	require.Equal(t, gpio.Low, pin.Read())

	require.NoError(t, b.Close())
}

// TestLookup_Unknown reports unknown pin names.
func TestLookup_Unknown(t *testing.T) {
	t.Parallel()

	_, err := lookup("NO_SUCH_PIN_42")
	require.ErrorIs(t, err, ErrPinNotFound)
}
