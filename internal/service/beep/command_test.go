package beep

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/climate-alarm/internal/config"
)

// TestRun_Simulated plays a short pattern on the simulated buzzer.
func TestRun_Simulated(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Sensor.Driver = config.DriverSimulated
	cfg.Buzzer.Hold = time.Millisecond

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(path, cfg))

	start := time.Now()

	require.NoError(t, Run(context.Background(), &Options{ConfigPath: path, Count: 2, Force: true}))

	// Four writes, each followed by the hold.
	require.GreaterOrEqual(t, time.Since(start), 4*time.Millisecond)
}

// TestRun_NegativeCount is rejected before touching hardware.
func TestRun_NegativeCount(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Run(context.Background(), &Options{Count: -1}), errNegativeCount)
}
