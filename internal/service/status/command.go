// Package status queries the health endpoint of a running station.
package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/climate-alarm/internal/api/grpc/health"
	"github.com/oshokin/climate-alarm/internal/config"
	"github.com/oshokin/climate-alarm/internal/logger"
)

// Options controls the status command.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Address overrides the status address from the settings file.
	Address string
	// Timeout bounds the health check.
	Timeout time.Duration
	// Out receives the status line.
	Out io.Writer
}

var (
	// ErrNotServing is returned when the station reports a failed sensor.
	ErrNotServing = errors.New("sampler is not serving")

	errNoAddress = errors.New("no status address configured")
)

// Run prints the sampler status and fails unless it is SERVING.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "status")

	address := opts.Address
	if address == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}

		address = cfg.Status.ListenAddress
	}

	if address == "" {
		return errNoAddress
	}

	client, err := health.Dial(ctx, address, health.WithCallTimeout(opts.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	status, err := client.Check(ctx)
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Health checked", "address", address, "status", status.String())

	_, _ = fmt.Fprintf(opts.Out, "%s: %s\n", health.ServiceName, status)

	if status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, status)
	}

	return nil
}
