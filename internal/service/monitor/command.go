package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/climate-alarm/internal/api/grpc/health"
	"github.com/oshokin/climate-alarm/internal/config"
	"github.com/oshokin/climate-alarm/internal/device/board"
	"github.com/oshokin/climate-alarm/internal/logger"
	"github.com/oshokin/climate-alarm/internal/repository/reading"
	"github.com/oshokin/climate-alarm/internal/service/alarm"
	"github.com/oshokin/climate-alarm/internal/service/instance"
	"github.com/oshokin/climate-alarm/internal/service/sampler"
	"github.com/oshokin/climate-alarm/internal/service/uploader"
	"github.com/oshokin/climate-alarm/internal/transport/https"
	"github.com/oshokin/climate-alarm/internal/transport/mqtt"
	"github.com/oshokin/climate-alarm/internal/version"
)

// Options controls the monitor process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the level from the settings file when set.
	LogLevel string
	// Force skips the single instance check.
	Force bool
}

var errUnknownLogLevel = errors.New("unknown log level")

// Run starts the station and blocks until ctx is canceled.
// In-flight buzzer patterns and uploads finish before it returns.
//
//nolint:cyclop,funlen // Linear start-up sequence.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, version.Name)

	// Load configuration first, the log level may come from it.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = applyLogLevel(cfg, opts.LogLevel); err != nil {
		return err
	}

	logStartup(ctx, cfg)

	// Two samplers would fight over the sensor line.
	if !opts.Force {
		if err = instance.EnsureSingle(); err != nil {
			return err
		}
	}

	b, err := board.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}

	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Close board failed", "error", closeErr)
		}
	}()

	repo := reading.NewMemoryRepository()
	evaluator := alarm.NewEvaluator(cfg.Thresholds.Climate(), b.Buzzer)

	samplerOptions := &sampler.Options{
		Sensor:     b.Sensor,
		Evaluator:  evaluator,
		Repository: repo,
		Interval:   cfg.Interval,
	}

	// Upload leg, skipped entirely for the "none" transport.
	up, err := newUploader(ctx, cfg, repo)
	if err != nil {
		return err
	}

	if up != nil {
		samplerOptions.Uploader = up

		defer func() {
			if closeErr := up.Close(); closeErr != nil {
				logger.ErrorKV(ctx, "Close uploader failed", "error", closeErr)
			}
		}()
	}

	// Optional status endpoint.
	var statusServer *health.Server

	if cfg.Status.ListenAddress != "" {
		statusServer = health.NewServer()
		samplerOptions.Observer = statusServer
	}

	s, err := sampler.New(samplerOptions)
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}

	var statusListener net.Listener

	if statusServer != nil {
		lc := net.ListenConfig{}

		statusListener, err = lc.Listen(ctx, "tcp", cfg.Status.ListenAddress)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Status.ListenAddress, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Run(gctx)
	})

	if statusServer != nil {
		g.Go(func() error {
			return statusServer.Serve(gctx, statusListener)
		})
	}

	if err = g.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Waiting for in-flight work")

	return nil
}

func applyLogLevel(cfg *config.Config, override string) error {
	name := cfg.LogLevel
	if override != "" {
		name = override
	}

	level, ok := logger.ParseLogLevel(name)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, name)
	}

	logger.SetLevel(level)

	return nil
}

func logStartup(ctx context.Context, cfg *config.Config) {
	cores := runtime.NumCPU()

	coreKind := "Single"
	if cores > 1 {
		coreKind = "Dual"
	}

	logger.InfoKV(ctx, "Starting",
		"version", version.Full(),
		"cpus", cores,
		"core", coreKind,
		"device_id", cfg.DeviceID,
	)

	logger.InfoKV(ctx, "Settings",
		"sensor", cfg.Sensor.Driver,
		"sensor_pin", cfg.Sensor.Pin,
		"buzzer_pin", cfg.Buzzer.Pin,
		"interval", cfg.Interval.String(),
		"temperature_threshold", cfg.Thresholds.Temperature,
		"humidity_threshold", cfg.Thresholds.Humidity,
		"transport", cfg.Upload.Transport,
	)
}

// newUploader returns nil when uploads are disabled.
func newUploader(ctx context.Context, cfg *config.Config, repo reading.Repository) (*uploader.Uploader, error) {
	uploadCtx := logger.WithKV(logger.WithName(ctx, "uploader"), "transport", cfg.Upload.Transport)

	var transport uploader.Transport

	switch cfg.Upload.Transport {
	case config.TransportMQTT:
		publisher, err := mqtt.Dial(uploadCtx, cfg.DeviceID, &cfg.Upload.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt transport: %w", err)
		}

		transport = publisher
	case config.TransportHTTPS:
		client, err := https.New(&cfg.Upload.HTTPS)
		if err != nil {
			return nil, fmt.Errorf("https transport: %w", err)
		}

		transport = client
	default:
		logger.Info(ctx, "Uploads disabled")
		return nil, nil //nolint:nilnil // No uploader is a valid outcome.
	}

	pool := uploader.NewPool(cfg.Upload.Workers, cfg.Upload.QueueSize, cfg.Upload.Timeout)
	if err := pool.Start(uploadCtx); err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("start upload pool: %w", err)
	}

	return uploader.New(pool, repo, transport), nil
}
