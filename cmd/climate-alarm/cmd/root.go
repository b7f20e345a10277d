package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/climate-alarm/internal/config"
	"github.com/oshokin/climate-alarm/internal/logger"
	"github.com/oshokin/climate-alarm/internal/service/beep"
	"github.com/oshokin/climate-alarm/internal/service/monitor"
	"github.com/oshokin/climate-alarm/internal/service/probe"
	"github.com/oshokin/climate-alarm/internal/service/status"
	"github.com/oshokin/climate-alarm/internal/version"
)

var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the level from the configuration file.
	logLevel string
	// force skips the single instance check.
	force bool
	// watch is the interval of the continuous read mode.
	watch time.Duration
	// statusTimeout bounds the status query.
	statusTimeout time.Duration

	// rootCmd runs the climate station.
	rootCmd = &cobra.Command{
		Use:   version.Name,
		Short: "Watch temperature and humidity and sound a buzzer on breaches.",
		Long: `Samples a DHT11/DHT22 sensor at a fixed interval.

When the temperature reaches its threshold the buzzer beeps three times; otherwise,
when the humidity reaches its threshold it beeps twice. Every successful reading is
uploaded in the background over MQTT or HTTPS, and the outcome of the last read is
exposed through an optional gRPC health endpoint.

Settings are loaded from a YAML file; every value has a compiled-in default.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &monitor.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
				Force:      force,
			}

			return monitor.Run(ctx, options)
		},
	}

	readCmd = &cobra.Command{
		Use:   "read",
		Short: "Read the sensor once, or continuously with --watch.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return probe.Run(ctx, &probe.Options{
				ConfigPath: configPath,
				Watch:      watch,
				Force:      force,
				Out:        cmd.OutOrStdout(),
			})
		},
	}

	beepCmd = &cobra.Command{
		Use:   "beep [count]",
		Short: "Play a buzzer pattern of count beeps (default 3).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var count int

			if len(args) > 0 {
				var err error

				count, err = strconv.Atoi(args[0])
				if err != nil {
					return err
				}
			}

			return beep.Run(cmd.Context(), &beep.Options{
				ConfigPath: configPath,
				Count:      count,
				Force:      force,
			})
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status [address]",
		Short: "Query the health endpoint of a running station.",
		Long: `Queries the gRPC health endpoint and prints the sampler status.

Exits with a non-zero status unless the last sensor read succeeded.
The address defaults to status.listen_address from the settings file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var address string
			if len(args) > 0 {
				address = args[0]
			}

			return status.Run(cmd.Context(), &status.Options{
				ConfigPath: configPath,
				Address:    address,
				Timeout:    statusTimeout,
				Out:        cmd.OutOrStdout(),
			})
		},
	}

	initConfigCmd = &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default settings to a YAML file.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if len(args) > 0 {
				path = args[0]
			}

			if err := config.Save(path, config.Default()); err != nil {
				return err
			}

			logger.InfoKV(cmd.Context(), "Settings written", "path", path)

			return nil
		},
	}
)

// Execute runs the climate-alarm CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Errorf(context.Background(), "%s failed: %v", version.Name, err)
		logger.Sync()
		os.Exit(1)
	}

	logger.Sync()
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Flags shared by every subcommand.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, "skip the single instance check")

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if logLevel == "" {
			return nil
		}

		level, ok := logger.ParseLogLevel(logLevel)
		if !ok {
			return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
		}

		logger.SetLevel(level)

		return nil
	}

	readCmd.Flags().DurationVarP(&watch, "watch", "w", 0, "keep reading at this interval")
	statusCmd.Flags().DurationVarP(&statusTimeout, "timeout", "t", 3*time.Second, "health check timeout")

	rootCmd.AddCommand(readCmd, beepCmd, statusCmd, initConfigCmd)
	version.AttachCobraVersionCommand(rootCmd)
}
