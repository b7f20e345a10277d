package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/climate-alarm/internal/domain/climate"
	"github.com/oshokin/climate-alarm/internal/logger"
)

// Config holds every setting of the climate-alarm binary.
type Config struct {
	// DeviceID identifies this station in uploaded telemetry.
	DeviceID string `yaml:"device_id"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Interval is the fixed pause between two sampling cycles.
	Interval time.Duration `yaml:"interval"`
	// Sensor configures the humidity/temperature sensor.
	Sensor Sensor `yaml:"sensor"`
	// Buzzer configures the alarm output.
	Buzzer Buzzer `yaml:"buzzer"`
	// Thresholds are the alarm limits in tenths of a unit.
	Thresholds Thresholds `yaml:"thresholds"`
	// Upload configures the telemetry leg.
	Upload Upload `yaml:"upload"`
	// Status configures the optional gRPC health endpoint.
	Status Status `yaml:"status"`
}

// Sensor describes which driver reads the sensor and on which pin.
type Sensor struct {
	Driver      string        `yaml:"driver"`
	Pin         string        `yaml:"pin"`
	MinInterval time.Duration `yaml:"min_interval"`
	Simulated   Simulated     `yaml:"simulated"`
}

// Simulated holds the values produced by the simulated driver.
type Simulated struct {
	Temperature int16 `yaml:"temperature"`
	Humidity    int16 `yaml:"humidity"`
	// Jitter is the maximum random deviation applied to both values.
	Jitter int16 `yaml:"jitter"`
}

// Buzzer describes the digital output driving the buzzer.
type Buzzer struct {
	Pin  string        `yaml:"pin"`
	Hold time.Duration `yaml:"hold"`
}

// Thresholds mirrors climate.Thresholds with YAML tags.
type Thresholds struct {
	Temperature int16 `yaml:"temperature"`
	Humidity    int16 `yaml:"humidity"`
}

// Upload configures the fire-and-forget upload pipeline.
type Upload struct {
	Transport string        `yaml:"transport"`
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout"`
	MQTT      MQTT          `yaml:"mqtt"`
	HTTPS     HTTPS         `yaml:"https"`
}

// MQTT holds broker connection settings.
type MQTT struct {
	Broker             string `yaml:"broker"`
	ClientID           string `yaml:"client_id"`
	Topic              string `yaml:"topic"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	QoS                byte   `yaml:"qos"`
	Retain             bool   `yaml:"retain"`
	CAFile             string `yaml:"ca_file"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// HTTPS holds the endpoint used by the HTTPS transport.
type HTTPS struct {
	URL                string `yaml:"url"`
	APIKey             string `yaml:"api_key"`
	CAFile             string `yaml:"ca_file"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Status configures the gRPC health endpoint. An empty address disables it.
type Status struct {
	ListenAddress string `yaml:"listen_address"`
}

// Supported sensor drivers.
const (
	DriverDHT11     = "dht11"
	DriverDHT22     = "dht22"
	DriverSimulated = "simulated"
)

// Supported upload transports.
const (
	TransportNone  = "none"
	TransportMQTT  = "mqtt"
	TransportHTTPS = "https"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "climate-alarm.yaml"

	// DefaultInterval is the pause between sampling cycles.
	DefaultInterval = 5 * time.Second

	// MinInterval is the fastest rate the sensor tolerates.
	MinInterval = time.Second

	// DefaultHold is how long the buzzer keeps each level.
	DefaultHold = 100 * time.Millisecond

	// DefaultTimeout bounds a single upload.
	DefaultTimeout = 5 * time.Second

	// DefaultWorkers is the number of concurrent uploads.
	DefaultWorkers = 2

	// DefaultQueueSize is the number of uploads waiting for a worker.
	DefaultQueueSize = 4

	// DefaultFilePermissions is the permission used when saving settings.
	DefaultFilePermissions = 0o600

	maxQoS = 2
)

var (
	errConfigIsNotSet     = errors.New("configuration is not set")
	errIntervalTooShort   = errors.New("interval must be at least 1s")
	errUnknownDriver      = errors.New("unknown sensor driver")
	errUnknownTransport   = errors.New("unknown upload transport")
	errUnknownLogLevel    = errors.New("unknown log level")
	errPinRequired        = errors.New("pin must be provided")
	errBrokerRequired     = errors.New("mqtt broker must be provided")
	errTopicRequired      = errors.New("mqtt topic must be provided")
	errQoSOutOfRange      = errors.New("mqtt qos must be 0, 1 or 2")
	errURLRequired        = errors.New("https url must be provided")
	errNegativeParameters = errors.New("workers and queue size must not be negative")
)

// Default returns the compiled-in settings.
func Default() *Config {
	return &Config{
		DeviceID: "climate-alarm",
		LogLevel: "info",
		Interval: DefaultInterval,
		Sensor: Sensor{
			Driver:      DriverDHT11,
			Pin:         "GPIO17",
			MinInterval: MinInterval,
			Simulated: Simulated{
				Temperature: 220,
				Humidity:    450,
			},
		},
		Buzzer: Buzzer{
			Pin:  "GPIO18",
			Hold: DefaultHold,
		},
		Thresholds: Thresholds{
			Temperature: climate.DefaultThresholds.Temperature,
			Humidity:    climate.DefaultThresholds.Humidity,
		},
		Upload: Upload{
			Transport: TransportNone,
			Workers:   DefaultWorkers,
			QueueSize: DefaultQueueSize,
			Timeout:   DefaultTimeout,
			MQTT: MQTT{
				Topic: "climate/readings",
			},
			HTTPS: HTTPS{
				URL: "https://api.thingspeak.com/update",
			},
		},
	}
}

// Load reads configuration from path on top of the defaults.
// A missing file at the default location yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && (!explicit || path == DefaultConfigFilename):
		// Compiled-in defaults.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the settings to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills zero values with defaults and rejects inconsistent settings.
//
//nolint:cyclop // A flat list of checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}

	if cfg.Interval < MinInterval {
		return errIntervalTooShort
	}

	if err := validateSensor(&cfg.Sensor); err != nil {
		return err
	}

	if cfg.Buzzer.Hold <= 0 {
		cfg.Buzzer.Hold = DefaultHold
	}

	if cfg.Buzzer.Pin == "" && cfg.Sensor.Driver != DriverSimulated {
		return fmt.Errorf("buzzer: %w", errPinRequired)
	}

	if err := validateUpload(&cfg.Upload); err != nil {
		return err
	}

	if cfg.Status.ListenAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.Status.ListenAddress); err != nil {
			return fmt.Errorf("invalid status address: %w", err)
		}
	}

	return nil
}

// Climate converts the YAML thresholds into the domain type.
func (t Thresholds) Climate() climate.Thresholds {
	return climate.Thresholds{
		Temperature: t.Temperature,
		Humidity:    t.Humidity,
	}
}

func validateSensor(s *Sensor) error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = DriverDHT11
	}

	if s.MinInterval <= 0 {
		s.MinInterval = MinInterval
	}

	switch s.Driver {
	case DriverDHT11, DriverDHT22:
		if s.Pin == "" {
			return fmt.Errorf("sensor: %w", errPinRequired)
		}
	case DriverSimulated:
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, s.Driver)
	}

	return nil
}

func validateUpload(u *Upload) error {
	u.Transport = strings.ToLower(strings.TrimSpace(u.Transport))
	if u.Transport == "" {
		u.Transport = TransportNone
	}

	if u.Workers < 0 || u.QueueSize < 0 {
		return errNegativeParameters
	}

	if u.Workers == 0 {
		u.Workers = DefaultWorkers
	}

	if u.QueueSize == 0 {
		u.QueueSize = DefaultQueueSize
	}

	if u.Timeout <= 0 {
		u.Timeout = DefaultTimeout
	}

	switch u.Transport {
	case TransportNone:
		return nil
	case TransportMQTT:
		return validateMQTT(&u.MQTT)
	case TransportHTTPS:
		if u.HTTPS.URL == "" {
			return errURLRequired
		}

		if _, err := url.ParseRequestURI(u.HTTPS.URL); err != nil {
			return fmt.Errorf("invalid https url: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownTransport, u.Transport)
	}
}

func validateMQTT(m *MQTT) error {
	if m.Broker == "" {
		return errBrokerRequired
	}

	if _, err := url.Parse(m.Broker); err != nil {
		return fmt.Errorf("invalid mqtt broker: %w", err)
	}

	if m.Topic == "" {
		return errTopicRequired
	}

	if m.QoS > maxQoS {
		return errQoSOutOfRange
	}

	return nil
}
