// Package mqtt publishes snapshots to an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/climate-alarm/internal/config"
	"github.com/oshokin/climate-alarm/internal/domain/climate"
	"github.com/oshokin/climate-alarm/internal/logger"
	"github.com/oshokin/climate-alarm/internal/telemetry"
	"github.com/oshokin/climate-alarm/internal/transport"
)

// client is the part of paho.Client the publisher uses.
type client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	Disconnect(quiesce uint)
}

// Publisher sends encoded snapshots to one topic.
type Publisher struct {
	client   client
	deviceID string
	topic    string
	qos      byte
	retain   bool
}

const (
	connectTimeout = 10 * time.Second
	// quiesce is how long Disconnect waits for in-flight work, in milliseconds.
	quiesce = 250
)

var errTokenTimeout = errors.New("timed out waiting for broker")

//nolint:gochecknoinits // paho exposes its loggers only as package variables.
func init() {
	ctx := logger.WithName(context.Background(), "mqtt")

	paho.ERROR = logger.NewPrinter(ctx, zapcore.ErrorLevel)
	paho.CRITICAL = logger.NewPrinter(ctx, zapcore.ErrorLevel)
	paho.WARN = logger.NewPrinter(ctx, zapcore.WarnLevel)
}

// Dial connects to the broker described by cfg.
func Dial(ctx context.Context, deviceID string, cfg *config.MQTT) (*Publisher, error) {
	opts, err := clientOptions(deviceID, cfg)
	if err != nil {
		return nil, err
	}

	p := newPublisher(paho.NewClient(opts), deviceID, cfg)

	if err = wait(ctx, p.client.Connect(), connectTimeout); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	logger.InfoKV(ctx, "Connected to MQTT broker", "broker", cfg.Broker, "topic", cfg.Topic)

	return p, nil
}

func newPublisher(c client, deviceID string, cfg *config.MQTT) *Publisher {
	return &Publisher{
		client:   c,
		deviceID: deviceID,
		topic:    cfg.Topic,
		qos:      cfg.QoS,
		retain:   cfg.Retain,
	}
}

// Publish encodes snapshot and waits for the broker until ctx ends.
func (p *Publisher) Publish(ctx context.Context, snapshot *climate.Snapshot) error {
	payload, err := telemetry.Encode(p.deviceID, snapshot)
	if err != nil {
		return err
	}

	if err = wait(ctx, p.client.Publish(p.topic, p.qos, p.retain, payload), 0); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.client.Disconnect(quiesce)

	return nil
}

func clientOptions(deviceID string, cfg *config.MQTT) (*paho.ClientOptions, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = deviceID
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetOrderMatters(false)

	if isSecure(cfg.Broker) {
		tlsConfig, err := transport.TLSConfig(cfg.CAFile, cfg.InsecureSkipVerify)
		if err != nil {
			return nil, err
		}

		opts.SetTLSConfig(tlsConfig)
	}

	return opts, nil
}

func isSecure(broker string) bool {
	for _, scheme := range []string{"ssl://", "tls://", "mqtts://", "wss://"} {
		if strings.HasPrefix(strings.ToLower(broker), scheme) {
			return true
		}
	}

	return false
}

// wait blocks until token completes, ctx ends or timeout passes. A zero
// timeout relies on ctx alone.
func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", errTokenTimeout, ctx.Err())
	}
}
