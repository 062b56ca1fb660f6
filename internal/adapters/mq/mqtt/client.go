// Package mqtt connects the classifier to an MQTT broker: sensor stations
// publish readings, the service publishes evaluations back per station.
package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/airq/pkg/logger"
)

const (
	qosAtLeastOnce    = 1
	keepAlive         = 60 * time.Second
	pingTimeout       = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

// ClientConfig holds MQTT client configuration.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Client manages the broker connection. Subscriber and Publisher use the
// native client it wraps.
type Client struct {
	client paho.Client
	config ClientConfig
	logger logger.Logger
}

// NewClient connects to the broker, giving up when ctx is done.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	log := logger.Get().Named("mqtt")

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(pingTimeout)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info(context.Background(), "mqtt connection established", logger.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn(context.Background(), "mqtt connection lost", logger.Error(err))
	})

	client := paho.NewClient(opts)
	if err := wait(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, err)
	}
	return &Client{client: client, config: cfg, logger: log}, nil
}

// Native returns the underlying paho client.
func (c *Client) Native() paho.Client { return c.client }

// IsConnected returns whether the client is currently connected.
func (c *Client) IsConnected() bool { return c.client.IsConnected() }

// Ready implements a readiness probe.
func (c *Client) Ready(ctx context.Context) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("mqtt broker %s not connected", c.config.Broker)
	}
	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(disconnectQuiesce)
	c.logger.Info(context.Background(), "mqtt client disconnected")
}

// wait blocks until the token completes or ctx is done.
func wait(ctx context.Context, t paho.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
