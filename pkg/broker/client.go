package broker

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MessageHandler processes one delivery. A nil return acknowledges the
// message; an error leaves it unacknowledged so the broker redelivers it.
type MessageHandler func(topic string, payload []byte) error

// Config holds broker connection parameters.
type Config struct {
	URL      string
	ClientID string
	Username string
	Password string
	// ManualAcks disables auto-ack so handlers can ack only after their
	// write commits. Requires a persistent session (CleanSession=false).
	ManualAcks bool
}

// Client wraps the paho MQTT client.
type Client struct {
	client mqtt.Client
	config *Config
	logger *zap.Logger
}

// NewClient connects to the broker.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(true)
	if cfg.ManualAcks {
		opts.SetCleanSession(false)
		opts.SetAutoAckDisabled(true)
	} else {
		opts.SetCleanSession(true)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", token.Error())
	}

	return &Client{client: client, config: cfg, logger: logger}, nil
}

// Subscribe registers handler for topic. With ManualAcks enabled the message
// is acked only when handler returns nil.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	cb := func(_ mqtt.Client, msg mqtt.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Error("message handling failed",
				zap.String("topic", msg.Topic()),
				zap.Error(err))
			return
		}
		if c.config.ManualAcks {
			msg.Ack()
		}
	}
	if token := c.client.Subscribe(topic, qos, cb); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	return nil
}

// Publish sends a message and waits for the broker to accept it.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

// Unsubscribe removes subscriptions.
func (c *Client) Unsubscribe(topics ...string) error {
	token := c.client.Unsubscribe(topics...)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe: %w", token.Error())
	}
	return nil
}

// Disconnect waits briefly for in-flight work, then drops the connection.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

// IsConnected reports connection state.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}
