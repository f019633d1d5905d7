package mqttc

import (
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type Client struct {
	Client mqtt.Client
	log    *zap.SugaredLogger
}

// NewClient creates a connected client. An empty broker falls back to the
// MQTT_BROKER environment variable and then to a local default.
func NewClient(clientID, broker string, log *zap.SugaredLogger) *Client {
	return NewClientWithHandler(clientID, broker, log, nil)
}

// NewClientWithHandler lets callers provide an OnConnect handler, used to
// re-establish subscriptions after reconnects.
func NewClientWithHandler(clientID, broker string, log *zap.SugaredLogger, onConnect mqtt.OnConnectHandler) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if broker == "" {
		broker = os.Getenv("MQTT_BROKER")
		if broker == "" {
			broker = "tcp://127.0.0.1:1883"
		}
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	if onConnect != nil {
		opts.SetOnConnectHandler(onConnect)
	}

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		log.Errorf("mqtt connect error: %v", token.Error())
	}
	return &Client{Client: c, log: log}
}

func (c *Client) Publish(topic string, payload []byte) {
	c.publish(topic, payload, false)
}

// PublishRetained publishes with the retained flag, used for presence.
func (c *Client) PublishRetained(topic string, payload []byte) {
	c.publish(topic, payload, true)
}

func (c *Client) publish(topic string, payload []byte, retained bool) {
	if c == nil || c.Client == nil {
		return
	}
	token := c.Client.Publish(topic, 0, retained, payload)
	token.Wait()
	if token.Error() != nil {
		c.log.Errorf("mqtt publish %s error: %v", topic, token.Error())
	}
}

func (c *Client) Subscribe(topic string, handler mqtt.MessageHandler) {
	if c == nil || c.Client == nil {
		return
	}
	token := c.Client.Subscribe(topic, 0, handler)
	token.Wait()
	if token.Error() != nil {
		c.log.Errorf("mqtt subscribe %s error: %v", topic, token.Error())
	}
}

func (c *Client) Unsubscribe(topics ...string) {
	if c == nil || c.Client == nil {
		return
	}
	token := c.Client.Unsubscribe(topics...)
	token.Wait()
	if token.Error() != nil {
		c.log.Errorf("mqtt unsubscribe error: %v", token.Error())
	}
}

// Disconnect flushes in-flight work and drops the connection.
func (c *Client) Disconnect() {
	if c == nil || c.Client == nil {
		return
	}
	c.Client.Disconnect(250)
}
