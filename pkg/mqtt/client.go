package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/vehicle-api/pkg/log"
)

var errNotStarted = errors.New("mqtt client not started")

const reconnectDelay = 3 * time.Second

type pahoClient struct {
	cfg *ClientConfig
	cm  *autopaho.ConnectionManager

	mu       sync.RWMutex
	handlers map[string]subscription // by topic filter
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// NewClient validates cfg and returns a Client that is not connected yet.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt config is required")
	}

	setDefaultConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{cfg: cfg, handlers: make(map[string]subscription)}, nil
}

func (c *pahoClient) Start(ctx context.Context) error {
	broker, _ := url.Parse(c.cfg.BrokerURL)

	cm, err := autopaho.NewConnection(ctx, autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{broker},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(reconnectDelay),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg:                        &tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify},
		WillMessage:                   c.will(),
		OnConnectionUp:                c.resubscribe,
		OnConnectionDown: func() bool {
			log.Warn("MQTT connection lost", "broker", c.cfg.BrokerURL)
			return true
		},
		OnConnectError: func(err error) {
			log.Error(err, "MQTT connect attempt failed", "broker", c.cfg.BrokerURL)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: c.cfg.ClientID,
			OnClientError: func(err error) {
				log.Error(err, "MQTT client error")
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				var reason string
				if d.Properties != nil {
					reason = d.Properties.ReasonString
				}
				log.Warn("MQTT broker closed the session", "reasonCode", d.ReasonCode, "reason", reason)
			},
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){c.dispatch},
		},
	})
	if err != nil {
		return err
	}

	log.Info("MQTT client started", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)
	c.cm = cm
	return nil
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	if c.cm == nil {
		return
	}
	if err := c.cm.Disconnect(ctx); err != nil {
		log.Warn("MQTT disconnect returned an error", "error", err)
		return
	}
	log.Info("MQTT client disconnected")
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if c.cm == nil {
		return errNotStarted
	}

	_, err := c.cm.Publish(ctx, &paho.Publish{Topic: topic, QoS: byte(qos), Retain: retain, Payload: payload})
	return err
}

func (c *pahoClient) Subscribe(ctx context.Context, filter string, qos int, handler MessageHandler) error {
	if c.cm == nil {
		return errNotStarted
	}

	c.mu.Lock()
	c.handlers[filter] = subscription{qos: byte(qos), handler: handler}
	c.mu.Unlock()

	if _, err := c.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: byte(qos)}},
	}); err != nil {
		return fmt.Errorf("subscribe to %s: %w", filter, err)
	}

	log.Info("Subscribed to topic", "topic", filter)
	return nil
}

func (c *pahoClient) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return errNotStarted
	}
	return c.cm.AwaitConnection(ctx)
}

// resubscribe restores every registered filter after the broker forgot the session.
func (c *pahoClient) resubscribe(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	log.Info("MQTT connection established", "broker", c.cfg.BrokerURL)

	c.mu.RLock()
	opts := make([]paho.SubscribeOptions, 0, len(c.handlers))
	for filter, s := range c.handlers {
		opts = append(opts, paho.SubscribeOptions{Topic: filter, QoS: s.qos})
	}
	c.mu.RUnlock()

	if len(opts) == 0 {
		return
	}
	if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{Subscriptions: opts}); err != nil {
		log.Error(err, "Failed to restore subscriptions", "count", len(opts))
	}
}

// dispatch hands an incoming message to the handlers whose filter matches, each on its own goroutine.
func (c *pahoClient) dispatch(p paho.PublishReceived) (bool, error) {
	topic, payload := p.Packet.Topic, p.Packet.Payload

	c.mu.RLock()
	defer c.mu.RUnlock()

	handled := false
	for filter, s := range c.handlers {
		if matches(filter, topic) {
			go s.handler(context.Background(), topic, payload)
			handled = true
		}
	}
	if !handled {
		log.Debug("No handler for MQTT message", "topic", topic)
	}
	return true, nil
}

func (c *pahoClient) will() *paho.WillMessage {
	if c.cfg.WillTopic == "" {
		return nil
	}
	return &paho.WillMessage{
		Topic:   c.cfg.WillTopic,
		Payload: c.cfg.WillPayload,
		QoS:     c.cfg.WillQoS,
		Retain:  c.cfg.WillRetain,
	}
}

// matches reports whether topic falls under filter; '+' matches one level and a trailing '#' the rest.
func matches(filter, topic string) bool {
	fs, ts := strings.Split(filter, "/"), strings.Split(topic, "/")
	for i, f := range fs {
		switch {
		case f == "#":
			return i == len(fs)-1
		case i == len(ts):
			return false
		case f != "+" && f != ts[i]:
			return false
		}
	}
	return len(fs) == len(ts)
}
