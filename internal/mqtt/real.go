package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/vent-remote/internal/remote"
)

// RealClient publishes to and receives commands from an actual MQTT broker.
// Messages published while the broker is unreachable are held in an outbox
// and sent once the connection is back.
type RealClient struct {
	client   paho.Client
	commands chan rune
	log      *log.Entry

	mu     sync.Mutex
	outbox *outbox
}

// NewRealClient creates a client for the given broker. It keeps retrying in
// the background if the first connection attempt does not succeed in time.
func NewRealClient(broker, clientID string) (*RealClient, error) {
	c := &RealClient{
		commands: make(chan rune, 8),
		log:      log.WithField("component", "mqtt"),
		outbox:   newOutbox(outboxCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	if err != nil {
		return nil, errors.Wrap(err, "format will payload")
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.log.WithError(err).Warn("connection lost")
		})

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		c.log.Warnf("broker %s not reachable yet, retrying in background", broker)
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(err, "connect to broker")
	}
	return c, nil
}

func (c *RealClient) onConnect(client paho.Client) {
	c.log.Info("connected")

	token := client.Subscribe(TopicCommand, 1, c.onCommand)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		c.log.WithError(token.Error()).Errorf("subscribe %s", TopicCommand)
	}

	c.mu.Lock()
	held := c.outbox.drain()
	c.mu.Unlock()
	if len(held) > 0 {
		c.log.Infof("flushing %d held messages", len(held))
	}
	for _, m := range held {
		client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

func (c *RealClient) onCommand(_ paho.Client, msg paho.Message) {
	key, err := ParseCommand(msg.Payload())
	if err != nil {
		c.log.WithError(err).Warn("ignoring command message")
		return
	}
	select {
	case c.commands <- key:
	default:
		c.log.Warnf("command queue full, dropping %q", key)
	}
}

// Commands returns the keys received on the command topic.
func (c *RealClient) Commands() <-chan rune {
	return c.commands
}

// Publish sends a command report to the MQTT broker.
func (c *RealClient) Publish(r remote.Report) error {
	payload, err := FormatPayload(r)
	if err != nil {
		return errors.Wrap(err, "format payload")
	}
	// QoS 0 (at-most-once), not retained
	return c.send(pending{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return errors.Wrap(err, "format system payload")
	}
	// QoS 1 (at-least-once) - lifecycle events should arrive
	return c.send(pending{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (c *RealClient) send(m pending) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		c.outbox.push(m)
		c.mu.Unlock()
		return nil
	}

	token := c.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return errors.Errorf("publish %s timeout", m.topic)
	}
	return errors.Wrapf(token.Error(), "publish %s", m.topic)
}

// IsConnected reports whether the broker connection is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
