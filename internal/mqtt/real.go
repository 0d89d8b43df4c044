package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/mono-kit/internal/actuator"
	"github.com/sweeney/mono-kit/internal/logging"
	"github.com/sweeney/mono-kit/internal/logic"
)

// Options configures a RealPublisher.
type Options struct {
	Broker         string
	ClientID       string
	BufferSize     int           // messages kept while disconnected
	ConnectTimeout time.Duration // how long New waits for the first connection
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions(broker string) Options {
	return Options{
		Broker:         broker,
		ClientID:       "mono-kit",
		BufferSize:     256,
		ConnectTimeout: 10 * time.Second,
	}
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are kept in a ring buffer and replayed, oldest
// first, when it comes back.
type RealPublisher struct {
	client   paho.Client
	topic    string
	commands chan actuator.Command

	mu        sync.Mutex
	buffer    *ringBuffer
	connected bool
	connects  int
}

// NewRealPublisher creates a publisher for the given broker. An unreachable
// broker is not an error: the client keeps retrying in the background and
// messages are buffered meanwhile.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	log := logging.GetLogger("mqtt")
	if opts.BufferSize < 1 {
		opts.BufferSize = 1
	}

	p := &RealPublisher{
		topic:    Topic,
		commands: make(chan actuator.Command, 16),
		buffer:   newRingBuffer(opts.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.setConnected(false)
			log.Warn("mqtt connection lost", "error", err)
		})

	p.client = paho.NewClient(clientOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		log.Warn("mqtt broker unreachable, buffering", "broker", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect runs on paho's goroutine after every (re)connection.
func (p *RealPublisher) onConnect(c paho.Client) {
	log := logging.GetLogger("mqtt")

	if token := c.Subscribe(TopicCommands, 1, p.handleCommand); token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Error("mqtt subscribe failed", "topic", TopicCommands, "error", token.Error())
	}

	p.mu.Lock()
	p.connected = true
	p.connects++
	reconnect := p.connects > 1
	pending := p.buffer.drainAll()
	p.mu.Unlock()

	if len(pending) > 0 {
		log.Info("replaying buffered messages", "count", len(pending))
	}
	for _, m := range pending {
		if err := p.send(m); err != nil {
			log.Error("mqtt replay failed", "topic", m.topic, "error", err)
		}
	}

	if reconnect {
		ev := SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}
		if err := p.PublishSystem(ev); err != nil {
			log.Error("failed to publish reconnected event", "error", err)
		}
	}
}

func (p *RealPublisher) handleCommand(_ paho.Client, msg paho.Message) {
	log := logging.GetLogger("mqtt")

	cmd, err := ParseCommand(msg.Payload())
	if err != nil {
		log.Warn("ignoring command", "error", err)
		return
	}
	select {
	case p.commands <- cmd:
	default:
		log.Warn("command queue full, dropping", "actuator", cmd.Actuator)
	}
}

func (p *RealPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Commands returns decoded commands from TopicCommands.
func (p *RealPublisher) Commands() <-chan actuator.Command {
	return p.commands
}

// Buffered returns how many messages wait for the connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// publish sends m now, or buffers it while disconnected.
func (p *RealPublisher) publish(m bufferedMsg) error {
	p.mu.Lock()
	if !p.connected {
		p.buffer.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.send(m)
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends an input event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: p.topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) so lifecycle events survive a flaky link
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	p.setConnected(false)
	return nil
}
