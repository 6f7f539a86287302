package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/rotary-sensor/internal/logic"
)

// bufferCapacity bounds the messages held while the broker is unreachable.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed in order once the connection is back.
type RealPublisher struct {
	client   paho.Client
	send     func(bufferedMsg) error
	topic    string
	encoding Encoding

	mu        sync.Mutex
	connected bool
	replaying bool // replay goroutine still owns ordering
	everUp    bool
	gen       int // bumped on every connect
	buffer    *ringBuffer
}

// ClientID returns a broker client ID unique to this process.
func ClientID() string {
	return "rotary-sensor-" + uuid.New().String()[:8]
}

// NewRealPublisher creates a publisher for the given broker. It waits a short
// while for the first connection; if the broker is not reachable yet it keeps
// retrying in the background and buffers until connected.
func NewRealPublisher(broker string, enc Encoding) (*RealPublisher, error) {
	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	p := &RealPublisher{
		topic:    Topic,
		encoding: enc,
		buffer:   newRingBuffer(bufferCapacity),
	}
	p.send = p.sendNow

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(ClientID()).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	p.connected = true
	p.replaying = true
	reconnect := p.everUp
	p.everUp = true
	p.gen++
	gen := p.gen
	pending := p.buffer.drainAll()
	p.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected, replaying %d buffered messages", len(pending))
		if payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err == nil {
			pending = append([]bufferedMsg{{topic: TopicSystem, payload: payload, qos: 1}}, pending...)
		}
	}

	// Replay off the callback goroutine; waiting on tokens here can stall paho.
	go p.replay(gen, pending)
}

// replay sends pending in order, then whatever publish buffered meanwhile.
// publish keeps buffering until the buffer is found empty, so live messages
// never overtake replayed ones.
func (p *RealPublisher) replay(gen int, pending []bufferedMsg) {
	for {
		for i, m := range pending {
			if err := p.send(m); err != nil {
				log.Printf("mqtt: replay to %s failed: %v", m.topic, err)
				if p.requeue(gen, pending[i:]) {
					return
				}
			}
		}

		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()
			return
		}
		pending = p.buffer.drainAll()
		if len(pending) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
}

// requeue puts rest back ahead of anything buffered since, if the connection
// this replay belongs to is gone. It reports whether replay should stop.
func (p *RealPublisher) requeue(gen int, rest []bufferedMsg) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.connected && p.gen == gen {
		return false
	}
	newer := p.buffer.drainAll()
	for _, m := range rest {
		p.buffer.push(m)
	}
	for _, m := range newer {
		p.buffer.push(m)
	}
	if p.gen == gen {
		p.replaying = false
	}
	return true
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	log.Printf("mqtt: connection lost: %v", err)
}

// publish sends msg, or buffers it while disconnected or replaying.
func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.connected || p.replaying {
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.send(msg)
}

// sendNow publishes msg on the client and waits for the broker.
func (p *RealPublisher) sendNow(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// Publish sends a rotation event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event, p.encoding)
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

	// QoS 1 (at-least-once) so startup and shutdown are delivered
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// Close disconnects from the broker. Buffered messages are dropped.
func (p *RealPublisher) Close() error {
	if n := p.Buffered(); n > 0 {
		log.Printf("mqtt: dropping %d buffered messages on close", n)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
