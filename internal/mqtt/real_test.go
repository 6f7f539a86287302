package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingSender stands in for the broker. The first send blocks until
// release is closed.
type recordingSender struct {
	mu      sync.Mutex
	sent    []bufferedMsg
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{started: make(chan struct{}), release: make(chan struct{})}
}

func (r *recordingSender) send(m bufferedMsg) error {
	r.once.Do(func() {
		close(r.started)
		<-r.release
	})
	r.mu.Lock()
	r.sent = append(r.sent, m)
	r.mu.Unlock()
	return nil
}

func (r *recordingSender) messages() []bufferedMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bufferedMsg(nil), r.sent...)
}

func newTestPublisher(send func(bufferedMsg) error) *RealPublisher {
	return &RealPublisher{topic: Topic, buffer: newRingBuffer(16), send: send}
}

func waitReplayed(t *testing.T, p *RealPublisher) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		p.mu.Lock()
		done := !p.replaying
		p.mu.Unlock()
		if done {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("replay did not finish")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestReplayKeepsOrderWithLivePublishes(t *testing.T) {
	rs := newRecordingSender()
	p := newTestPublisher(rs.send)
	p.everUp = true
	push(p.buffer, 0, 2)

	p.onConnect(nil)
	<-rs.started // replay is holding the RECONNECTED message

	if err := p.publish(bufferedMsg{topic: Topic, payload: []byte{9}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := p.Buffered(); got != 1 {
		t.Errorf("Buffered during replay: got %d, want 1", got)
	}

	close(rs.release)
	waitReplayed(t, p)

	got := rs.messages()
	if len(got) != 4 {
		t.Fatalf("expected 4 sent messages, got %d", len(got))
	}
	if got[0].topic != TopicSystem {
		t.Errorf("first message topic: got %q, want %q", got[0].topic, TopicSystem)
	}
	for i, want := range []byte{0, 1, 9} {
		m := got[i+1]
		if m.topic != Topic || m.payload[0] != want {
			t.Errorf("message %d: got %s/%v, want %s/[%d]", i+1, m.topic, m.payload, Topic, want)
		}
	}

	// Replay done: publishes go straight out.
	if err := p.publish(bufferedMsg{topic: Topic, payload: []byte{10}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if p.Buffered() != 0 {
		t.Errorf("Buffered after replay: got %d, want 0", p.Buffered())
	}
	if got := rs.messages(); len(got) != 5 || got[4].payload[0] != 10 {
		t.Errorf("expected direct publish after replay, got %d messages", len(got))
	}
}

func TestFirstConnectSendsNoReconnected(t *testing.T) {
	rs := newRecordingSender()
	close(rs.release)
	p := newTestPublisher(rs.send)
	push(p.buffer, 0, 1)

	p.onConnect(nil)
	waitReplayed(t, p)

	got := rs.messages()
	if len(got) != 1 || got[0].topic != Topic {
		t.Fatalf("expected only the buffered message, got %+v", got)
	}
	if !p.IsConnected() {
		t.Error("expected connected")
	}
}

func TestReplayRequeuesWhenConnectionDrops(t *testing.T) {
	p := newTestPublisher(nil)
	p.send = func(bufferedMsg) error {
		p.onConnectionLost(nil, errors.New("link down"))
		return errors.New("not connected")
	}
	push(p.buffer, 0, 3)

	p.onConnect(nil)
	waitReplayed(t, p)

	if p.IsConnected() {
		t.Error("expected disconnected")
	}
	got := p.buffer.drainAll()
	if len(got) != 3 {
		t.Fatalf("expected 3 requeued messages, got %d", len(got))
	}
	for i, m := range got {
		if m.payload[0] != byte(i) {
			t.Errorf("requeued %d: got payload %v, want [%d]", i, m.payload, i)
		}
	}
}
