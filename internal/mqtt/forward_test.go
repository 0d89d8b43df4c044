package mqtt

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/mono-kit/internal/events"
	"github.com/sweeney/mono-kit/internal/logic"
)

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestForward(t *testing.T) {
	bus := events.New()
	defer bus.Close()
	pub := NewFakePublisher()
	defer Forward(bus, pub)()

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bus.Publish(events.InputEvent{Event: logic.Event{Timestamp: ts, Type: logic.EventRotation, Channel: logic.ChannelPhoto, Name: "photo", Target: 3}})
	bus.Publish(events.SystemEvent{Timestamp: ts, Event: "HEARTBEAT", Payload: []byte(`{"status":{}}`), Retained: true})

	eventually(t, func() bool { return pub.EventCount() == 1 && len(pub.SystemEventNames()) == 1 })

	pub.mu.Lock()
	defer pub.mu.Unlock()
	want := `{"input":{"timestamp":"2026-03-01T09:00:00Z","event":"ROTATION","channel":"photo","id":1,"target":3}}`
	if string(pub.Payloads[0]) != want {
		t.Errorf("payload = %s, want %s", pub.Payloads[0], want)
	}
	sys := pub.SystemEvents[0]
	if sys.Event != "HEARTBEAT" || !sys.Retained || string(pub.SystemPayloads[0]) != `{"status":{}}` {
		t.Errorf("system event = %+v payload %s", sys, pub.SystemPayloads[0])
	}
}

func TestForwardPublishErrorIsDropped(t *testing.T) {
	bus := events.New()
	defer bus.Close()
	pub := NewFakePublisher()
	pub.PublishError = errors.New("broker down")
	defer Forward(bus, pub)()

	bus.Publish(events.InputEvent{Event: logic.Event{Type: logic.EventPressed, Name: "tact_rr"}})
	bus.Publish(events.SystemEvent{Event: "HEARTBEAT"})

	eventually(t, func() bool { return len(pub.SystemEventNames()) == 1 })
	if pub.EventCount() != 0 {
		t.Errorf("recorded %d events despite publish error", pub.EventCount())
	}
}

func TestForwardUnsubscribe(t *testing.T) {
	bus := events.New()
	defer bus.Close()
	pub := NewFakePublisher()
	Forward(bus, pub)()

	bus.Publish(events.InputEvent{Event: logic.Event{Type: logic.EventPressed, Name: "tact_rr"}})
	time.Sleep(50 * time.Millisecond)
	if pub.EventCount() != 0 {
		t.Errorf("recorded %d events after unsubscribe", pub.EventCount())
	}
}
