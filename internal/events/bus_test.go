package events

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/mono-kit/internal/actuator"
	"github.com/sweeney/mono-kit/internal/logic"
)

func receive[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		var zero T
		t.Fatal("timed out waiting for event")
		return zero
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan InputEvent, 1)
	unsub := bus.Subscribe(func(e InputEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(InputEvent{logic.Event{Type: logic.EventPressed, Channel: logic.ChannelTactTL, Name: "tact_tl"}})

	got := receive(t, received)
	if got.Name != "tact_tl" || got.Event.Type != logic.EventPressed {
		t.Errorf("got %+v", got)
	}
}

func TestBus_TypesAreSeparate(t *testing.T) {
	bus := New()
	defer bus.Close()

	inputs := make(chan InputEvent, 4)
	systems := make(chan SystemEvent, 4)
	defer SubscribeToChannel[InputEvent](bus, inputs)()
	defer SubscribeToChannel[SystemEvent](bus, systems)()

	bus.Publish(SystemEvent{Event: "STARTUP", Retained: true})

	got := receive(t, systems)
	if got.Event != "STARTUP" || !got.Retained {
		t.Errorf("got %+v", got)
	}
	select {
	case e := <-inputs:
		t.Errorf("input subscriber received %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	defer bus.Close()

	a := make(chan CommandEvent, 1)
	b := make(chan CommandEvent, 1)
	defer bus.Subscribe(func(e CommandEvent) { a <- e })()
	defer bus.Subscribe(func(e CommandEvent) { b <- e })()

	bus.Publish(CommandEvent{Command: actuator.Command{Actuator: "servo", Value: 90}, Err: errors.New("x")})

	if got := receive(t, a); got.Command.Value != 90 {
		t.Errorf("a got %+v", got)
	}
	if got := receive(t, b); got.Err == nil {
		t.Errorf("b got %+v", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan SystemEvent, 1)
	unsub := bus.Subscribe(func(e SystemEvent) { ch <- e })
	unsub()

	bus.Publish(SystemEvent{Event: "HEARTBEAT"})
	select {
	case e := <-ch:
		t.Errorf("received after unsubscribe: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	defer bus.Close()

	unsub := bus.Subscribe(func(string) {})
	unsub()
}
