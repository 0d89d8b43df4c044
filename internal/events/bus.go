package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish delivers ev to every subscriber of its type. It does not block on
// subscribers.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case InputEvent:
		event.Publish(b.dispatcher, e)
	case SystemEvent:
		event.Publish(b.dispatcher, e)
	case CommandEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type it accepts and returns an
// unsubscribe function. Unknown handler types are ignored.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(InputEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SystemEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CommandEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel forwards events of type T to ch, dropping them when ch
// is full.
func SubscribeToChannel[T Event](b *Bus, ch chan<- T) func() {
	return event.Subscribe(b.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// Close stops the dispatcher.
func (b *Bus) Close() error {
	return b.dispatcher.Close()
}
