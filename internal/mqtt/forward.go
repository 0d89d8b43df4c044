package mqtt

import (
	"github.com/sweeney/mono-kit/internal/events"
	"github.com/sweeney/mono-kit/internal/logging"
)

// Forward publishes input and system events from bus until the returned
// function is called. Publish failures are logged and dropped.
func Forward(bus *events.Bus, pub Publisher) func() {
	log := logging.GetLogger("mqtt")

	unsubInput := bus.Subscribe(func(e events.InputEvent) {
		if err := pub.Publish(e.Event); err != nil {
			log.Warn("publish error", "event", e.Event.Type, "channel", e.Name, "error", err)
		}
	})
	unsubSystem := bus.Subscribe(func(e events.SystemEvent) {
		err := pub.PublishSystem(SystemEvent{
			Timestamp:  e.Timestamp,
			Event:      e.Event,
			Reason:     e.Reason,
			RawPayload: e.Payload,
			Retained:   e.Retained,
		})
		if err != nil {
			log.Warn("system publish error", "event", e.Event, "error", err)
		}
	})
	return func() {
		unsubInput()
		unsubSystem()
	}
}
