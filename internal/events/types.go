// Package events fans control-loop output out to the daemon's side
// services. The loop publishes and never waits; subscribers run on the
// dispatcher's goroutines, away from the pins.
package events

import (
	"time"

	"github.com/sweeney/mono-kit/internal/actuator"
	"github.com/sweeney/mono-kit/internal/logic"
)

// Event type constants for kelindar/event.
const (
	TypeInput uint32 = iota + 1
	TypeSystem
	TypeCommand
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// InputEvent carries one logical input event.
type InputEvent struct {
	logic.Event
}

// Type returns the event type identifier for InputEvent.
func (e InputEvent) Type() uint32 { return TypeInput }

// SystemEvent is a lifecycle event (STARTUP, HEARTBEAT, SHUTDOWN).
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	Reason    string
	// Payload is the pre-formatted status document, if any.
	Payload  []byte
	Retained bool
}

// Type returns the event type identifier for SystemEvent.
func (e SystemEvent) Type() uint32 { return TypeSystem }

// CommandEvent reports a remote command after the loop applied it.
type CommandEvent struct {
	Timestamp time.Time
	Command   actuator.Command
	Err       error
}

// Type returns the event type identifier for CommandEvent.
func (e CommandEvent) Type() uint32 { return TypeCommand }
