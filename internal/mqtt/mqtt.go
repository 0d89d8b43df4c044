// Package mqtt publishes kit events to a broker and receives remote
// actuator commands, with a fake for tests.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/mono-kit/internal/actuator"
	"github.com/sweeney/mono-kit/internal/logic"
)

// Topic is the MQTT topic for input events.
const Topic = "kit/mono/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "kit/mono/system"

// TopicCommands is the MQTT topic the daemon takes actuator commands from.
const TopicCommands = "kit/mono/commands"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an input event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CommandSource delivers decoded remote commands.
type CommandSource interface {
	Commands() <-chan actuator.Command
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Input InputPayload `json:"input"`
}

// InputPayload contains the input event details.
type InputPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Channel   string `json:"channel"`
	ID        int    `json:"id"`
	Target    int    `json:"target,omitempty"`
}

// FormatPayload creates the JSON payload for an input event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Input: InputPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Channel:   event.Name,
			ID:        int(event.Channel),
			Target:    event.Target,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// commandPayload is the wire form of a command:
//
//	{"actuator":"buzzer","action":"HI","duration_ms":250}
type commandPayload struct {
	Actuator   string `json:"actuator"`
	Value      int    `json:"value"`
	Action     string `json:"action"`
	Reverse    bool   `json:"reverse"`
	Steps      int    `json:"steps"`
	DurationMs int64  `json:"duration_ms"`
}

// ParseCommand decodes a command message.
func ParseCommand(data []byte) (actuator.Command, error) {
	var p commandPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return actuator.Command{}, fmt.Errorf("decode command: %w", err)
	}
	if p.Actuator == "" {
		return actuator.Command{}, fmt.Errorf("decode command: missing actuator")
	}
	return actuator.Command{
		Actuator: p.Actuator,
		Value:    p.Value,
		Action:   p.Action,
		Reverse:  p.Reverse,
		Steps:    p.Steps,
		Duration: time.Duration(p.DurationMs) * time.Millisecond,
	}, nil
}
