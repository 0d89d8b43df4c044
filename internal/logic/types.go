// Package logic contains the pure edge-detection and rotation-counting engine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Raw levels and time are always passed in by the caller.
package logic

import (
	"errors"
	"time"
)

// ErrUnknownChannel is returned when a channel id is not in the registry.
var ErrUnknownChannel = errors.New("unknown channel")

// ChannelID identifies one physical debounced input.
type ChannelID int

// Channel ids for the kit's inputs. The values are stable and used as
// table keys, not as array indexes.
const (
	ChannelPhoto ChannelID = iota + 1
	ChannelToggle
	ChannelTactTL
	ChannelTactTR
	ChannelTactLL
	ChannelTactLR
	ChannelTactRL
	ChannelTactRR
)

// ChannelKind says which engine a channel is wired to.
type ChannelKind string

const (
	KindEdge     ChannelKind = "EDGE"
	KindRotation ChannelKind = "ROTATION"
	KindToggle   ChannelKind = "TOGGLE"
)

// ChannelSpec is one row of the channel table built at startup.
type ChannelSpec struct {
	ID   ChannelID
	Name string
	Kind ChannelKind
}

// DefaultChannels is the kit's channel table.
var DefaultChannels = []ChannelSpec{
	{ID: ChannelPhoto, Name: "photo", Kind: KindRotation},
	{ID: ChannelToggle, Name: "toggle", Kind: KindToggle},
	{ID: ChannelTactTL, Name: "tact_tl", Kind: KindEdge},
	{ID: ChannelTactTR, Name: "tact_tr", Kind: KindEdge},
	{ID: ChannelTactLL, Name: "tact_ll", Kind: KindEdge},
	{ID: ChannelTactLR, Name: "tact_lr", Kind: KindEdge},
	{ID: ChannelTactRL, Name: "tact_rl", Kind: KindEdge},
	{ID: ChannelTactRR, Name: "tact_rr", Kind: KindEdge},
}

// EventType represents a logical input event.
type EventType string

const (
	EventPressed  EventType = "PRESSED"  // edge on a tact switch
	EventPulled   EventType = "PULLED"   // toggle moved to the active position
	EventRotation EventType = "ROTATION" // rotation target reached
)

// Event is a one-shot input event to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Channel   ChannelID
	Name      string
	// Target is the rotation target that completed (rotation events only).
	Target int
}

// DebounceMode selects how raw samples are conditioned before edge detection.
type DebounceMode string

const (
	DebounceNoFilter   DebounceMode = "none"
	DebounceFixedDelay DebounceMode = "fixed"
)

// Debounce is the system-wide debounce strategy. With DebounceFixedDelay the
// sampling layer busy-waits Delay before reading the pin.
type Debounce struct {
	Mode  DebounceMode
	Delay time.Duration
}

// NoFilter returns the non-blocking strategy.
func NoFilter() Debounce {
	return Debounce{Mode: DebounceNoFilter}
}

// FixedDelay returns a strategy that waits d before each sample.
func FixedDelay(d time.Duration) Debounce {
	if d <= 0 {
		return NoFilter()
	}
	return Debounce{Mode: DebounceFixedDelay, Delay: d}
}

// SettleTime returns how long to wait before sampling.
func (d Debounce) SettleTime() time.Duration {
	if d.Mode != DebounceFixedDelay {
		return 0
	}
	return d.Delay
}

// EventCounts tracks the number of events per channel since startup.
type EventCounts map[ChannelID]int

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
