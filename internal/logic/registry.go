package logic

import (
	"errors"
	"fmt"
	"time"
)

// ErrKindMismatch is returned when a channel is polled through the wrong engine.
var ErrKindMismatch = errors.New("channel kind mismatch")

// Registry owns the per-channel state for every input on the kit.
// Not safe for concurrent use; the control loop is the only caller.
type Registry struct {
	specs     []ChannelSpec
	byID      map[ChannelID]ChannelSpec
	edges     map[ChannelID]*Channel
	rotations map[ChannelID]*RotationCounter
	toggles   map[ChannelID]*ToggleLatch

	counts        EventCounts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewRegistry builds channel state from a table. Ids must be unique.
// The startTime is used for calculating uptime in heartbeat events.
func NewRegistry(specs []ChannelSpec, startTime time.Time) (*Registry, error) {
	r := &Registry{
		byID:          make(map[ChannelID]ChannelSpec, len(specs)),
		edges:         make(map[ChannelID]*Channel),
		rotations:     make(map[ChannelID]*RotationCounter),
		toggles:       make(map[ChannelID]*ToggleLatch),
		counts:        make(EventCounts, len(specs)),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}

	for _, spec := range specs {
		if _, dup := r.byID[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate channel id %d (%s)", spec.ID, spec.Name)
		}
		switch spec.Kind {
		case KindEdge:
			r.edges[spec.ID] = NewChannel(spec)
		case KindRotation:
			r.rotations[spec.ID] = NewRotationCounter(spec)
		case KindToggle:
			r.toggles[spec.ID] = NewToggleLatch(spec)
		default:
			return nil, fmt.Errorf("channel %s: unknown kind %q", spec.Name, spec.Kind)
		}
		r.byID[spec.ID] = spec
		r.specs = append(r.specs, spec)
	}

	return r, nil
}

// Channels returns the channel table in registration order.
func (r *Registry) Channels() []ChannelSpec {
	out := make([]ChannelSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Lookup returns the table entry for id.
func (r *Registry) Lookup(id ChannelID) (ChannelSpec, error) {
	spec, ok := r.byID[id]
	if !ok {
		return ChannelSpec{}, fmt.Errorf("%w: %d", ErrUnknownChannel, id)
	}
	return spec, nil
}

// PollEdge runs the edge detector of an edge channel.
func (r *Registry) PollEdge(id ChannelID, raw bool) (bool, error) {
	if err := r.expect(id, KindEdge); err != nil {
		return false, err
	}
	return r.count(id, r.edges[id].Poll(raw)), nil
}

// PollRotation runs the rotation counter of a rotation channel.
func (r *Registry) PollRotation(id ChannelID, target int, raw bool) (bool, error) {
	if err := r.expect(id, KindRotation); err != nil {
		return false, err
	}
	return r.count(id, r.rotations[id].Poll(target, raw)), nil
}

// RotationCount returns the edges accumulated towards the next completion.
func (r *Registry) RotationCount(id ChannelID) (int, error) {
	if err := r.expect(id, KindRotation); err != nil {
		return 0, err
	}
	return r.rotations[id].Count(), nil
}

// ObserveToggle records a raw toggle sample without affecting TogglePulled.
func (r *Registry) ObserveToggle(id ChannelID, raw bool) error {
	if err := r.expect(id, KindToggle); err != nil {
		return err
	}
	r.toggles[id].Observe(raw)
	return nil
}

// ToggleLevel returns the last observed raw level of a toggle channel.
func (r *Registry) ToggleLevel(id ChannelID) (bool, error) {
	if err := r.expect(id, KindToggle); err != nil {
		return false, err
	}
	return r.toggles[id].Level(), nil
}

// TogglePulled runs the one-shot edge of a toggle channel.
func (r *Registry) TogglePulled(id ChannelID, raw bool) (bool, error) {
	if err := r.expect(id, KindToggle); err != nil {
		return false, err
	}
	return r.count(id, r.toggles[id].Pulled(raw)), nil
}

func (r *Registry) expect(id ChannelID, kind ChannelKind) error {
	spec, err := r.Lookup(id)
	if err != nil {
		return err
	}
	if spec.Kind != kind {
		return fmt.Errorf("%w: %s is %s, not %s", ErrKindMismatch, spec.Name, spec.Kind, kind)
	}
	return nil
}

func (r *Registry) count(id ChannelID, fired bool) bool {
	if fired {
		r.counts[id]++
	}
	return fired
}

// EventCountsSnapshot returns a copy of the per-channel event counts.
func (r *Registry) EventCountsSnapshot() EventCounts {
	out := make(EventCounts, len(r.counts))
	for id, n := range r.counts {
		out[id] = n
	}
	return out
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (r *Registry) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(r.lastHeartbeat) < interval {
		return nil
	}

	r.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(r.startTime),
		Counts:    r.EventCountsSnapshot(),
	}
}
