// Package status provides a thread-safe status tracker for the mono-kit
// daemon. The control loop writes it; HTTP handlers and MQTT system events
// read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/mono-kit/internal/kit"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs         int64
	DebounceMode   string
	DebounceUs     int64
	RenderMode     string
	RotationTarget int
	HeartbeatMs    int64
	Broker         string
	HTTPPort       string
	Chip           string
	Simulated      bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; the maps inside Kit are replaced, never mutated, by
// Update, so it stays safe to use after the lock is released.
type Snapshot struct {
	Kit           kit.State
	Ready         bool // at least one loop iteration has completed
	Steps         uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update stores the kit state after a loop iteration.
func (t *Tracker) Update(state kit.State) {
	t.mu.Lock()
	t.snap.Kit = state
	t.snap.Ready = true
	t.snap.Steps++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
