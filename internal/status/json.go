package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Ready         bool            `json:"ready"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Inputs        map[string]bool `json:"inputs"`
	Counts        map[string]int  `json:"event_counts"`
	Rotation      RotationJSON    `json:"rotation"`
	Matrix        MatrixJSON      `json:"matrix"`
	Analog        AnalogJSON      `json:"analog"`
	Actuators     ActuatorsJSON   `json:"actuators"`
	Config        ConfigJSON      `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// RotationJSON is the photo-interrupter's rotation progress.
type RotationJSON struct {
	Count  int `json:"count"`
	Target int `json:"target"`
}

// MatrixJSON describes what the LED matrix is showing.
type MatrixJSON struct {
	Pattern string   `json:"pattern"`
	Frame   []string `json:"frame,omitempty"`
	Pinned  bool     `json:"pinned"`
	Mode    string   `json:"mode"`
	Sweeps  uint64   `json:"sweeps"`
	Commits uint64   `json:"commits"`
}

// AnalogJSON holds the last analog readings.
type AnalogJSON struct {
	Pot       int `json:"pot"`
	Digit     int `json:"digit"`
	JoystickX int `json:"joystick_x"`
	JoystickY int `json:"joystick_y"`
}

// ActuatorsJSON holds the last commanded actuator values.
type ActuatorsJSON struct {
	Servo        int    `json:"servo"`
	DC           string `json:"dc"`
	StepperPhase int    `json:"stepper_phase"`
	Buzzer       bool   `json:"buzzer"`
	BarLines     int    `json:"bar_lines"`
	BarColor     int    `json:"bar_color"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs         int64  `json:"poll_ms"`
	DebounceMode   string `json:"debounce_mode"`
	DebounceUs     int64  `json:"debounce_us"`
	RenderMode     string `json:"render_mode"`
	RotationTarget int    `json:"rotation_target"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	Broker         string `json:"broker"`
	HTTPPort       string `json:"http_port"`
	Chip           string `json:"chip,omitempty"`
	Simulated      bool   `json:"simulated,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	k := snap.Kit

	inputs := k.Levels
	if inputs == nil {
		inputs = map[string]bool{}
	}
	counts := k.Counts
	if counts == nil {
		counts = map[string]int{}
	}
	target := k.RotationTarget
	if target == 0 {
		target = snap.Config.RotationTarget
	}

	return StatusInner{
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Inputs:        inputs,
		Counts:        counts,
		Rotation:      RotationJSON{Count: k.RotationCount, Target: target},
		Matrix: MatrixJSON{
			Pattern: k.Pattern,
			Frame:   k.Frame,
			Pinned:  k.Pinned,
			Mode:    k.RenderMode,
			Sweeps:  k.Sweeps,
			Commits: k.Commits,
		},
		Analog: AnalogJSON{Pot: k.Pot, Digit: k.Digit, JoystickX: k.JoystickX, JoystickY: k.JoystickY},
		Actuators: ActuatorsJSON{
			Servo:        k.Servo,
			DC:           k.DC,
			StepperPhase: k.StepperPhase,
			Buzzer:       k.Buzzer,
			BarLines:     k.BarLines,
			BarColor:     k.BarColor,
		},
		Config: ConfigJSON{
			PollMs:         snap.Config.PollMs,
			DebounceMode:   snap.Config.DebounceMode,
			DebounceUs:     snap.Config.DebounceUs,
			RenderMode:     snap.Config.RenderMode,
			RotationTarget: snap.Config.RotationTarget,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			Broker:         snap.Config.Broker,
			HTTPPort:       snap.Config.HTTPPort,
			Chip:           snap.Config.Chip,
			Simulated:      snap.Config.Simulated,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
