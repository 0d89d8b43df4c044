// Package kit binds the kit's hardware to the input engine, the matrix
// renderer and the actuators. A Kit is owned by the control loop: it is the
// only thing that reads or writes pins, and it is not safe for concurrent use.
package kit

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sweeney/mono-kit/internal/actuator"
	"github.com/sweeney/mono-kit/internal/gpio"
	"github.com/sweeney/mono-kit/internal/logging"
	"github.com/sweeney/mono-kit/internal/logic"
	"github.com/sweeney/mono-kit/internal/matrix"
)

// Command names handled by the kit itself rather than an actuator.
const (
	CommandPattern  = "pattern"  // Action: pattern name; "" or "auto" follows the joystick
	CommandRotation = "rotation" // Value: new rotation target
)

// Config holds the kit's behaviour settings.
type Config struct {
	// Channels is the input channel table. Every name must have an input pin.
	Channels []logic.ChannelSpec
	// Debounce applies to switch channels (edge and toggle). Rotation
	// channels are never delayed; the photo-interrupter does not bounce.
	Debounce logic.Debounce
	// RotationTarget is the edge count that completes one rotation.
	RotationTarget int
	// Mode selects caller- or self-timed rendering.
	Mode matrix.Mode
}

// DefaultConfig returns the kit's defaults.
func DefaultConfig() Config {
	return Config{
		Channels:       logic.DefaultChannels,
		Debounce:       logic.FixedDelay(60 * time.Microsecond),
		RotationTarget: 1,
		Mode:           matrix.CallerTimed(),
	}
}

// Kit is the complete peripheral set.
type Kit struct {
	cfg       Config
	board     gpio.Board
	registry  *logic.Registry
	inputs    map[logic.ChannelID]gpio.DigitalInput
	pot       gpio.AnalogInput
	joyX      gpio.AnalogInput
	joyY      gpio.AnalogInput
	lock      *gpio.CommitLock
	renderer  *matrix.Renderer
	library   *matrix.Library
	actuators *actuator.Registry
	settle    func(time.Duration)

	rendererOpts []matrix.Option

	levels  map[logic.ChannelID]bool
	pinned  string
	pattern string
	frame   matrix.Pattern
	digit   int
	potRaw  int
	joy     [2]int
}

// Option configures a Kit.
type Option func(*Kit)

// WithSettle replaces the busy-wait used by fixed-delay debouncing.
func WithSettle(fn func(time.Duration)) Option {
	return func(k *Kit) {
		k.settle = fn
	}
}

// WithLibrary shares a pattern library with the kit.
func WithLibrary(l *matrix.Library) Option {
	return func(k *Kit) {
		k.library = l
	}
}

// WithRendererOptions passes options to the matrix renderer.
func WithRendererOptions(opts ...matrix.Option) Option {
	return func(k *Kit) {
		k.rendererOpts = opts
	}
}

// New opens every line the kit needs on board. Analog channels are optional:
// a board without them runs with a blank joystick pattern and no pot display.
func New(board gpio.Board, cfg Config, startTime time.Time, opts ...Option) (*Kit, error) {
	log := logging.GetLogger("kit")

	if cfg.RotationTarget < 1 {
		cfg.RotationTarget = 1
	}
	registry, err := logic.NewRegistry(cfg.Channels, startTime)
	if err != nil {
		return nil, fmt.Errorf("channel table: %w", err)
	}

	k := &Kit{
		cfg:      cfg,
		board:    board,
		registry: registry,
		inputs:   make(map[logic.ChannelID]gpio.DigitalInput, len(cfg.Channels)),
		lock:     &gpio.CommitLock{},
		settle:   spinWait,
		levels:   make(map[logic.ChannelID]bool, len(cfg.Channels)),
		pattern:  matrix.NameBlank,
		digit:    -1,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.library == nil {
		k.library = matrix.NewLibrary()
	}

	for _, spec := range cfg.Channels {
		in, err := board.Input(spec.Name)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", spec.Name, err)
		}
		k.inputs[spec.ID] = in
	}

	lines := make([]gpio.DigitalOutput, 3)
	for i, name := range []string{gpio.PinSER, gpio.PinSRCLK, gpio.PinRCLK} {
		if lines[i], err = board.Output(name); err != nil {
			return nil, fmt.Errorf("matrix %s: %w", name, err)
		}
	}
	k.renderer = matrix.NewRenderer(gpio.NewPinBus(lines[0], lines[1], lines[2]), k.lock, k.rendererOpts...)

	if k.actuators, err = actuator.NewRegistry(board, k.lock); err != nil {
		return nil, err
	}

	k.pot = openAnalog(board, gpio.AnalogPot, log)
	k.joyX = openAnalog(board, gpio.AnalogJoystickX, log)
	k.joyY = openAnalog(board, gpio.AnalogJoystickY, log)

	return k, nil
}

func openAnalog(board gpio.Board, name string, log *slog.Logger) gpio.AnalogInput {
	in, err := board.Analog(name)
	if err != nil {
		log.Warn("analog input unavailable", "name", name, "error", err)
		return nil
	}
	return in
}

// spinWait busy-waits for d; settle delays are shorter than a scheduler
// wakeup.
func spinWait(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

// read samples one channel's pin, honouring the debounce settle time.
func (k *Kit) read(spec logic.ChannelSpec) (bool, error) {
	in, ok := k.inputs[spec.ID]
	if !ok {
		return false, fmt.Errorf("%w: %d", logic.ErrUnknownChannel, spec.ID)
	}
	if spec.Kind != logic.KindRotation {
		k.settle(k.cfg.Debounce.SettleTime())
	}
	level, err := in.Read()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", spec.Name, err)
	}
	k.levels[spec.ID] = level
	return level, nil
}

func (k *Kit) sample(id logic.ChannelID) (bool, error) {
	spec, err := k.registry.Lookup(id)
	if err != nil {
		return false, err
	}
	return k.read(spec)
}

// PollEdge samples an edge channel and reports a new press.
func (k *Kit) PollEdge(id logic.ChannelID) (bool, error) {
	raw, err := k.sample(id)
	if err != nil {
		return false, err
	}
	return k.registry.PollEdge(id, raw)
}

// PollRotation samples a rotation channel and reports a completed rotation.
func (k *Kit) PollRotation(id logic.ChannelID, target int) (bool, error) {
	raw, err := k.sample(id)
	if err != nil {
		return false, err
	}
	return k.registry.PollRotation(id, target, raw)
}

// ToggleLevel samples a toggle and returns its current position. It does not
// consume the toggle's pulled edge.
func (k *Kit) ToggleLevel(id logic.ChannelID) (bool, error) {
	raw, err := k.sample(id)
	if err != nil {
		return false, err
	}
	if err := k.registry.ObserveToggle(id, raw); err != nil {
		return false, err
	}
	return k.registry.ToggleLevel(id)
}

// TogglePulled samples a toggle and reports when it moves to the active side.
func (k *Kit) TogglePulled(id logic.ChannelID) (bool, error) {
	raw, err := k.sample(id)
	if err != nil {
		return false, err
	}
	return k.registry.TogglePulled(id, raw)
}

// Step runs one control-loop iteration: every channel is sampled exactly
// once, the display pattern is chosen and drawn, the pot is mirrored to the
// 7-segment and timed actuators are expired. I/O errors do not stop the
// step; they are returned joined alongside the events that did fire.
func (k *Kit) Step(now time.Time) ([]logic.Event, error) {
	var (
		events []logic.Event
		errs   []error
	)

	for _, spec := range k.registry.Channels() {
		raw, err := k.read(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		var fired bool
		ev := logic.Event{Timestamp: now, Channel: spec.ID, Name: spec.Name}
		switch spec.Kind {
		case logic.KindEdge:
			fired, err = k.registry.PollEdge(spec.ID, raw)
			ev.Type = logic.EventPressed
		case logic.KindRotation:
			fired, err = k.registry.PollRotation(spec.ID, k.cfg.RotationTarget, raw)
			ev.Type = logic.EventRotation
			ev.Target = k.cfg.RotationTarget
		case logic.KindToggle:
			fired, err = k.registry.TogglePulled(spec.ID, raw)
			ev.Type = logic.EventPulled
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if fired {
			events = append(events, ev)
		}
	}

	if err := k.actuators.Update(now); err != nil {
		errs = append(errs, err)
	}
	if err := k.syncPot(); err != nil {
		errs = append(errs, err)
	}
	if err := k.draw(); err != nil {
		errs = append(errs, err)
	}

	return events, errors.Join(errs...)
}

// draw renders the pinned pattern, or the joystick arrow when none is pinned.
func (k *Kit) draw() error {
	name, p := matrix.NameBlank, matrix.Blank
	if k.pinned != "" {
		if lp, ok := k.library.Get(k.pinned); ok {
			name, p = k.pinned, lp
		}
	} else if k.joyX != nil && k.joyY != nil {
		x, errX := k.joyX.ReadAnalog()
		y, errY := k.joyY.ReadAnalog()
		if err := errors.Join(errX, errY); err != nil {
			return fmt.Errorf("joystick: %w", err)
		}
		k.joy = [2]int{x, y}
		name, p = matrix.SelectArrow(x, y)
	}
	k.pattern, k.frame = name, p

	if _, err := k.renderer.Render(p, k.cfg.Mode); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}

// syncPot shows the pot position on the 7-segment when it moves to a new digit.
func (k *Kit) syncPot() error {
	if k.pot == nil {
		return nil
	}
	raw, err := k.pot.ReadAnalog()
	if err != nil {
		return fmt.Errorf("pot: %w", err)
	}
	k.potRaw = raw
	d := actuator.ScalePot(raw)
	if d == k.digit {
		return nil
	}
	if err := k.actuators.Segment.Digit(d); err != nil {
		return err
	}
	k.digit = d
	return nil
}

// Apply executes a remote command. Pattern and rotation commands are handled
// here; everything else goes to the actuators.
func (k *Kit) Apply(cmd actuator.Command, now time.Time) error {
	switch strings.ToLower(cmd.Actuator) {
	case CommandPattern:
		return k.Pin(cmd.Action)
	case CommandRotation:
		k.SetRotationTarget(cmd.Value)
		return nil
	default:
		return k.actuators.Apply(cmd, now)
	}
}

// Pin fixes the displayed pattern. An empty name or "auto" returns the
// display to the joystick.
func (k *Kit) Pin(name string) error {
	if name == "" || strings.EqualFold(name, "auto") {
		k.pinned = ""
		return nil
	}
	if _, ok := k.library.Get(name); !ok {
		return fmt.Errorf("unknown pattern %q", name)
	}
	k.pinned = name
	return nil
}

// SetRotationTarget changes the rotation target without resetting the count.
// Values below 1 are treated as 1.
func (k *Kit) SetRotationTarget(target int) {
	if target < 1 {
		target = 1
	}
	k.cfg.RotationTarget = target
}

// Shutdown blanks the matrix and stops every actuator.
func (k *Kit) Shutdown() error {
	return errors.Join(k.renderer.Clear(), k.actuators.Off())
}

// Close releases the board.
func (k *Kit) Close() error {
	return k.board.Close()
}

// Registry exposes the input engine, for heartbeats and counts.
func (k *Kit) Registry() *logic.Registry {
	return k.registry
}

// Renderer exposes the matrix renderer.
func (k *Kit) Renderer() *matrix.Renderer {
	return k.renderer
}

// Actuators exposes the actuator registry.
func (k *Kit) Actuators() *actuator.Registry {
	return k.actuators
}

// Library exposes the pattern library.
func (k *Kit) Library() *matrix.Library {
	return k.library
}
