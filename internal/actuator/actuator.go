// Package actuator holds the kit's output wrappers. Each one only remembers
// the last value it was commanded; none has a state machine of its own.
// Wrappers that commit through the shared mode line do so under the same
// CommitLock as the matrix renderer.
package actuator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/mono-kit/internal/gpio"
	"github.com/sweeney/mono-kit/internal/logging"
)

var (
	// ErrUnknownActuator is returned for commands naming no actuator.
	ErrUnknownActuator = errors.New("unknown actuator")
	// ErrUnavailable is returned for commands to an actuator the board
	// could not open.
	ErrUnavailable = errors.New("actuator unavailable")
)

// Actuator names accepted in commands.
const (
	NameStepper = "stepper"
	NameDC      = "dc"
	NameBuzzer  = "buzzer"
	NameServo   = "servo"
	NameSegment = "seg"
	NameBar     = "bar"
)

// Command is one remote actuator request.
type Command struct {
	Actuator string
	// Value is the numeric argument: servo angle, segment mask or digit,
	// bar line mask.
	Value int
	// Action is the symbolic argument: DC action (LT/RT/S/F), buzzer tone
	// (LO/MI/HI), bar colour (R/G/B/W/C/Y/M/K), or "digit" / "hex" for the
	// segment.
	Action   string
	Reverse  bool
	Steps    int
	Duration time.Duration
}

// Registry opens and owns every actuator on the board. Servo and Buzzer sit
// on hardware PWM and are nil when the board has no PWM channel for them.
type Registry struct {
	Stepper *Stepper
	DC      *DCMotor
	Buzzer  *Buzzer
	Servo   *Servo
	Segment *Segment
	Bar     *Bar
}

// NewRegistry opens all actuator lines on board. Commits are taken under lock.
// A missing PWM channel is logged and leaves that actuator nil.
func NewRegistry(board gpio.Board, lock *gpio.CommitLock) (*Registry, error) {
	log := logging.GetLogger("actuator")
	var err error
	r := &Registry{}

	if r.Stepper, err = NewStepper(board, lock); err != nil {
		return nil, fmt.Errorf("stepper: %w", err)
	}
	if r.DC, err = NewDCMotor(board, lock); err != nil {
		return nil, fmt.Errorf("dc motor: %w", err)
	}
	if r.Buzzer, err = NewBuzzer(board); err != nil {
		log.Warn("buzzer unavailable", "error", err)
		r.Buzzer = nil
	}
	if r.Servo, err = NewServo(board); err != nil {
		log.Warn("servo unavailable", "error", err)
		r.Servo = nil
	}
	if r.Segment, err = NewSegment(board, lock); err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	if r.Bar, err = NewBar(board); err != nil {
		return nil, fmt.Errorf("bar: %w", err)
	}
	return r, nil
}

// Apply executes cmd. now is used for timed outputs (buzzer).
func (r *Registry) Apply(cmd Command, now time.Time) error {
	switch strings.ToLower(cmd.Actuator) {
	case NameStepper:
		steps := cmd.Steps
		if steps < 1 {
			steps = 1
		}
		for i := 0; i < steps; i++ {
			if err := r.Stepper.Step(cmd.Reverse); err != nil {
				return err
			}
		}
		return nil
	case NameDC:
		action, err := ParseDCAction(cmd.Action)
		if err != nil {
			return err
		}
		return r.DC.Set(action)
	case NameBuzzer:
		if r.Buzzer == nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, NameBuzzer)
		}
		tone, err := ParseTone(cmd.Action)
		if err != nil {
			return err
		}
		return r.Buzzer.Buzz(tone, cmd.Duration, now)
	case NameServo:
		if r.Servo == nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, NameServo)
		}
		return r.Servo.Write(cmd.Value)
	case NameSegment:
		switch strings.ToLower(cmd.Action) {
		case "digit":
			return r.Segment.Digit(cmd.Value)
		case "hex":
			return r.Segment.Hex(cmd.Value)
		}
		return r.Segment.Write(byte(cmd.Value))
	case NameBar:
		color, err := ParseColor(cmd.Action)
		if err != nil {
			return err
		}
		return r.Bar.Write(cmd.Value, color)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownActuator, cmd.Actuator)
	}
}

// Update expires timed outputs.
func (r *Registry) Update(now time.Time) error {
	if r.Buzzer == nil {
		return nil
	}
	return r.Buzzer.Update(now)
}

// Off stops every actuator: motor free-running, buzzer silent, displays dark.
func (r *Registry) Off() error {
	errs := []error{
		r.DC.Set(DCFree),
		r.Segment.Off(),
		r.Bar.Write(0, ColorOff),
	}
	if r.Buzzer != nil {
		errs = append(errs, r.Buzzer.Stop())
	}
	return errors.Join(errs...)
}

func openOutputs(board gpio.Board, names ...string) ([]gpio.DigitalOutput, error) {
	out := make([]gpio.DigitalOutput, len(names))
	for i, name := range names {
		line, err := board.Output(name)
		if err != nil {
			return nil, err
		}
		out[i] = line
	}
	return out, nil
}
