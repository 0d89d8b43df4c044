package actuator

import (
	"fmt"
	"strings"

	"github.com/sweeney/mono-kit/internal/gpio"
)

// Stepper drives a 4-phase stepping motor one phase per call. Its phase
// lines are shared with the 7-segment display; the mode line commits them
// to the motor latch.
type Stepper struct {
	phases  [4]gpio.DigitalOutput
	mode    gpio.DigitalOutput
	segMode gpio.DigitalOutput
	lock    *gpio.CommitLock
	phase   int
	steps   int
}

// NewStepper opens the stepper lines.
func NewStepper(board gpio.Board, lock *gpio.CommitLock) (*Stepper, error) {
	lines, err := openOutputs(board, gpio.PinStepper1, gpio.PinStepper2, gpio.PinStepper3, gpio.PinStepper4, gpio.PinMode, gpio.PinSegMode)
	if err != nil {
		return nil, err
	}
	return &Stepper{
		phases:  [4]gpio.DigitalOutput{lines[0], lines[1], lines[2], lines[3]},
		mode:    lines[4],
		segMode: lines[5],
		lock:    lock,
	}, nil
}

// phaseLevels returns the coil levels for phase 1..4. Reverse swaps coils
// 2 and 4 on the even phases.
func phaseLevels(phase int, reverse bool) [4]bool {
	switch phase {
	case 1:
		return [4]bool{true, false, false, false}
	case 2:
		return [4]bool{false, !reverse, false, reverse}
	case 3:
		return [4]bool{false, false, true, false}
	default:
		return [4]bool{false, reverse, false, !reverse}
	}
}

// Step advances one phase and commits it.
func (s *Stepper) Step(reverse bool) error {
	next := s.phase%4 + 1
	levels := phaseLevels(next, reverse)

	err := s.lock.Atomic(func() error {
		if err := s.mode.Write(true); err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		for i, line := range s.phases {
			if err := line.Write(levels[i]); err != nil {
				return fmt.Errorf("phase %d coil %d: %w", next, i+1, err)
			}
		}
		if err := gpio.Pulse(s.mode); err != nil {
			return err
		}
		// Phase lines are shared with the 7-segment; keep it dark.
		return s.segMode.Write(false)
	})
	if err != nil {
		return err
	}
	s.phase = next
	s.steps++
	return nil
}

// Phase returns the last committed phase (0 before the first step).
func (s *Stepper) Phase() int {
	return s.phase
}

// Steps returns how many steps were committed.
func (s *Stepper) Steps() int {
	return s.steps
}

// DCAction is a DC motor H-bridge command.
type DCAction string

const (
	DCLeft  DCAction = "LT" // counter-clockwise
	DCRight DCAction = "RT" // clockwise
	DCStop  DCAction = "S"  // brake
	DCFree  DCAction = "F"  // coast
)

// ParseDCAction parses LT/RT/S/F, case-insensitively.
func ParseDCAction(s string) (DCAction, error) {
	switch a := DCAction(strings.ToUpper(s)); a {
	case DCLeft, DCRight, DCStop, DCFree:
		return a, nil
	default:
		return "", fmt.Errorf("unknown dc action %q", s)
	}
}

// DCMotor drives a DC motor through two H-bridge inputs.
type DCMotor struct {
	in1, in2 gpio.DigitalOutput
	mode     gpio.DigitalOutput
	segMode  gpio.DigitalOutput
	lock     *gpio.CommitLock
	last     DCAction
}

// NewDCMotor opens the DC motor lines.
func NewDCMotor(board gpio.Board, lock *gpio.CommitLock) (*DCMotor, error) {
	lines, err := openOutputs(board, gpio.PinDC1, gpio.PinDC2, gpio.PinMode, gpio.PinSegMode)
	if err != nil {
		return nil, err
	}
	return &DCMotor{in1: lines[0], in2: lines[1], mode: lines[2], segMode: lines[3], lock: lock, last: DCFree}, nil
}

// Set commits action to the H-bridge.
func (m *DCMotor) Set(action DCAction) error {
	var a, b bool
	switch action {
	case DCLeft:
		a = true
	case DCRight:
		b = true
	case DCStop:
		a, b = true, true
	case DCFree:
	default:
		return fmt.Errorf("unknown dc action %q", action)
	}

	err := m.lock.Atomic(func() error {
		if err := m.in1.Write(a); err != nil {
			return fmt.Errorf("dc in1: %w", err)
		}
		if err := m.in2.Write(b); err != nil {
			return fmt.Errorf("dc in2: %w", err)
		}
		if err := gpio.Pulse(m.mode); err != nil {
			return err
		}
		return m.segMode.Write(false)
	})
	if err != nil {
		return err
	}
	m.last = action
	return nil
}

// Last returns the last committed action.
func (m *DCMotor) Last() DCAction {
	return m.last
}
