package kit

import (
	"errors"
	"fmt"
	"io"

	"github.com/sweeney/mono-kit/internal/actuator"
	"github.com/sweeney/mono-kit/internal/logic"
)

// State is a copy of everything the kit last observed or commanded.
type State struct {
	Levels         map[string]bool
	Counts         map[string]int
	RotationCount  int
	RotationTarget int
	Pattern        string
	Frame          []string
	Pinned         bool
	RenderMode     string
	Sweeps         uint64
	Commits        uint64
	Pot            int
	JoystickX      int
	JoystickY      int
	Digit          int
	Servo          int
	DC             string
	StepperPhase   int
	Buzzer         bool
	BarLines       int
	BarColor       int
}

// State returns a snapshot of the kit. Levels are the last samples taken;
// nothing is read from the pins.
func (k *Kit) State() State {
	s := State{
		Levels:         make(map[string]bool, len(k.levels)),
		Counts:         make(map[string]int, len(k.levels)),
		RotationTarget: k.cfg.RotationTarget,
		Pattern:        k.pattern,
		Frame:          k.frame.Lines(),
		Pinned:         k.pinned != "",
		RenderMode:     k.cfg.Mode.String(),
		Sweeps:         k.renderer.Sweeps(),
		Commits:        k.lock.Commits(),
		Pot:            k.potRaw,
		JoystickX:      k.joy[0],
		JoystickY:      k.joy[1],
		Digit:          k.digit,
		Servo:          k.actuators.Servo.Angle(),
		DC:             string(k.actuators.DC.Last()),
		StepperPhase:   k.actuators.Stepper.Phase(),
	}
	counts := k.registry.EventCountsSnapshot()
	for _, spec := range k.registry.Channels() {
		s.Levels[spec.Name] = k.levels[spec.ID]
		s.Counts[spec.Name] = counts[spec.ID]
		if spec.Kind == logic.KindRotation {
			// Only one rotation channel exists on the kit.
			s.RotationCount, _ = k.registry.RotationCount(spec.ID)
		}
	}
	s.Buzzer, _ = k.actuators.Buzzer.Sounding()
	lines, color := k.actuators.Bar.Last()
	s.BarLines, s.BarColor = lines, int(color)
	return s
}

// ReadLevels samples every input once without feeding the input engine.
func (k *Kit) ReadLevels() (map[string]bool, error) {
	out := make(map[string]bool, len(k.inputs))
	var errs []error
	for _, spec := range k.registry.Channels() {
		level, err := k.read(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[spec.Name] = level
	}
	return out, errors.Join(errs...)
}

// ReadAnalogs samples the pot and joystick. Missing channels read as -1.
func (k *Kit) ReadAnalogs() (pot, x, y int, err error) {
	var errs []error
	read := func(name string, in interface{ ReadAnalog() (int, error) }) int {
		if in == nil {
			return -1
		}
		v, err := in.ReadAnalog()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return -1
		}
		return v
	}
	pot = read("pot", k.pot)
	x = read("joystick_x", k.joyX)
	y = read("joystick_y", k.joyY)
	return pot, x, y, errors.Join(errs...)
}

// PrintState writes every input level and analog reading, one per line.
func (k *Kit) PrintState(w io.Writer) error {
	levels, err := k.ReadLevels()
	for _, spec := range k.registry.Channels() {
		level, ok := levels[spec.Name]
		if !ok {
			fmt.Fprintf(w, "%-10s error\n", spec.Name)
			continue
		}
		fmt.Fprintf(w, "%-10s %s\n", spec.Name, onOff(level))
	}

	pot, x, y, aerr := k.ReadAnalogs()
	fmt.Fprintf(w, "%-10s %d (digit %d)\n", "pot", pot, actuator.ScalePot(pot))
	fmt.Fprintf(w, "%-10s %d,%d\n", "joystick", x, y)
	return errors.Join(err, aerr)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
