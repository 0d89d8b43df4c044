//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealBoard opens lines on an actual GPIO chip using the Linux GPIO character
// device. Lines that share an offset (multiplexed peripherals) are requested
// once and shared.
type RealBoard struct {
	chip    *gpiocdev.Chip
	inputs  []PinSpec
	outputs []PinSpec
	analogs []AnalogSpec
	pwms    []PWMSpec
	lines   map[int]*gpiocdev.Line
	inLines map[int]*gpiocdev.Line
}

// NewRealBoard opens the named chip with the given pin tables.
func NewRealBoard(chipName string, inputs, outputs []PinSpec, analogs []AnalogSpec, pwms []PWMSpec) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	return &RealBoard{
		chip:    chip,
		inputs:  inputs,
		outputs: outputs,
		analogs: analogs,
		pwms:    pwms,
		lines:   make(map[int]*gpiocdev.Line),
		inLines: make(map[int]*gpiocdev.Line),
	}, nil
}

// Input requests the named input line with pull-down bias.
func (b *RealBoard) Input(name string) (DigitalInput, error) {
	spec, ok := Lookup(b.inputs, name)
	if !ok {
		return nil, fmt.Errorf("input %q not in pin table", name)
	}
	if line, ok := b.inLines[spec.Offset]; ok {
		return &realInput{line: line}, nil
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	if spec.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := b.chip.RequestLine(spec.Offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s pin %d: %w", name, spec.Offset, err)
	}
	b.inLines[spec.Offset] = line
	return &realInput{line: line}, nil
}

// Output requests the named output line, initially low.
func (b *RealBoard) Output(name string) (DigitalOutput, error) {
	spec, ok := Lookup(b.outputs, name)
	if !ok {
		return nil, fmt.Errorf("output %q not in pin table", name)
	}
	if line, ok := b.lines[spec.Offset]; ok {
		return &realOutput{line: line}, nil
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if spec.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := b.chip.RequestLine(spec.Offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s pin %d: %w", name, spec.Offset, err)
	}
	b.lines[spec.Offset] = line
	return &realOutput{line: line}, nil
}

// Analog opens the named IIO channel.
func (b *RealBoard) Analog(name string) (AnalogInput, error) {
	for _, spec := range b.analogs {
		if spec.Name == name {
			return NewSysfsAnalog(spec), nil
		}
	}
	return nil, fmt.Errorf("analog %q not in pin table", name)
}

// PWM exports the named PWM channel.
func (b *RealBoard) PWM(name string) (PWMOutput, error) {
	for _, spec := range b.pwms {
		if spec.Name == name {
			return NewSysfsPWM(spec)
		}
	}
	return nil, fmt.Errorf("pwm %q not in pin table", name)
}

// Close releases GPIO resources.
// Outputs are driven low and every line is reconfigured as input with
// pull-down before closing, leaving the header in its boot default state.
func (b *RealBoard) Close() error {
	var errs []error

	for offset, line := range b.lines {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear pin %d: %w", offset, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", offset, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", offset, err))
		}
	}
	for offset, line := range b.inLines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", offset, err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}

type realInput struct {
	line *gpiocdev.Line
}

// Read returns the logical level; active-low lines are inverted by the kernel.
func (r *realInput) Read() (bool, error) {
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", r.line.Offset(), err)
	}
	return v == 1, nil
}

type realOutput struct {
	line *gpiocdev.Line
}

func (r *realOutput) Write(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("write pin %d: %w", r.line.Offset(), err)
	}
	return nil
}
