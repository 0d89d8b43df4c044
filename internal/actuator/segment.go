package actuator

import (
	"fmt"

	"github.com/sweeney/mono-kit/internal/gpio"
)

// Segment bits.
const (
	SegL1    byte = 0x01 // upper left
	SegL2    byte = 0x02 // lower left
	SegC1    byte = 0x04 // top
	SegC2    byte = 0x08 // middle
	SegC3    byte = 0x10 // bottom
	SegR1    byte = 0x20 // upper right
	SegR2    byte = 0x40 // lower right
	SegPoint byte = 0x80
)

// Digits maps 0..9 to segment masks.
var Digits = [10]byte{
	SegL1 | SegL2 | SegC1 | SegC3 | SegR1 | SegR2,
	SegR1 | SegR2,
	SegL2 | SegC1 | SegC2 | SegC3 | SegR1,
	SegC1 | SegC2 | SegC3 | SegR1 | SegR2,
	SegL1 | SegC2 | SegR1 | SegR2,
	SegL1 | SegC1 | SegC2 | SegC3 | SegR2,
	SegL1 | SegL2 | SegC1 | SegC2 | SegC3 | SegR2,
	SegL1 | SegC1 | SegR1 | SegR2,
	SegL1 | SegL2 | SegC1 | SegC2 | SegC3 | SegR1 | SegR2,
	SegL1 | SegC1 | SegC2 | SegC3 | SegR1 | SegR2,
}

// Letters maps the hex digits A..F to segment masks.
var Letters = map[rune]byte{
	'A': SegL1 | SegL2 | SegC1 | SegC2 | SegR1 | SegR2,
	'B': SegL1 | SegL2 | SegC2 | SegC3 | SegR2,
	'C': SegL2 | SegC2 | SegC3,
	'D': SegL2 | SegC2 | SegC3 | SegR1 | SegR2,
	'E': SegL1 | SegL2 | SegC1 | SegC2 | SegC3,
	'F': SegL1 | SegL2 | SegC1 | SegC2,
}

// Segment drives the 7-segment display. Its lines are shared with the
// stepper; seg_mode high routes them to the display.
type Segment struct {
	lines   [8]gpio.DigitalOutput
	segMode gpio.DigitalOutput
	mode    gpio.DigitalOutput
	lock    *gpio.CommitLock
	last    byte
}

// NewSegment opens the 7-segment lines.
func NewSegment(board gpio.Board, lock *gpio.CommitLock) (*Segment, error) {
	lines, err := openOutputs(board,
		gpio.PinSegL1, gpio.PinSegL2, gpio.PinSegC1, gpio.PinSegC2,
		gpio.PinSegC3, gpio.PinSegR1, gpio.PinSegR2, gpio.PinSegPoint,
		gpio.PinSegMode, gpio.PinMode)
	if err != nil {
		return nil, err
	}
	s := &Segment{segMode: lines[8], mode: lines[9], lock: lock}
	copy(s.lines[:], lines[:8])
	return s, nil
}

// Write shows mask (bit i = segment line i).
func (s *Segment) Write(mask byte) error {
	err := s.lock.Atomic(func() error {
		for i, line := range s.lines {
			if err := line.Write(mask&(1<<i) != 0); err != nil {
				return fmt.Errorf("segment line %d: %w", i, err)
			}
		}
		if err := s.segMode.Write(true); err != nil {
			return fmt.Errorf("segment enable: %w", err)
		}
		return s.mode.Write(false)
	})
	if err != nil {
		return err
	}
	s.last = mask
	return nil
}

// Digit shows n, clamped to 0..9.
func (s *Segment) Digit(n int) error {
	return s.Write(Digits[clamp(n, 0, 9)])
}

// Hex shows n as a hex digit: 0..9 from Digits, 10..15 from Letters.
func (s *Segment) Hex(n int) error {
	if n < 0 || n > 15 {
		return fmt.Errorf("segment: hex digit %d out of range", n)
	}
	if n < 10 {
		return s.Write(Digits[n])
	}
	return s.Write(Letters[rune('A'+n-10)])
}

// Off blanks the display.
func (s *Segment) Off() error {
	err := s.lock.Atomic(func() error {
		return s.segMode.Write(false)
	})
	if err != nil {
		return fmt.Errorf("segment disable: %w", err)
	}
	s.last = 0
	return nil
}

// Last returns the last mask shown.
func (s *Segment) Last() byte {
	return s.last
}

// ScalePot maps a 0..1023 potentiometer reading onto a digit 0..9.
func ScalePot(raw int) int {
	raw = clamp(raw, 0, gpio.AnalogMax)
	return raw * 9 / gpio.AnalogMax
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
