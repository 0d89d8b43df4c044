package actuator

import (
	"fmt"
	"strings"

	"github.com/sweeney/mono-kit/internal/gpio"
)

// BarLines is the number of segments on the LED bar.
const BarLines = 10

// Color is an RGB mask for the LED bar.
type Color byte

const (
	ColorRed     Color = 0x1
	ColorGreen   Color = 0x2
	ColorBlue    Color = 0x4
	ColorWhite         = ColorRed | ColorGreen | ColorBlue
	ColorCyan          = ColorGreen | ColorBlue
	ColorYellow        = ColorRed | ColorGreen
	ColorMagenta       = ColorRed | ColorBlue
	ColorOff     Color = 0
)

var colorNames = map[string]Color{
	"R": ColorRed, "G": ColorGreen, "B": ColorBlue, "W": ColorWhite,
	"C": ColorCyan, "Y": ColorYellow, "M": ColorMagenta, "K": ColorOff,
}

// ParseColor parses one of RGBWCYMK. Empty means off.
func ParseColor(s string) (Color, error) {
	if s == "" {
		return ColorOff, nil
	}
	c, ok := colorNames[strings.ToUpper(s)]
	if !ok {
		return 0, fmt.Errorf("unknown colour %q", s)
	}
	return c, nil
}

// Bar drives the 10-segment LED bar. The colour lines are common-anode:
// a colour is lit by pulling its line low.
type Bar struct {
	lines     [BarLines]gpio.DigitalOutput
	red       gpio.DigitalOutput
	green     gpio.DigitalOutput
	blue      gpio.DigitalOutput
	lastLines int
	lastColor Color
}

// NewBar opens the LED bar lines.
func NewBar(board gpio.Board) (*Bar, error) {
	names := make([]string, 0, BarLines+3)
	for n := 1; n <= BarLines; n++ {
		names = append(names, gpio.BarPinName(n))
	}
	names = append(names, gpio.PinLEDRed, gpio.PinLEDGreen, gpio.PinLEDBlue)

	lines, err := openOutputs(board, names...)
	if err != nil {
		return nil, err
	}
	b := &Bar{red: lines[BarLines], green: lines[BarLines+1], blue: lines[BarLines+2]}
	copy(b.lines[:], lines[:BarLines])
	return b, nil
}

// Write lights the segments in mask (bit 0 = segment 1) in color.
func (b *Bar) Write(mask int, color Color) error {
	mask &= 1<<BarLines - 1
	for i, line := range b.lines {
		if err := line.Write(mask&(1<<i) != 0); err != nil {
			return fmt.Errorf("bar line %d: %w", i+1, err)
		}
	}
	for _, c := range []struct {
		line gpio.DigitalOutput
		bit  Color
	}{{b.red, ColorRed}, {b.green, ColorGreen}, {b.blue, ColorBlue}} {
		if err := c.line.Write(color&c.bit == 0); err != nil {
			return fmt.Errorf("bar colour: %w", err)
		}
	}
	b.lastLines, b.lastColor = mask, color
	return nil
}

// Last returns the last line mask and colour.
func (b *Bar) Last() (int, Color) {
	return b.lastLines, b.lastColor
}
