// Package matrix drives an 8x8 LED matrix through a row/column multiplexed
// shift-register bus.
package matrix

import (
	"fmt"
	"strings"
)

// Rows is the number of scan lines in a frame.
const Rows = 8

// Pattern is one frame: byte i is the column mask for scan line i, shifted
// out MSB-first.
type Pattern [Rows]byte

// Built-in patterns.
var (
	Blank = Pattern{}
	Left  = Pattern{0b00011000, 0b00011000, 0b00011000, 0b00011000, 0b11111111, 0b01111110, 0b00111100, 0b00011000}
	Right = Pattern{0b00011000, 0b00111100, 0b01111110, 0b11111111, 0b00011000, 0b00011000, 0b00011000, 0b00011000}
	Up    = Pattern{0b00001000, 0b00001100, 0b00001110, 0b11111111, 0b11111111, 0b00001110, 0b00001100, 0b00001000}
	Down  = Pattern{0b00010000, 0b00110000, 0b01110000, 0b11111111, 0b11111111, 0b01110000, 0b00110000, 0b00010000}
)

// Pattern names used by the library and the joystick selector.
const (
	NameBlank = "blank"
	NameLeft  = "left"
	NameRight = "right"
	NameUp    = "up"
	NameDown  = "down"
)

// LeftBar returns the frame with only line n (1..8, counted from the left
// edge) fully lit.
func LeftBar(n int) Pattern {
	var p Pattern
	if n >= 1 && n <= Rows {
		p[Rows-n] = 0xFF
	}
	return p
}

// UpBar returns the frame with only bit n-1 (1..8) lit on every line.
func UpBar(n int) Pattern {
	var p Pattern
	if n >= 1 && n <= Rows {
		for i := range p {
			p[i] = 1 << (n - 1)
		}
	}
	return p
}

// ParsePattern builds a pattern from eight rows of '0'/'1' characters,
// MSB first. Spaces and underscores are ignored so rows can be grouped.
func ParsePattern(rows []string) (Pattern, error) {
	var p Pattern
	if len(rows) != Rows {
		return p, fmt.Errorf("pattern needs %d rows, got %d", Rows, len(rows))
	}
	for i, row := range rows {
		row = strings.NewReplacer(" ", "", "_", "").Replace(row)
		if len(row) != 8 {
			return p, fmt.Errorf("row %d: need 8 bits, got %q", i, row)
		}
		var b byte
		for _, c := range row {
			b <<= 1
			switch c {
			case '1', '#':
				b |= 1
			case '0', '.':
			default:
				return p, fmt.Errorf("row %d: invalid character %q", i, c)
			}
		}
		p[i] = b
	}
	return p, nil
}

// String renders the pattern as eight rows of '0'/'1'.
func (p Pattern) String() string {
	var sb strings.Builder
	for i, b := range p {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%08b", b)
	}
	return sb.String()
}

// Lines returns the pattern as eight '0'/'1' strings.
func (p Pattern) Lines() []string {
	return strings.Split(p.String(), "\n")
}
