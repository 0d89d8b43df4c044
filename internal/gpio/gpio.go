// Package gpio provides pin access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"strconv"
	"time"
)

// ErrNotSupported is returned by the real adapters on platforms without the
// Linux GPIO character device.
var ErrNotSupported = errors.New("gpio: not supported on this platform (requires Linux)")

// DigitalInput reads one logical input level.
// Active-low wiring is resolved by the adapter: true always means "active".
type DigitalInput interface {
	Read() (bool, error)
}

// DigitalOutput drives one output line.
type DigitalOutput interface {
	Write(high bool) error
}

// AnalogInput reads an analog channel scaled to 0..AnalogMax.
type AnalogInput interface {
	ReadAnalog() (int, error)
}

// AnalogMax is the full-scale analog reading (10-bit).
const AnalogMax = 1023

// SerialBitBus is a 3-wire shift-register bus (data, shift clock, latch clock).
type SerialBitBus interface {
	// Transfer pulls the latch low, shifts each byte out MSB-first and
	// raises the latch to commit them together.
	Transfer(data ...byte) error
}

// PWMOutput drives a pulse-width modulated line.
type PWMOutput interface {
	// SetPulse programs the period and high time and enables the output.
	SetPulse(period, width time.Duration) error
	Disable() error
}

// PinSpec is one row of a pin table: a named line offset on the GPIO chip.
type PinSpec struct {
	Name      string `toml:"name"`
	Offset    int    `toml:"offset"`
	ActiveLow bool   `toml:"active_low"`
}

// AnalogSpec maps a named analog channel to its IIO sysfs file.
type AnalogSpec struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
	// Max is the raw full-scale value of the ADC (e.g. 4095 for 12-bit).
	Max int `toml:"max"`
}

// PWMSpec maps a named PWM output to a sysfs PWM chip channel.
type PWMSpec struct {
	Name    string `toml:"name"`
	Chip    string `toml:"chip"`
	Channel int    `toml:"channel"`
}

// Board opens named lines from its pin tables.
type Board interface {
	Input(name string) (DigitalInput, error)
	Output(name string) (DigitalOutput, error)
	Analog(name string) (AnalogInput, error)
	PWM(name string) (PWMOutput, error)
	// Close releases all lines opened through the board.
	Close() error
}

// DefaultChip is the GPIO character device used when none is configured.
const DefaultChip = "gpiochip0"

// Input pin names. They match the logic channel names.
const (
	PinPhoto  = "photo"
	PinToggle = "toggle"
	PinTactTL = "tact_tl"
	PinTactTR = "tact_tr"
	PinTactLL = "tact_ll"
	PinTactLR = "tact_lr"
	PinTactRL = "tact_rl"
	PinTactRR = "tact_rr"
)

// Output pin names.
const (
	PinSER   = "ser"   // matrix serial data
	PinSRCLK = "srclk" // matrix shift clock
	PinRCLK  = "rclk"  // matrix latch clock

	PinMode    = "mode"     // actuator latch commit, shared between stepper/dc/seg
	PinSegMode = "seg_mode" // 7-segment enable

	PinStepper1 = "stepper_1"
	PinStepper2 = "stepper_2"
	PinStepper3 = "stepper_3"
	PinStepper4 = "stepper_4"
	PinDC1      = "dc_1"
	PinDC2      = "dc_2"

	PinSegL1    = "seg_l1"
	PinSegL2    = "seg_l2"
	PinSegC1    = "seg_c1"
	PinSegC2    = "seg_c2"
	PinSegC3    = "seg_c3"
	PinSegR1    = "seg_r1"
	PinSegR2    = "seg_r2"
	PinSegPoint = "seg_point"

	PinLEDRed   = "led_red"
	PinLEDGreen = "led_green"
	PinLEDBlue  = "led_blue"
)

// Analog channel names.
const (
	AnalogPot       = "pot"
	AnalogJoystickX = "joystick_x"
	AnalogJoystickY = "joystick_y"
)

// DefaultInputPins is the kit's input wiring. The photo-interrupter pulls its
// line low while the beam is blocked.
var DefaultInputPins = []PinSpec{
	{Name: PinPhoto, Offset: 42, ActiveLow: true},
	{Name: PinToggle, Offset: 52},
	{Name: PinTactTL, Offset: 44},
	{Name: PinTactTR, Offset: 45},
	{Name: PinTactLL, Offset: 48},
	{Name: PinTactLR, Offset: 49},
	{Name: PinTactRL, Offset: 50},
	{Name: PinTactRR, Offset: 51},
}

// DefaultOutputPins is the kit's output wiring. Stepper and 7-segment lines
// share offsets; the mode and seg_mode lines select which latch listens.
var DefaultOutputPins = []PinSpec{
	{Name: PinSER, Offset: 38},
	{Name: PinSRCLK, Offset: 39},
	{Name: PinRCLK, Offset: 40},
	{Name: PinMode, Offset: 29},
	{Name: PinSegMode, Offset: 28},
	{Name: PinStepper1, Offset: 32},
	{Name: PinStepper2, Offset: 33},
	{Name: PinStepper3, Offset: 34},
	{Name: PinStepper4, Offset: 35},
	{Name: PinDC1, Offset: 30},
	{Name: PinDC2, Offset: 31},
	{Name: PinSegL1, Offset: 32},
	{Name: PinSegL2, Offset: 33},
	{Name: PinSegC1, Offset: 37},
	{Name: PinSegC2, Offset: 31},
	{Name: PinSegC3, Offset: 34},
	{Name: PinSegR1, Offset: 36},
	{Name: PinSegR2, Offset: 35},
	{Name: PinSegPoint, Offset: 30},
	{Name: PinLEDRed, Offset: 7},
	{Name: PinLEDGreen, Offset: 8},
	{Name: PinLEDBlue, Offset: 9},
	{Name: "bar_1", Offset: 22},
	{Name: "bar_2", Offset: 23},
	{Name: "bar_3", Offset: 24},
	{Name: "bar_4", Offset: 25},
	{Name: "bar_5", Offset: 26},
	{Name: "bar_6", Offset: 2},
	{Name: "bar_7", Offset: 3},
	{Name: "bar_8", Offset: 4},
	{Name: "bar_9", Offset: 5},
	{Name: "bar_10", Offset: 6},
}

// DefaultAnalogPins maps the kit's analog channels to IIO voltage inputs.
var DefaultAnalogPins = []AnalogSpec{
	{Name: AnalogPot, Path: "/sys/bus/iio/devices/iio:device0/in_voltage0_raw", Max: 4095},
	{Name: AnalogJoystickX, Path: "/sys/bus/iio/devices/iio:device0/in_voltage1_raw", Max: 4095},
	{Name: AnalogJoystickY, Path: "/sys/bus/iio/devices/iio:device0/in_voltage2_raw", Max: 4095},
}

// PWM output names.
const (
	PWMServo  = "servo"
	PWMBuzzer = "buzzer"
)

// DefaultPWMPins maps the servo and the passive buzzer to the two hardware
// PWM channels.
var DefaultPWMPins = []PWMSpec{
	{Name: PWMServo, Chip: "/sys/class/pwm/pwmchip0", Channel: 0},
	{Name: PWMBuzzer, Chip: "/sys/class/pwm/pwmchip0", Channel: 1},
}

// BarPinName returns the pin name of LED bar segment n (1..10).
func BarPinName(n int) string {
	return "bar_" + strconv.Itoa(n)
}

// Lookup returns the spec with the given name from a pin table.
func Lookup(table []PinSpec, name string) (PinSpec, bool) {
	for _, p := range table {
		if p.Name == name {
			return p, true
		}
	}
	return PinSpec{}, false
}
