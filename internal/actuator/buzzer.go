package actuator

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/mono-kit/internal/gpio"
)

// Tone is a buzzer pitch in Hz.
type Tone int

const (
	ToneLow  Tone = 400
	ToneMid  Tone = 800
	ToneHigh Tone = 1200
)

// ParseTone parses LO/MI/HI.
func ParseTone(s string) (Tone, error) {
	switch strings.ToUpper(s) {
	case "LO":
		return ToneLow, nil
	case "MI":
		return ToneMid, nil
	case "HI":
		return ToneHigh, nil
	default:
		return 0, fmt.Errorf("unknown tone %q", s)
	}
}

// Buzzer drives the passive buzzer with a square wave at the tone's pitch.
// A timed beep is stopped by Update once its deadline passes, so Buzz never
// blocks.
type Buzzer struct {
	pwm   gpio.PWMOutput
	tone  Tone
	until time.Time
	on    bool
}

// NewBuzzer opens the buzzer PWM channel.
func NewBuzzer(board gpio.Board) (*Buzzer, error) {
	pwm, err := board.PWM(gpio.PWMBuzzer)
	if err != nil {
		return nil, err
	}
	return &Buzzer{pwm: pwm}, nil
}

// Period returns the square-wave period for tone.
func (t Tone) Period() time.Duration {
	if t <= 0 {
		return 0
	}
	return time.Second / time.Duration(t)
}

// Buzz sounds tone for d starting at now. A zero duration silences the buzzer.
func (b *Buzzer) Buzz(tone Tone, d time.Duration, now time.Time) error {
	if d <= 0 {
		return b.Stop()
	}
	period := tone.Period()
	if period <= 0 {
		return fmt.Errorf("buzzer: invalid tone %d", tone)
	}
	if err := b.pwm.SetPulse(period, period/2); err != nil {
		return fmt.Errorf("buzzer on: %w", err)
	}
	b.tone, b.until, b.on = tone, now.Add(d), true
	return nil
}

// Update silences the buzzer once its beep has elapsed.
func (b *Buzzer) Update(now time.Time) error {
	if b.on && !now.Before(b.until) {
		return b.Stop()
	}
	return nil
}

// Stop silences the buzzer.
func (b *Buzzer) Stop() error {
	if err := b.pwm.Disable(); err != nil {
		return fmt.Errorf("buzzer off: %w", err)
	}
	b.on = false
	return nil
}

// Sounding reports whether the buzzer is on, and at which tone. A nil
// Buzzer is silent.
func (b *Buzzer) Sounding() (bool, Tone) {
	if b == nil {
		return false, 0
	}
	return b.on, b.tone
}
