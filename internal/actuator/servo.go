package actuator

import (
	"fmt"
	"time"

	"github.com/sweeney/mono-kit/internal/gpio"
)

// Mechanical travel of the kit's servo, in degrees.
const (
	ServoMin = 6
	ServoMax = 161
)

// Hobby-servo timing: 50 Hz frame, 544µs at 0° to 2400µs at 180°.
const (
	servoPeriod   = 20 * time.Millisecond
	servoMinPulse = 544 * time.Microsecond
	servoMaxPulse = 2400 * time.Microsecond
)

// Servo positions a hobby servo over PWM.
type Servo struct {
	pwm   gpio.PWMOutput
	angle int
}

// NewServo opens the servo PWM channel.
func NewServo(board gpio.Board) (*Servo, error) {
	pwm, err := board.PWM(gpio.PWMServo)
	if err != nil {
		return nil, err
	}
	return &Servo{pwm: pwm, angle: -1}, nil
}

// Write moves to angle, clamped to the servo's mechanical travel.
func (s *Servo) Write(angle int) error {
	angle = clamp(angle, ServoMin, ServoMax)
	if err := s.pwm.SetPulse(servoPeriod, ServoPulse(angle)); err != nil {
		return fmt.Errorf("servo: %w", err)
	}
	s.angle = angle
	return nil
}

// Angle returns the last commanded angle, or -1 if never written or the
// servo is absent.
func (s *Servo) Angle() int {
	if s == nil {
		return -1
	}
	return s.angle
}

// ServoPulse returns the pulse width for angle (0..180).
func ServoPulse(angle int) time.Duration {
	angle = clamp(angle, 0, 180)
	return servoMinPulse + (servoMaxPulse-servoMinPulse)*time.Duration(angle)/180
}
