package gpio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// SysfsAnalog reads an IIO voltage channel and scales it to 0..AnalogMax.
type SysfsAnalog struct {
	path string
	max  int
}

// NewSysfsAnalog creates an analog reader for spec.
func NewSysfsAnalog(spec AnalogSpec) *SysfsAnalog {
	max := spec.Max
	if max <= 0 {
		max = AnalogMax
	}
	return &SysfsAnalog{path: spec.Path, max: max}
}

// ReadAnalog reads the raw value and rescales it.
func (a *SysfsAnalog) ReadAnalog() (int, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return 0, fmt.Errorf("read analog: %w", err)
	}
	raw, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse analog %s: %w", a.path, err)
	}
	return ScaleAnalog(raw, a.max), nil
}

// ScaleAnalog maps raw in 0..max onto 0..AnalogMax, clamping out-of-range values.
func ScaleAnalog(raw, max int) int {
	if raw <= 0 || max <= 0 {
		return 0
	}
	if raw >= max {
		return AnalogMax
	}
	return raw * AnalogMax / max
}

// SysfsPWM drives a channel of a Linux sysfs PWM chip.
type SysfsPWM struct {
	dir     string
	enabled bool
}

// NewSysfsPWM exports the channel if needed.
func NewSysfsPWM(spec PWMSpec) (*SysfsPWM, error) {
	dir := filepath.Join(spec.Chip, "pwm"+strconv.Itoa(spec.Channel))
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		export := filepath.Join(spec.Chip, "export")
		if err := os.WriteFile(export, []byte(strconv.Itoa(spec.Channel)), 0o200); err != nil {
			return nil, fmt.Errorf("export pwm %s: %w", spec.Name, err)
		}
	}
	return &SysfsPWM{dir: dir}, nil
}

// SetPulse writes period and duty cycle and enables the output.
func (p *SysfsPWM) SetPulse(period, width time.Duration) error {
	if err := p.write("period", period.Nanoseconds()); err != nil {
		return err
	}
	if err := p.write("duty_cycle", width.Nanoseconds()); err != nil {
		return err
	}
	if !p.enabled {
		if err := p.write("enable", 1); err != nil {
			return err
		}
		p.enabled = true
	}
	return nil
}

// Disable stops the output. Disabling an idle channel is a no-op.
func (p *SysfsPWM) Disable() error {
	if !p.enabled {
		return nil
	}
	if err := p.write("enable", 0); err != nil {
		return err
	}
	p.enabled = false
	return nil
}

func (p *SysfsPWM) write(attr string, v int64) error {
	path := filepath.Join(p.dir, attr)
	if err := os.WriteFile(path, []byte(strconv.FormatInt(v, 10)), 0o644); err != nil {
		return fmt.Errorf("write pwm %s: %w", attr, err)
	}
	return nil
}
