//go:build !linux

package gpio

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(chipName string, inputs, outputs []PinSpec, analogs []AnalogSpec, pwms []PWMSpec) (*RealBoard, error) {
	return nil, ErrNotSupported
}

// Input is not implemented on non-Linux platforms.
func (b *RealBoard) Input(name string) (DigitalInput, error) { return nil, ErrNotSupported }

// Output is not implemented on non-Linux platforms.
func (b *RealBoard) Output(name string) (DigitalOutput, error) { return nil, ErrNotSupported }

// Analog is not implemented on non-Linux platforms.
func (b *RealBoard) Analog(name string) (AnalogInput, error) { return nil, ErrNotSupported }

// PWM is not implemented on non-Linux platforms.
func (b *RealBoard) PWM(name string) (PWMOutput, error) { return nil, ErrNotSupported }

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
