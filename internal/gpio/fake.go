package gpio

import (
	"fmt"
	"time"
)

// FakeInput is a test double that returns scripted input levels.
type FakeInput struct {
	// Samples contains scripted levels to return.
	// Each call to Read() consumes the next sample; once exhausted the last
	// sample repeats. When Samples is empty, Level is returned.
	Samples []bool

	// Level is returned when no samples are scripted.
	Level bool

	// ReadError, if set, will be returned by Read()
	ReadError error

	// Reads counts calls to Read()
	Reads int

	index int
}

// Read returns the next scripted level.
func (f *FakeInput) Read() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return f.Level, nil
	}
	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Set switches the input to a fixed level and drops any script.
func (f *FakeInput) Set(level bool) {
	f.Samples = nil
	f.index = 0
	f.Level = level
}

// Reset rewinds the script to the first sample.
func (f *FakeInput) Reset() {
	f.index = 0
	f.Reads = 0
}

// Write is one recorded output change.
type Write struct {
	Pin  string
	High bool
}

// FakeOutput records the levels written to it.
type FakeOutput struct {
	Name   string
	Level  bool
	Writes []bool

	// WriteError, if set, will be returned by Write()
	WriteError error

	board *FakeBoard
}

// Write records the level.
func (f *FakeOutput) Write(high bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Level = high
	if f.board != nil && f.board.Untraced {
		return nil
	}
	f.Writes = append(f.Writes, high)
	if f.board != nil {
		f.board.Trace = append(f.board.Trace, Write{Pin: f.Name, High: high})
	}
	return nil
}

// FakeAnalog returns a fixed analog value.
type FakeAnalog struct {
	Value     int
	ReadError error
}

// ReadAnalog returns Value.
func (f *FakeAnalog) ReadAnalog() (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return f.Value, nil
}

// FakePWM records the last pulse configuration.
type FakePWM struct {
	Period  time.Duration
	Width   time.Duration
	Enabled bool
	Calls   int
}

// SetPulse records period and width and enables the output.
func (f *FakePWM) SetPulse(period, width time.Duration) error {
	f.Period = period
	f.Width = width
	f.Enabled = true
	f.Calls++
	return nil
}

// Disable turns the output off, keeping the last period and width.
func (f *FakePWM) Disable() error {
	f.Enabled = false
	return nil
}

// FakeBus records every Transfer.
type FakeBus struct {
	Transfers [][]byte

	// TransferError, if set, will be returned by Transfer()
	TransferError error
}

// Transfer records a copy of data.
func (f *FakeBus) Transfer(data ...byte) error {
	if f.TransferError != nil {
		return f.TransferError
	}
	f.Transfers = append(f.Transfers, append([]byte(nil), data...))
	return nil
}

// Reset clears recorded transfers.
func (f *FakeBus) Reset() {
	f.Transfers = nil
}

// FakeBoard hands out fake lines on demand and records every output write,
// in order, in Trace.
type FakeBoard struct {
	Inputs  map[string]*FakeInput
	Outputs map[string]*FakeOutput
	Analogs map[string]*FakeAnalog
	PWMs    map[string]*FakePWM
	Trace   []Write
	Closed  bool

	// Missing names return an error when opened.
	Missing map[string]bool

	// Untraced keeps only the current level of each output. Long-running
	// simulations set it so Writes and Trace do not grow without bound.
	Untraced bool
}

// NewFakeBoard creates an empty FakeBoard.
func NewFakeBoard() *FakeBoard {
	return &FakeBoard{
		Inputs:  make(map[string]*FakeInput),
		Outputs: make(map[string]*FakeOutput),
		Analogs: make(map[string]*FakeAnalog),
		PWMs:    make(map[string]*FakePWM),
		Missing: make(map[string]bool),
	}
}

func (b *FakeBoard) missing(name string) error {
	if b.Missing[name] {
		return fmt.Errorf("pin %q not in pin table", name)
	}
	return nil
}

// Input returns the fake input called name, creating it if needed.
func (b *FakeBoard) Input(name string) (DigitalInput, error) {
	if err := b.missing(name); err != nil {
		return nil, err
	}
	return b.FakeInput(name), nil
}

// FakeInput returns the concrete fake input called name.
func (b *FakeBoard) FakeInput(name string) *FakeInput {
	in, ok := b.Inputs[name]
	if !ok {
		in = &FakeInput{}
		b.Inputs[name] = in
	}
	return in
}

// Output returns the fake output called name, creating it if needed.
func (b *FakeBoard) Output(name string) (DigitalOutput, error) {
	if err := b.missing(name); err != nil {
		return nil, err
	}
	return b.FakeOutput(name), nil
}

// FakeOutput returns the concrete fake output called name.
func (b *FakeBoard) FakeOutput(name string) *FakeOutput {
	out, ok := b.Outputs[name]
	if !ok {
		out = &FakeOutput{Name: name, board: b}
		b.Outputs[name] = out
	}
	return out
}

// Analog returns the fake analog channel called name, creating it if needed.
func (b *FakeBoard) Analog(name string) (AnalogInput, error) {
	if err := b.missing(name); err != nil {
		return nil, err
	}
	return b.FakeAnalog(name), nil
}

// FakeAnalog returns the concrete fake analog channel called name.
func (b *FakeBoard) FakeAnalog(name string) *FakeAnalog {
	a, ok := b.Analogs[name]
	if !ok {
		a = &FakeAnalog{}
		b.Analogs[name] = a
	}
	return a
}

// PWM returns the fake PWM output called name, creating it if needed.
func (b *FakeBoard) PWM(name string) (PWMOutput, error) {
	if err := b.missing(name); err != nil {
		return nil, err
	}
	p, ok := b.PWMs[name]
	if !ok {
		p = &FakePWM{}
		b.PWMs[name] = p
	}
	return p, nil
}

// Close marks the board as closed.
func (b *FakeBoard) Close() error {
	b.Closed = true
	return nil
}

// ResetTrace clears the recorded write trace.
func (b *FakeBoard) ResetTrace() {
	b.Trace = nil
}

// Transfers decodes the shift-register traffic recorded in Trace.
// Data is sampled on each rising edge of clock while latch is low; each
// rising edge of latch closes one transfer. Trailing partial bytes are dropped.
func (b *FakeBoard) Transfers(data, clock, latch string) [][]byte {
	var (
		out       [][]byte
		cur       []byte
		acc, n    int
		dataLevel bool
		clockHigh bool
		open      bool
	)

	for _, w := range b.Trace {
		switch w.Pin {
		case data:
			dataLevel = w.High
		case clock:
			rising := w.High && !clockHigh
			clockHigh = w.High
			if !rising || !open {
				continue
			}
			acc <<= 1
			if dataLevel {
				acc |= 1
			}
			n++
			if n == 8 {
				cur = append(cur, byte(acc))
				acc, n = 0, 0
			}
		case latch:
			if !w.High {
				open = true
				cur = []byte{}
				acc, n = 0, 0
			} else if open {
				out = append(out, cur)
				open = false
			}
		}
	}
	return out
}
