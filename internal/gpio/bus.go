package gpio

import (
	"fmt"
	"sync"
)

// PinBus bit-bangs a SerialBitBus over three digital outputs, the way a
// 74HC595 chain is driven: data is sampled on the shift clock's rising edge
// and copied to the outputs on the latch clock's rising edge.
type PinBus struct {
	data  DigitalOutput
	clock DigitalOutput
	latch DigitalOutput
}

// NewPinBus creates a bus over the given data, shift clock and latch lines.
func NewPinBus(data, clock, latch DigitalOutput) *PinBus {
	return &PinBus{data: data, clock: clock, latch: latch}
}

// Transfer pulls the latch low, shifts every byte MSB-first and raises the
// latch so all bytes reach the outputs together.
func (b *PinBus) Transfer(data ...byte) error {
	if err := b.latch.Write(false); err != nil {
		return fmt.Errorf("latch low: %w", err)
	}
	for _, v := range data {
		if err := ShiftOut(b.data, b.clock, v); err != nil {
			return err
		}
	}
	if err := b.latch.Write(true); err != nil {
		return fmt.Errorf("latch high: %w", err)
	}
	return nil
}

// ShiftOut clocks one byte out MSB-first.
func ShiftOut(data, clock DigitalOutput, v byte) error {
	for bit := 7; bit >= 0; bit-- {
		if err := data.Write(v&(1<<bit) != 0); err != nil {
			return fmt.Errorf("shift data bit %d: %w", bit, err)
		}
		if err := clock.Write(true); err != nil {
			return fmt.Errorf("shift clock high: %w", err)
		}
		if err := clock.Write(false); err != nil {
			return fmt.Errorf("shift clock low: %w", err)
		}
	}
	return nil
}

// CommitLock serializes logical updates on lines shared between peripherals
// (the matrix latch and the actuator commit line). A sequence started inside
// Atomic runs to its final commit pulse before any other sequence begins.
type CommitLock struct {
	mu      sync.Mutex
	commits uint64
}

// Atomic runs fn while holding the lock.
func (l *CommitLock) Atomic(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := fn()
	if err == nil {
		l.commits++
	}
	return err
}

// Commits returns how many sequences completed without error.
func (l *CommitLock) Commits() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commits
}

// Pulse drives a commit line low then high.
func Pulse(line DigitalOutput) error {
	if err := line.Write(false); err != nil {
		return fmt.Errorf("commit low: %w", err)
	}
	if err := line.Write(true); err != nil {
		return fmt.Errorf("commit high: %w", err)
	}
	return nil
}
