package matrix

import (
	"fmt"
	"time"

	"github.com/sweeney/mono-kit/internal/gpio"
)

// DefaultRefresh is how long a self-timed render keeps redrawing.
const DefaultRefresh = 100 * time.Millisecond

// Mode selects who owns display timing.
type Mode struct {
	selfTimed bool
	duration  time.Duration
}

// CallerTimed draws exactly one sweep per call and never blocks. The caller
// must call Render on every loop iteration to keep the image steady.
func CallerTimed() Mode {
	return Mode{}
}

// SelfTimed keeps sweeping for d before returning. Nothing else on the
// control loop runs during that time.
func SelfTimed(d time.Duration) Mode {
	return Mode{selfTimed: true, duration: d}
}

// IsSelfTimed reports whether the mode blocks.
func (m Mode) IsSelfTimed() bool {
	return m.selfTimed
}

// Duration returns the self-timed refresh duration (0 for caller-timed).
func (m Mode) Duration() time.Duration {
	return m.duration
}

func (m Mode) String() string {
	if m.selfTimed {
		return fmt.Sprintf("self-timed(%v)", m.duration)
	}
	return "caller-timed"
}

// Renderer multiplexes patterns onto the matrix. Every scan line is written
// as a blank frame followed by the line's column byte and a one-hot select
// byte, each pair committed by one latch pulse.
type Renderer struct {
	bus    gpio.SerialBitBus
	lock   *gpio.CommitLock
	now    func() time.Time
	sweeps uint64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the clock used by self-timed renders.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// NewRenderer creates a renderer on bus. Scan lines are written under lock,
// which must be shared with every other writer of the latch line; a nil
// lock gives the renderer a private one.
func NewRenderer(bus gpio.SerialBitBus, lock *gpio.CommitLock, opts ...Option) *Renderer {
	if lock == nil {
		lock = &gpio.CommitLock{}
	}
	r := &Renderer{bus: bus, lock: lock, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws p according to mode and returns the number of full sweeps
// drawn. A self-timed render of zero duration draws nothing.
func (r *Renderer) Render(p Pattern, mode Mode) (int, error) {
	if !mode.selfTimed {
		if err := r.Sweep(p); err != nil {
			return 0, err
		}
		return 1, nil
	}

	n := 0
	start := r.now()
	for r.now().Sub(start) < mode.duration {
		if err := r.Sweep(p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Sweep draws all eight scan lines once.
func (r *Renderer) Sweep(p Pattern) error {
	for row := 0; row < Rows; row++ {
		err := r.lock.Atomic(func() error {
			// Blank first: the registers change mid-shift and would smear
			// the previous line into this one.
			if err := r.bus.Transfer(0x00, 0x00); err != nil {
				return fmt.Errorf("blank line %d: %w", row, err)
			}
			if err := r.bus.Transfer(p[row], 1<<row); err != nil {
				return fmt.Errorf("draw line %d: %w", row, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	r.sweeps++
	return nil
}

// Clear writes one blank frame, turning every LED off.
func (r *Renderer) Clear() error {
	return r.lock.Atomic(func() error {
		if err := r.bus.Transfer(0x00, 0x00); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		return nil
	})
}

// Sweeps returns the number of completed sweeps since creation.
func (r *Renderer) Sweeps() uint64 {
	return r.sweeps
}
