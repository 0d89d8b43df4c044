package matrix

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/mono-kit/internal/gpio"
)

// stepClock returns start, start+step, start+2*step, ... on successive calls.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

func checkSweep(t *testing.T, transfers [][]byte, p Pattern) {
	t.Helper()
	if len(transfers) != 2*Rows {
		t.Fatalf("expected %d transfers per sweep, got %d", 2*Rows, len(transfers))
	}
	for row := 0; row < Rows; row++ {
		blank, draw := transfers[2*row], transfers[2*row+1]
		if len(blank) != 2 || blank[0] != 0x00 || blank[1] != 0x00 {
			t.Errorf("line %d: expected blank (0x00, 0x00), got %#v", row, blank)
		}
		if len(draw) != 2 || draw[0] != p[row] || draw[1] != byte(1<<row) {
			t.Errorf("line %d: expected (%#08b, %#08b), got %#v", row, p[row], 1<<row, draw)
		}
	}
}

func TestCallerTimedSingleDot(t *testing.T) {
	bus := &gpio.FakeBus{}
	r := NewRenderer(bus, nil)
	p := Pattern{0b00000001, 0, 0, 0, 0, 0, 0, 0}

	n, err := r.Render(p, CallerTimed())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n != 1 {
		t.Errorf("caller-timed render should draw 1 sweep, drew %d", n)
	}

	checkSweep(t, bus.Transfers, p)
	for row := 1; row < Rows; row++ {
		if bus.Transfers[2*row+1][0] != 0 {
			t.Errorf("line %d: expected empty column byte", row)
		}
	}
	if r.Sweeps() != 1 {
		t.Errorf("expected 1 sweep counted, got %d", r.Sweeps())
	}
}

func TestSweepDeterministic(t *testing.T) {
	for name, p := range map[string]Pattern{
		"left":  Left,
		"right": Right,
		"up":    Up,
		"down":  Down,
		"blank": Blank,
	} {
		t.Run(name, func(t *testing.T) {
			first, second := &gpio.FakeBus{}, &gpio.FakeBus{}
			NewRenderer(first, nil).Sweep(p)
			NewRenderer(second, nil).Sweep(p)

			checkSweep(t, first.Transfers, p)
			for i := range first.Transfers {
				if string(first.Transfers[i]) != string(second.Transfers[i]) {
					t.Errorf("transfer %d differs between sweeps", i)
				}
			}
		})
	}
}

func TestSelfTimedSweepsForDuration(t *testing.T) {
	bus := &gpio.FakeBus{}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Clock read once at start, then once per loop check.
	r := NewRenderer(bus, nil, WithClock(stepClock(start, 10*time.Millisecond)))

	n, err := r.Render(Up, SelfTimed(DefaultRefresh))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// Checks at 10ms..90ms pass, 100ms stops: 9 sweeps.
	if n != 9 {
		t.Errorf("expected 9 sweeps, got %d", n)
	}
	if len(bus.Transfers) != n*2*Rows {
		t.Fatalf("expected %d transfers, got %d", n*2*Rows, len(bus.Transfers))
	}
	// Each sweep is bit-identical to a caller-timed one.
	for s := 0; s < n; s++ {
		checkSweep(t, bus.Transfers[s*2*Rows:(s+1)*2*Rows], Up)
	}
}

func TestSelfTimedZeroDurationDrawsNothing(t *testing.T) {
	bus := &gpio.FakeBus{}
	r := NewRenderer(bus, nil, WithClock(stepClock(time.Now(), time.Millisecond)))

	n, err := r.Render(Left, SelfTimed(0))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n != 0 || len(bus.Transfers) != 0 {
		t.Errorf("expected no traffic, got %d sweeps and %d transfers", n, len(bus.Transfers))
	}
}

func TestRenderBusError(t *testing.T) {
	bus := &gpio.FakeBus{TransferError: errors.New("bus fault")}
	r := NewRenderer(bus, nil)

	if _, err := r.Render(Left, CallerTimed()); err == nil {
		t.Error("expected error from failing bus")
	}
	if r.Sweeps() != 0 {
		t.Error("failed sweep should not be counted")
	}
}

func TestSweepHoldsCommitLockPerLine(t *testing.T) {
	var lock gpio.CommitLock
	r := NewRenderer(&gpio.FakeBus{}, &lock)

	if err := r.Sweep(Down); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if lock.Commits() != Rows {
		t.Errorf("expected one commit per scan line (%d), got %d", Rows, lock.Commits())
	}
}

func TestClear(t *testing.T) {
	bus := &gpio.FakeBus{}
	r := NewRenderer(bus, nil)

	if err := r.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(bus.Transfers) != 1 || bus.Transfers[0][0] != 0 || bus.Transfers[0][1] != 0 {
		t.Errorf("expected a single blank frame, got %#v", bus.Transfers)
	}
}

// The renderer output must survive bit-banging: decode the pin trace.
func TestSweepOverPinBus(t *testing.T) {
	board := gpio.NewFakeBoard()
	data, _ := board.Output(gpio.PinSER)
	clock, _ := board.Output(gpio.PinSRCLK)
	latch, _ := board.Output(gpio.PinRCLK)
	r := NewRenderer(gpio.NewPinBus(data, clock, latch), nil)

	if err := r.Sweep(Right); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	checkSweep(t, board.Transfers(gpio.PinSER, gpio.PinSRCLK, gpio.PinRCLK), Right)
}

func TestModeString(t *testing.T) {
	if CallerTimed().String() != "caller-timed" {
		t.Errorf("unexpected %q", CallerTimed().String())
	}
	m := SelfTimed(100 * time.Millisecond)
	if m.String() != "self-timed(100ms)" {
		t.Errorf("unexpected %q", m.String())
	}
	if !m.IsSelfTimed() || m.Duration() != 100*time.Millisecond {
		t.Errorf("unexpected mode %+v", m)
	}
}
