package kit

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/mono-kit/internal/actuator"
	"github.com/sweeney/mono-kit/internal/gpio"
	"github.com/sweeney/mono-kit/internal/logic"
	"github.com/sweeney/mono-kit/internal/matrix"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type settleRecorder struct {
	calls []time.Duration
}

func (s *settleRecorder) wait(d time.Duration) {
	s.calls = append(s.calls, d)
}

// newTestKit returns a kit on a fake board with the joystick centred.
func newTestKit(t *testing.T, cfg Config, opts ...Option) (*Kit, *gpio.FakeBoard, *settleRecorder) {
	t.Helper()
	board := gpio.NewFakeBoard()
	board.FakeAnalog(gpio.AnalogJoystickX).Value = 512
	board.FakeAnalog(gpio.AnalogJoystickY).Value = 512

	rec := &settleRecorder{}
	opts = append([]Option{WithSettle(rec.wait)}, opts...)
	k, err := New(board, cfg, t0, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	board.ResetTrace()
	return k, board, rec
}

func matrixTransfers(board *gpio.FakeBoard) [][]byte {
	return board.Transfers(gpio.PinSER, gpio.PinSRCLK, gpio.PinRCLK)
}

func eventNames(events []logic.Event) []string {
	var out []string
	for _, e := range events {
		out = append(out, e.Name+":"+string(e.Type))
	}
	return out
}

func TestNew_WithoutPWM(t *testing.T) {
	board := gpio.NewFakeBoard()
	board.Missing[gpio.PWMServo] = true
	board.Missing[gpio.PWMBuzzer] = true

	k, err := New(board, DefaultConfig(), t0, WithSettle(func(time.Duration) {}))
	if err != nil {
		t.Fatalf("New without PWM: %v", err)
	}
	if _, err := k.Step(t0); err != nil {
		t.Fatalf("Step: %v", err)
	}
	s := k.State()
	if s.Servo != -1 || s.Buzzer {
		t.Errorf("servo = %d, buzzer = %v; want idle", s.Servo, s.Buzzer)
	}
	if err := k.Apply(actuator.Command{Actuator: "servo", Value: 90}, t0); !errors.Is(err, actuator.ErrUnavailable) {
		t.Errorf("servo command err = %v, want ErrUnavailable", err)
	}
	if err := k.Shutdown(); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNew_MissingInput(t *testing.T) {
	board := gpio.NewFakeBoard()
	board.Missing[gpio.PinTactRR] = true
	if _, err := New(board, DefaultConfig(), t0); err == nil {
		t.Fatal("expected error for missing tact_rr pin")
	}
}

func TestNew_MissingAnalogIsOptional(t *testing.T) {
	board := gpio.NewFakeBoard()
	board.Missing[gpio.AnalogJoystickX] = true
	board.Missing[gpio.AnalogPot] = true

	k, err := New(board, DefaultConfig(), t0, WithSettle(func(time.Duration) {}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := k.Step(t0); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := k.State().Pattern; got != matrix.NameBlank {
		t.Errorf("pattern = %q, want blank without a joystick", got)
	}
}

func TestNew_ClampsRotationTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RotationTarget = 0
	k, _, _ := newTestKit(t, cfg)
	if got := k.State().RotationTarget; got != 1 {
		t.Errorf("RotationTarget = %d, want 1", got)
	}
}

func TestStep_TactPressOncePerHold(t *testing.T) {
	k, board, _ := newTestKit(t, DefaultConfig())
	board.FakeInput(gpio.PinTactTL).Samples = []bool{false, true, true, true, false, true}

	var pressed []bool
	for i := 0; i < 6; i++ {
		events, err := k.Step(t0.Add(time.Duration(i) * time.Millisecond))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		pressed = append(pressed, len(events) == 1 && events[0].Channel == logic.ChannelTactTL)
	}

	want := []bool{false, true, false, false, false, true}
	for i := range want {
		if pressed[i] != want[i] {
			t.Errorf("step %d pressed = %v, want %v", i, pressed[i], want[i])
		}
	}
	if got := k.State().Counts["tact_tl"]; got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestStep_RotationEveryTargetEdges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RotationTarget = 3
	k, board, _ := newTestKit(t, cfg)

	photo := board.FakeInput(gpio.PinPhoto)
	var rotations []int
	for edge := 1; edge <= 9; edge++ {
		for _, level := range []bool{true, false} {
			photo.Set(level)
			events, err := k.Step(t0)
			if err != nil {
				t.Fatal(err)
			}
			for _, e := range events {
				if e.Type != logic.EventRotation || e.Target != 3 {
					t.Errorf("unexpected event %+v", e)
				}
				rotations = append(rotations, edge)
			}
		}
	}

	if len(rotations) != 3 || rotations[0] != 3 || rotations[1] != 6 || rotations[2] != 9 {
		t.Errorf("rotations at edges %v, want [3 6 9]", rotations)
	}
	if got := k.State().RotationCount; got != 0 {
		t.Errorf("RotationCount = %d, want 0", got)
	}
}

func TestStep_ToggleEvents(t *testing.T) {
	k, board, _ := newTestKit(t, DefaultConfig())
	board.FakeInput(gpio.PinToggle).Samples = []bool{false, true, true, false, true}

	var got []string
	for i := 0; i < 5; i++ {
		events, _ := k.Step(t0)
		got = append(got, strings.Join(eventNames(events), ","))
	}
	want := []string{"", "toggle:PULLED", "", "", "toggle:PULLED"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d events = %q, want %q", i, got[i], want[i])
		}
	}
	if !k.State().Levels["toggle"] {
		t.Error("toggle level should be ON")
	}
}

func TestStep_DebounceSwitchesOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debounce = logic.FixedDelay(60 * time.Microsecond)
	k, _, rec := newTestKit(t, cfg)

	if _, err := k.Step(t0); err != nil {
		t.Fatal(err)
	}
	// Toggle plus six tacts; the photo channel is sampled without delay.
	if len(rec.calls) != 7 {
		t.Fatalf("settle calls = %d, want 7", len(rec.calls))
	}
	for _, d := range rec.calls {
		if d != 60*time.Microsecond {
			t.Errorf("settle = %v, want 60µs", d)
		}
	}
}

func TestStep_NoFilterDoesNotWait(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debounce = logic.NoFilter()
	k, _, rec := newTestKit(t, cfg)

	_, _ = k.Step(t0)
	for _, d := range rec.calls {
		if d != 0 {
			t.Errorf("settle = %v, want 0", d)
		}
	}
}

func TestStep_ReadErrorDoesNotStopOtherChannels(t *testing.T) {
	k, board, _ := newTestKit(t, DefaultConfig())
	board.FakeInput(gpio.PinTactTL).ReadError = errors.New("line gone")
	board.FakeInput(gpio.PinTactRR).Level = true

	events, err := k.Step(t0)
	if err == nil || !strings.Contains(err.Error(), "tact_tl") {
		t.Errorf("err = %v, want tact_tl read error", err)
	}
	if len(events) != 1 || events[0].Channel != logic.ChannelTactRR {
		t.Errorf("events = %v, want tact_rr press", eventNames(events))
	}
	if len(matrixTransfers(board)) != 16 {
		t.Error("matrix was not drawn after a read error")
	}
}

func TestStep_DrawsSinglePixelFrame(t *testing.T) {
	k, board, _ := newTestKit(t, DefaultConfig())
	k.Library().Replace(map[string]matrix.Pattern{"dot": {0b00000001}})
	if err := k.Pin("dot"); err != nil {
		t.Fatal(err)
	}

	if _, err := k.Step(t0); err != nil {
		t.Fatal(err)
	}

	transfers := matrixTransfers(board)
	if len(transfers) != 2*matrix.Rows {
		t.Fatalf("transfers = %d, want %d", len(transfers), 2*matrix.Rows)
	}
	for row := 0; row < matrix.Rows; row++ {
		blank, draw := transfers[2*row], transfers[2*row+1]
		if !bytes.Equal(blank, []byte{0, 0}) {
			t.Errorf("row %d blank = %v", row, blank)
		}
		wantData := byte(0)
		if row == 0 {
			wantData = 0b00000001
		}
		if !bytes.Equal(draw, []byte{wantData, 1 << row}) {
			t.Errorf("row %d draw = %08b, want [%08b %08b]", row, draw, wantData, byte(1<<row))
		}
	}
	if s := k.State(); s.Pattern != "dot" || !s.Pinned || s.Sweeps != 1 {
		t.Errorf("state = %+v", s)
	}
}

func TestStep_JoystickSelectsArrow(t *testing.T) {
	k, board, _ := newTestKit(t, DefaultConfig())

	tests := []struct {
		x, y int
		want string
	}{
		{512, 512, matrix.NameBlank},
		{512, 100, matrix.NameUp},
		{900, 512, matrix.NameRight},
		{100, 900, matrix.NameDown},
	}
	for _, tt := range tests {
		board.FakeAnalog(gpio.AnalogJoystickX).Value = tt.x
		board.FakeAnalog(gpio.AnalogJoystickY).Value = tt.y
		if _, err := k.Step(t0); err != nil {
			t.Fatal(err)
		}
		if got := k.State().Pattern; got != tt.want {
			t.Errorf("joystick (%d,%d) pattern = %q, want %q", tt.x, tt.y, got, tt.want)
		}
	}

	// A pinned pattern overrides the joystick until released.
	_ = k.Pin(matrix.NameLeft)
	_, _ = k.Step(t0)
	if got := k.State().Pattern; got != matrix.NameLeft {
		t.Errorf("pinned pattern = %q", got)
	}
	_ = k.Pin("auto")
	_, _ = k.Step(t0)
	if got := k.State().Pattern; got != matrix.NameDown {
		t.Errorf("released pattern = %q, want down", got)
	}
}

func TestStep_PotMirroredOnlyOnChange(t *testing.T) {
	k, board, _ := newTestKit(t, DefaultConfig())
	pot := board.FakeAnalog(gpio.AnalogPot)
	segMode := board.FakeOutput(gpio.PinSegMode)

	pot.Value = 512
	_, _ = k.Step(t0)
	if got := k.Actuators().Segment.Last(); got != actuator.Digits[4] {
		t.Errorf("segment = %#x, want digit 4", got)
	}
	writes := len(segMode.Writes)

	_, _ = k.Step(t0)
	if len(segMode.Writes) != writes {
		t.Error("segment rewritten with unchanged pot")
	}

	pot.Value = 1023
	_, _ = k.Step(t0)
	if got := k.State().Digit; got != 9 {
		t.Errorf("digit = %d, want 9", got)
	}
}

func TestStep_SelfTimed(t *testing.T) {
	clock := t0
	now := func() time.Time {
		clock = clock.Add(10 * time.Millisecond)
		return clock
	}
	cfg := DefaultConfig()
	cfg.Mode = matrix.SelfTimed(50 * time.Millisecond)
	k, board, _ := newTestKit(t, cfg, WithRendererOptions(matrix.WithClock(now)))

	if _, err := k.Step(t0); err != nil {
		t.Fatal(err)
	}
	// start at +10ms; sweeps at +20..+50ms elapsed 10..40ms.
	if got := k.State().Sweeps; got != 4 {
		t.Errorf("sweeps = %d, want 4", got)
	}
	if got := len(matrixTransfers(board)); got != 4*2*matrix.Rows {
		t.Errorf("transfers = %d", got)
	}
}

func TestKit_LogicalAPI(t *testing.T) {
	k, board, _ := newTestKit(t, DefaultConfig())

	board.FakeInput(gpio.PinTactLL).Samples = []bool{true, true}
	if got, err := k.PollEdge(logic.ChannelTactLL); err != nil || !got {
		t.Errorf("PollEdge first = %v, %v", got, err)
	}
	if got, _ := k.PollEdge(logic.ChannelTactLL); got {
		t.Error("PollEdge fired twice for one hold")
	}

	board.FakeInput(gpio.PinPhoto).Samples = []bool{true, false, true}
	var done []bool
	for i := 0; i < 3; i++ {
		got, err := k.PollRotation(logic.ChannelPhoto, 2)
		if err != nil {
			t.Fatal(err)
		}
		done = append(done, got)
	}
	if done[0] || done[1] || !done[2] {
		t.Errorf("PollRotation = %v, want [false false true]", done)
	}

	// ToggleLevel must not consume the pulled edge.
	board.FakeInput(gpio.PinToggle).Set(true)
	if lvl, err := k.ToggleLevel(logic.ChannelToggle); err != nil || !lvl {
		t.Errorf("ToggleLevel = %v, %v", lvl, err)
	}
	if pulled, _ := k.TogglePulled(logic.ChannelToggle); !pulled {
		t.Error("TogglePulled should fire after ToggleLevel")
	}
}

func TestKit_InvalidChannel(t *testing.T) {
	k, _, _ := newTestKit(t, DefaultConfig())

	if _, err := k.PollEdge(99); !errors.Is(err, logic.ErrUnknownChannel) {
		t.Errorf("PollEdge(99) err = %v", err)
	}
	if _, err := k.ToggleLevel(logic.ChannelPhoto); !errors.Is(err, logic.ErrKindMismatch) {
		t.Errorf("ToggleLevel(photo) err = %v", err)
	}
	if _, err := k.PollRotation(logic.ChannelTactTL, 1); !errors.Is(err, logic.ErrKindMismatch) {
		t.Errorf("PollRotation(tact) err = %v", err)
	}
}

func TestKit_Apply(t *testing.T) {
	k, _, _ := newTestKit(t, DefaultConfig())

	if err := k.Apply(actuator.Command{Actuator: "servo", Value: 45}, t0); err != nil {
		t.Fatal(err)
	}
	if err := k.Apply(actuator.Command{Actuator: "rotation", Value: 5}, t0); err != nil {
		t.Fatal(err)
	}
	if err := k.Apply(actuator.Command{Actuator: "pattern", Action: "up_3"}, t0); err != nil {
		t.Fatal(err)
	}
	if err := k.Apply(actuator.Command{Actuator: "pattern", Action: "smiley"}, t0); err == nil {
		t.Error("expected unknown pattern error")
	}

	_, _ = k.Step(t0)
	s := k.State()
	if s.Servo != 45 || s.RotationTarget != 5 || s.Pattern != "up_3" {
		t.Errorf("state = %+v", s)
	}
}

func TestKit_Shutdown(t *testing.T) {
	k, board, _ := newTestKit(t, DefaultConfig())
	_ = k.Pin(matrix.NameRight)
	_, _ = k.Step(t0)
	_ = k.Apply(actuator.Command{Actuator: "dc", Action: "RT"}, t0)
	board.ResetTrace()

	if err := k.Shutdown(); err != nil {
		t.Fatal(err)
	}
	transfers := matrixTransfers(board)
	if len(transfers) != 1 || !bytes.Equal(transfers[0], []byte{0, 0}) {
		t.Errorf("shutdown transfers = %v, want one blank frame", transfers)
	}
	if k.Actuators().DC.Last() != actuator.DCFree {
		t.Error("dc motor still driven")
	}

	if err := k.Close(); err != nil || !board.Closed {
		t.Error("board not closed")
	}
}

func TestKit_PrintState(t *testing.T) {
	k, board, _ := newTestKit(t, DefaultConfig())
	board.FakeInput(gpio.PinToggle).Level = true
	board.FakeAnalog(gpio.AnalogPot).Value = 1023

	var buf bytes.Buffer
	if err := k.PrintState(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"toggle     ON", "tact_tl    OFF", "pot        1023 (digit 9)", "joystick   512,512"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Reading levels for display must not feed the edge detectors.
	if got := k.State().Counts["toggle"]; got != 0 {
		t.Errorf("toggle count = %d, want 0", got)
	}
}
