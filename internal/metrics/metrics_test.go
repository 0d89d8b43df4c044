package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/mono-kit/internal/actuator"
	"github.com/sweeney/mono-kit/internal/events"
	"github.com/sweeney/mono-kit/internal/kit"
	"github.com/sweeney/mono-kit/internal/logic"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscribeCountsEvents(t *testing.T) {
	bus := events.New()
	defer bus.Close()
	defer Subscribe(bus)()

	pressed := inputEvents.WithLabelValues("tact_lr", "PRESSED")
	okServo := commands.WithLabelValues("servo", "ok")
	badDC := commands.WithLabelValues("dc", "error")
	before := testutil.ToFloat64(pressed)

	bus.Publish(events.InputEvent{Event: logic.Event{Type: logic.EventPressed, Name: "tact_lr"}})
	bus.Publish(events.InputEvent{Event: logic.Event{Type: logic.EventPressed, Name: "tact_lr"}})
	bus.Publish(events.CommandEvent{Command: actuator.Command{Actuator: "servo"}})
	bus.Publish(events.CommandEvent{Command: actuator.Command{Actuator: "dc"}, Err: errors.New("bad action")})

	waitFor(t, func() bool { return testutil.ToFloat64(pressed) == before+2 })
	waitFor(t, func() bool { return testutil.ToFloat64(okServo) >= 1 })
	waitFor(t, func() bool { return testutil.ToFloat64(badDC) >= 1 })
}

func TestObserveState(t *testing.T) {
	ObserveState(kit.State{
		Levels:        map[string]bool{"toggle": true, "photo": false},
		Sweeps:        42,
		Commits:       336,
		RotationCount: 2,
	})

	if got := testutil.ToFloat64(sweeps); got != 42 {
		t.Errorf("sweeps = %v, want 42", got)
	}
	if got := testutil.ToFloat64(commits); got != 336 {
		t.Errorf("commits = %v, want 336", got)
	}
	if got := testutil.ToFloat64(inputLevel.WithLabelValues("toggle")); got != 1 {
		t.Errorf("toggle level = %v, want 1", got)
	}
	if got := testutil.ToFloat64(inputLevel.WithLabelValues("photo")); got != 0 {
		t.Errorf("photo level = %v, want 0", got)
	}
}

func TestRecordStep(t *testing.T) {
	before := testutil.ToFloat64(loopErrors)
	RecordStep(time.Millisecond, nil)
	RecordStep(time.Millisecond, errors.New("gpio read error"))
	if got := testutil.ToFloat64(loopErrors); got != before+1 {
		t.Errorf("loop errors = %v, want %v", got, before+1)
	}
}

func TestHandler(t *testing.T) {
	SetMQTTConnected(true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "monokit_mqtt_connected 1") {
		t.Errorf("exposition missing mqtt gauge:\n%s", body)
	}
}
