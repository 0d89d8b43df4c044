// Package metrics provides Prometheus metrics for the control loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/mono-kit/internal/events"
	"github.com/sweeney/mono-kit/internal/kit"
)

var (
	inputEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "monokit",
		Subsystem: "input",
		Name:      "events_total",
		Help:      "Logical input events by channel and type",
	}, []string{"channel", "event"})

	commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "monokit",
		Subsystem: "command",
		Name:      "applied_total",
		Help:      "Remote commands by actuator and result",
	}, []string{"actuator", "result"})

	loopErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "monokit",
		Subsystem: "loop",
		Name:      "errors_total",
		Help:      "Loop iterations that returned an I/O error",
	})

	stepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "monokit",
		Subsystem: "loop",
		Name:      "step_seconds",
		Help:      "Duration of one control-loop iteration",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.05, 0.1, 0.25},
	})

	sweeps = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "monokit",
		Subsystem: "matrix",
		Name:      "sweeps",
		Help:      "Full matrix sweeps drawn since startup",
	})

	commits = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "monokit",
		Subsystem: "bus",
		Name:      "commits",
		Help:      "Latched bus and actuator commits since startup",
	})

	rotationCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "monokit",
		Subsystem: "rotation",
		Name:      "count",
		Help:      "Edges accumulated towards the next rotation",
	})

	inputLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "monokit",
		Subsystem: "input",
		Name:      "level",
		Help:      "Last sampled input level (1 = active)",
	}, []string{"channel"})

	mqttConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "monokit",
		Subsystem: "mqtt",
		Name:      "connected",
		Help:      "1 while the broker connection is up",
	})
)

// RecordStep records one loop iteration's duration and outcome.
func RecordStep(d time.Duration, err error) {
	stepSeconds.Observe(d.Seconds())
	if err != nil {
		loopErrors.Inc()
	}
}

// ObserveState copies gauges from a kit snapshot.
func ObserveState(s kit.State) {
	sweeps.Set(float64(s.Sweeps))
	commits.Set(float64(s.Commits))
	rotationCount.Set(float64(s.RotationCount))
	for name, level := range s.Levels {
		inputLevel.WithLabelValues(name).Set(boolFloat(level))
	}
}

// SetMQTTConnected records the broker connection state.
func SetMQTTConnected(connected bool) {
	mqttConnected.Set(boolFloat(connected))
}

// Subscribe counts input and command events from bus.
func Subscribe(bus *events.Bus) func() {
	unsubInput := bus.Subscribe(func(e events.InputEvent) {
		inputEvents.WithLabelValues(e.Name, string(e.Event.Type)).Inc()
	})
	unsubCmd := bus.Subscribe(func(e events.CommandEvent) {
		result := "ok"
		if e.Err != nil {
			result = "error"
		}
		commands.WithLabelValues(e.Command.Actuator, result).Inc()
	})
	return func() {
		unsubInput()
		unsubCmd()
	}
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
