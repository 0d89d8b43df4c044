// Command mono-kit drives the kit's inputs, LED matrix and actuators, and
// publishes input events to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/mono-kit/internal/actuator"
	"github.com/sweeney/mono-kit/internal/config"
	"github.com/sweeney/mono-kit/internal/events"
	"github.com/sweeney/mono-kit/internal/gpio"
	"github.com/sweeney/mono-kit/internal/kit"
	"github.com/sweeney/mono-kit/internal/logging"
	"github.com/sweeney/mono-kit/internal/logic"
	"github.com/sweeney/mono-kit/internal/matrix"
	"github.com/sweeney/mono-kit/internal/metrics"
	"github.com/sweeney/mono-kit/internal/mqtt"
	"github.com/sweeney/mono-kit/internal/status"
	"github.com/sweeney/mono-kit/internal/systemd"
	"github.com/sweeney/mono-kit/internal/web"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := config.Defaults()

	cmd := &cobra.Command{
		Use:          "mono-kit",
		Short:        "Kit input, LED matrix and actuator daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(&opts, cmd); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			logging.Initialize(opts.Logging())
			if err := run(&opts); err != nil {
				logging.GetLogger("main").Error("fatal", "error", err)
				return err
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Config, "config", opts.Config, "TOML config file")
	f.DurationVar(&opts.Poll, "poll", opts.Poll, "Control loop interval")
	f.DurationVar(&opts.Heartbeat, "heartbeat", opts.Heartbeat, "Heartbeat interval (0 to disable)")
	f.IntVar(&opts.DebounceUs, "debounce-us", opts.DebounceUs, "Switch settle delay in microseconds (0 disables)")
	f.IntVar(&opts.RotationTarget, "rotation-target", opts.RotationTarget, "Photo-interrupter edges per rotation")
	f.StringVar(&opts.RenderMode, "render-mode", opts.RenderMode, `Matrix timing: "caller" (one sweep per tick) or "self"`)
	f.DurationVar(&opts.Refresh, "refresh", opts.Refresh, "Self-timed render duration")
	f.StringVar(&opts.Patterns, "patterns", opts.Patterns, "YAML pattern file (watched for changes)")
	f.StringVar(&opts.Broker, "broker", opts.Broker, "MQTT broker address")
	f.StringVar(&opts.HTTP, "http", opts.HTTP, "HTTP status address (empty to disable)")
	f.StringVar(&opts.Chip, "chip", opts.Chip, "GPIO character device")
	f.BoolVar(&opts.Sim, "sim", opts.Sim, "Run against a simulated board")
	f.BoolVar(&opts.PrintState, "print-state", opts.PrintState, "Print current input levels and exit")
	f.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level (debug, info, warn, error)")
	f.StringVar(&opts.LogFormat, "log-format", opts.LogFormat, "Log format (text, json)")

	return cmd
}

func run(opts *config.Options) error {
	log := logging.GetLogger("main")

	board, err := openBoard(opts)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	library := matrix.NewLibrary()
	if opts.Patterns != "" {
		custom, err := matrix.LoadPatterns(opts.Patterns)
		if err != nil {
			log.Warn("pattern file not loaded", "path", opts.Patterns, "error", err)
		} else {
			library.Replace(custom)
			log.Info("loaded patterns", "path", opts.Patterns, "count", len(custom))
		}
	}

	k, err := kit.New(board, kit.Config{
		Channels:       logic.DefaultChannels,
		Debounce:       opts.Debounce(),
		RotationTarget: opts.RotationTarget,
		Mode:           opts.Mode(),
	}, time.Now(), kit.WithLibrary(library))
	if err != nil {
		return fmt.Errorf("init kit: %w", err)
	}

	if opts.PrintState {
		return k.PrintState(os.Stdout)
	}

	if opts.Patterns != "" {
		watcher := config.NewWatcher(opts.Patterns, matrix.LoadPatterns, logging.GetLogger("config"))
		watcher.OnReload(library.Replace)
		if err := watcher.Start(); err != nil {
			log.Warn("pattern file not watched", "path", opts.Patterns, "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	bus := events.New()
	defer bus.Close()

	mqttOpts := mqtt.DefaultOptions(opts.Broker)
	mqttOpts.ClientID = opts.ClientID
	publisher, err := mqtt.NewRealPublisher(mqttOpts)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()
	defer mqtt.Forward(bus, publisher)()
	defer metrics.Subscribe(bus)()

	tracker := status.NewTracker(time.Now(), statusConfig(opts))

	snap := tracker.Snapshot()
	bus.Publish(events.SystemEvent{
		Timestamp: snap.Now,
		Event:     "STARTUP",
		Payload:   status.FormatStatusEvent(snap, "STARTUP", ""),
		Retained:  true,
	})

	// MQTT and HTTP commands share one queue so only the loop touches pins.
	commands := make(chan actuator.Command, 16)
	go func() {
		for cmd := range publisher.Commands() {
			commands <- cmd
		}
	}()

	if opts.HTTP != "" {
		srv := web.New(opts.HTTP, tracker,
			web.WithMetrics(metrics.Handler()),
			web.WithCommands(commands),
			web.WithPatterns(library.Names))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", opts.HTTP)
	}

	notifier, err := systemd.NewDaemon()
	if err != nil {
		return fmt.Errorf("init systemd: %w", err)
	}
	if err := notifier.Ready(); err != nil {
		log.Warn("sd_notify failed", "error", err)
	}

	log.Info("started",
		"poll", opts.Poll,
		"debounce", opts.Debounce().SettleTime(),
		"render", opts.Mode().String(),
		"rotation_target", opts.RotationTarget,
		"broker", opts.Broker,
		"sim", opts.Sim)

	ticker := time.NewTicker(opts.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loop{
		kit:        k,
		bus:        bus,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		notifier:   notifier,
		heartbeat:  opts.Heartbeat,
		now:        time.Now,
		tick:       ticker.C,
		sig:        sigCh,
		commands:   commands,
	})
}

func openBoard(opts *config.Options) (gpio.Board, error) {
	if opts.Sim {
		return newSimBoard(), nil
	}
	return gpio.NewRealBoard(opts.Chip, opts.Pins.Inputs, opts.Pins.Outputs, opts.Pins.Analog, opts.Pins.PWM)
}

// newSimBoard returns a board with every switch released and the joystick
// centred.
func newSimBoard() *gpio.FakeBoard {
	b := gpio.NewFakeBoard()
	b.Untraced = true
	b.FakeAnalog(gpio.AnalogJoystickX).Value = gpio.AnalogMax / 2
	b.FakeAnalog(gpio.AnalogJoystickY).Value = gpio.AnalogMax / 2
	return b
}

func statusConfig(opts *config.Options) status.Config {
	debounce := opts.Debounce()
	return status.Config{
		PollMs:         opts.Poll.Milliseconds(),
		DebounceMode:   string(debounce.Mode),
		DebounceUs:     debounce.SettleTime().Microseconds(),
		RenderMode:     opts.Mode().String(),
		RotationTarget: opts.RotationTarget,
		HeartbeatMs:    opts.Heartbeat.Milliseconds(),
		Broker:         opts.Broker,
		HTTPPort:       opts.HTTP,
		Chip:           opts.Chip,
		Simulated:      opts.Sim,
	}
}

// loop is everything the control loop touches. Only the loop goroutine
// reads or writes pins.
type loop struct {
	kit        *kit.Kit
	bus        *events.Bus
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	notifier   systemd.Notifier
	heartbeat  time.Duration
	now        func() time.Time
	tick       <-chan time.Time
	sig        <-chan os.Signal
	commands   <-chan actuator.Command
}

func runLoop(l loop) error {
	log := logging.GetLogger("loop")

	for {
		select {
		case s := <-l.sig:
			log.Info("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if err := l.notifier.Stopping(); err != nil {
				log.Warn("sd_notify failed", "error", err)
			}
			if err := l.kit.Shutdown(); err != nil {
				log.Warn("failed to blank outputs", "error", err)
			}

			// Sent directly rather than over the bus so it goes out before
			// the broker connection closes.
			l.refreshMQTT()
			snap := l.tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  l.now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := l.publisher.PublishSystem(event); err != nil {
				log.Warn("failed to publish shutdown event", "error", err)
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case cmd := <-l.commands:
			t := l.now()
			err := l.kit.Apply(cmd, t)
			if err != nil {
				log.Warn("command rejected", "actuator", cmd.Actuator, "error", err)
			} else {
				log.Info("command applied", "actuator", cmd.Actuator, "value", cmd.Value, "action", cmd.Action)
			}
			l.bus.Publish(events.CommandEvent{Timestamp: t, Command: cmd, Err: err})

		case <-l.tick:
			started := time.Now()
			t := l.now()
			evs, err := l.kit.Step(t)
			metrics.RecordStep(time.Since(started), err)
			if err != nil {
				// The step still drew and emitted what it could.
				log.Warn("step error", "error", err)
			}

			for _, ev := range evs {
				log.Info("event", "type", ev.Type, "channel", ev.Name)
				l.bus.Publish(events.InputEvent{Event: ev})
			}

			state := l.kit.State()
			l.tracker.Update(state)
			l.refreshMQTT()
			metrics.ObserveState(state)

			if hb := l.kit.Registry().CheckHeartbeat(t, l.heartbeat); hb != nil {
				log.Info("heartbeat", "uptime", hb.Uptime, "counts", state.Counts)
				snap := l.tracker.Snapshot()
				l.bus.Publish(events.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     "HEARTBEAT",
					Payload:   status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				})
			}

			if err := l.notifier.Watchdog(t); err != nil {
				log.Warn("sd_notify failed", "error", err)
			}
		}
	}
}

func (l loop) refreshMQTT() {
	if l.mqttStatus == nil {
		return
	}
	connected := l.mqttStatus.IsConnected()
	l.tracker.SetMQTTConnected(connected)
	metrics.SetMQTTConnected(connected)
}
