// Package systemd reports daemon lifecycle to the service manager over the
// sd_notify socket. Outside systemd every call is a no-op.
package systemd

import (
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier reports lifecycle states.
type Notifier interface {
	Ready() error
	// Watchdog pings the watchdog if enough of its interval has passed.
	Watchdog(now time.Time) error
	Stopping() error
	Status(msg string) error
}

// Daemon is the sd_notify backed Notifier.
type Daemon struct {
	notify   func(state string) (bool, error)
	interval time.Duration
	lastPing time.Time
}

// NewDaemon reads the watchdog interval from the environment systemd set up.
func NewDaemon() (*Daemon, error) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return nil, fmt.Errorf("watchdog: %w", err)
	}
	return &Daemon{
		notify:   func(state string) (bool, error) { return daemon.SdNotify(false, state) },
		interval: interval,
	}, nil
}

// WatchdogInterval returns the configured watchdog timeout (0 when disabled).
func (d *Daemon) WatchdogInterval() time.Duration {
	return d.interval
}

func (d *Daemon) send(state string) error {
	if _, err := d.notify(state); err != nil {
		return fmt.Errorf("sd_notify %s: %w", state, err)
	}
	return nil
}

// Ready reports that startup finished.
func (d *Daemon) Ready() error {
	return d.send(daemon.SdNotifyReady)
}

// Watchdog pings at half the watchdog interval.
func (d *Daemon) Watchdog(now time.Time) error {
	if d.interval <= 0 || now.Sub(d.lastPing) < d.interval/2 {
		return nil
	}
	d.lastPing = now
	return d.send(daemon.SdNotifyWatchdog)
}

// Stopping reports that shutdown began.
func (d *Daemon) Stopping() error {
	return d.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (d *Daemon) Status(msg string) error {
	return d.send("STATUS=" + msg)
}

// FakeNotifier records every state it is sent.
type FakeNotifier struct {
	mu     sync.Mutex
	states []string
}

func (f *FakeNotifier) record(state string) error {
	f.mu.Lock()
	f.states = append(f.states, state)
	f.mu.Unlock()
	return nil
}

// Ready records READY=1.
func (f *FakeNotifier) Ready() error { return f.record(daemon.SdNotifyReady) }

// Watchdog records WATCHDOG=1 on every call.
func (f *FakeNotifier) Watchdog(time.Time) error { return f.record(daemon.SdNotifyWatchdog) }

// Stopping records STOPPING=1.
func (f *FakeNotifier) Stopping() error { return f.record(daemon.SdNotifyStopping) }

// Status records STATUS=msg.
func (f *FakeNotifier) Status(msg string) error { return f.record("STATUS=" + msg) }

// States returns the recorded states in order.
func (f *FakeNotifier) States() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.states...)
}
