package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/mono-kit/internal/matrix"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const heartPatterns = `patterns:
  heart:
    - "01100110"
    - "11111111"
    - "11111111"
    - "11111111"
    - "01111110"
    - "00111100"
    - "00011000"
    - "00000000"
`

func startWatcher(t *testing.T, path string, opts ...WatcherOption[map[string]matrix.Pattern]) (*Watcher[map[string]matrix.Pattern], chan map[string]matrix.Pattern) {
	t.Helper()
	opts = append([]WatcherOption[map[string]matrix.Pattern]{WithDebounce[map[string]matrix.Pattern](20 * time.Millisecond)}, opts...)
	w := NewWatcher(path, matrix.LoadPatterns, quietLogger(), opts...)
	got := make(chan map[string]matrix.Pattern, 4)
	w.OnReload(func(p map[string]matrix.Pattern) { got <- p })
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return w, got
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	if err := os.WriteFile(path, []byte("patterns: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, got := startWatcher(t, path)

	if err := os.WriteFile(path, []byte(heartPatterns), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-got:
		if _, ok := p["heart"]; !ok {
			t.Errorf("reloaded patterns = %v, want heart", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcherSeesReplacedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	if err := os.WriteFile(path, []byte("patterns: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, got := startWatcher(t, path)

	tmp := filepath.Join(dir, "patterns.yaml.tmp")
	if err := os.WriteFile(tmp, []byte(heartPatterns), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-got:
		if _, ok := p["heart"]; !ok {
			t.Errorf("reloaded patterns = %v, want heart", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	if err := os.WriteFile(path, []byte("patterns: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, got := startWatcher(t, path)

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte(heartPatterns), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-got:
		t.Errorf("unexpected reload: %v", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	if err := os.WriteFile(path, []byte("patterns: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, got := startWatcher(t, path, WithDebounce[map[string]matrix.Pattern](150*time.Millisecond))

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(heartPatterns), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	select {
	case <-got:
		t.Error("burst of writes produced more than one reload")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	if err := os.WriteFile(path, []byte("patterns: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	errs := make(chan error, 4)
	_, got := startWatcher(t, path, WithErrorHandler[map[string]matrix.Pattern](func(err error) { errs <- err }))

	if err := os.WriteFile(path, []byte("patterns:\n  bad:\n    - \"0101\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		if !strings.Contains(err.Error(), "bad") {
			t.Errorf("error = %v, want it to name the pattern", err)
		}
	case p := <-got:
		t.Fatalf("handler called with %v for an invalid file", p)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error")
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	if err := os.WriteFile(path, []byte("patterns: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, got := startWatcher(t, path)

	removed := make(chan struct{}, 4)
	unsub := w.OnReload(func(map[string]matrix.Pattern) { removed <- struct{}{} })
	unsub()

	if err := os.WriteFile(path, []byte(heartPatterns), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	select {
	case <-removed:
		t.Error("unsubscribed handler was called")
	default:
	}
}

func TestWatcherStartMissingDir(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "absent", "patterns.yaml"), matrix.LoadPatterns, quietLogger())
	if err := w.Start(); err == nil {
		w.Stop()
		t.Fatal("expected error watching a missing directory")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop on unstarted watcher: %v", err)
	}
}

func TestWatcherStopIdempotentBeforeStart(t *testing.T) {
	w := NewWatcher("patterns.yaml", func(string) (int, error) { return 0, errors.New("unused") }, quietLogger())
	if err := w.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
