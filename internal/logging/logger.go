// Package logging configures log/slog for the daemon: one logger per
// module, text or JSON on stdout, mirrored to the systemd journal when it
// is reachable.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mutex         sync.RWMutex
	globalConfig  Config
	isInitialized bool
	output        io.Writer = os.Stdout
	journalOn               = journalAvailable
	moduleLoggers           = make(map[string]*slog.Logger)
	moduleLevels            = make(map[string]*slog.LevelVar)
)

// Initialize sets up the logging system. Loggers handed out earlier are
// rebuilt so they pick up the new format and levels.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	for module, levelVar := range moduleLevels {
		levelVar.Set(moduleLevel(module))
		moduleLoggers[module] = slog.New(createHandler(config.Format, levelVar)).With("module", module)
	}

	global := &slog.LevelVar{}
	global.Set(parseLevel(config.Level, slog.LevelInfo))
	slog.SetDefault(slog.New(createHandler(config.Format, global)))
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, ok := moduleLoggers[module]; ok {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(moduleLevel(module))

	logger := slog.New(createHandler(globalConfig.Format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevels[module] = levelVar
	return logger
}

// SetLevel changes a module's level at runtime.
func SetLevel(module, level string) {
	GetLogger(module)

	mutex.Lock()
	defer mutex.Unlock()
	moduleLevels[module].Set(parseLevel(level, slog.LevelInfo))
}

// moduleLevel must be called with mutex held.
func moduleLevel(module string) slog.Level {
	if !isInitialized {
		return slog.LevelInfo
	}
	level := parseLevel(globalConfig.Level, slog.LevelInfo)
	if s, ok := globalConfig.Modules[module]; ok {
		level = parseLevel(s, level)
	}
	return level
}

func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var out slog.Handler
	if strings.EqualFold(format, "json") {
		out = slog.NewJSONHandler(output, opts)
	} else {
		out = slog.NewTextHandler(output, opts)
	}

	if !journalOn() {
		return out
	}
	return NewMultiHandler(out, NewJournalHandler(level))
}

func parseLevel(level string, fallback slog.Level) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
