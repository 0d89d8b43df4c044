// Package config resolves daemon settings from CLI flags, MONOKIT_*
// environment variables, a TOML file and built-in defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sweeney/mono-kit/internal/gpio"
	"github.com/sweeney/mono-kit/internal/logging"
	"github.com/sweeney/mono-kit/internal/logic"
	"github.com/sweeney/mono-kit/internal/matrix"
)

// ErrInvalid is returned by Validate for settings the daemon cannot run with.
var ErrInvalid = errors.New("invalid config")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MONOKIT_"

// DefaultPath is where the daemon looks for its config file.
const DefaultPath = "/etc/mono-kit/mono-kit.toml"

// Render modes accepted by RenderMode.
const (
	RenderCaller = "caller"
	RenderSelf   = "self"
)

// Options holds every scalar setting. The toml tag is a dotted path into the
// config file, env names the MONOKIT_ variable and flag overrides the CLI
// flag name derived from the field name.
type Options struct {
	Config string `flag:"config"`

	Poll      time.Duration `toml:"loop.poll" env:"POLL"`
	Heartbeat time.Duration `toml:"loop.heartbeat" env:"HEARTBEAT"`

	DebounceUs     int `toml:"input.debounce_us" env:"DEBOUNCE_US"`
	RotationTarget int `toml:"input.rotation_target" env:"ROTATION_TARGET"`

	RenderMode string        `toml:"matrix.mode" env:"RENDER_MODE"`
	Refresh    time.Duration `toml:"matrix.refresh" env:"REFRESH"`
	Patterns   string        `toml:"matrix.patterns" env:"PATTERNS"`

	Broker   string `toml:"mqtt.broker" env:"BROKER"`
	ClientID string `toml:"mqtt.client_id" env:"CLIENT_ID"`

	HTTP string `toml:"http.addr" env:"HTTP" flag:"http"`

	Chip string `toml:"gpio.chip" env:"CHIP"`
	Sim  bool   `toml:"gpio.sim" env:"SIM"`

	LogLevel  string `toml:"logging.level" env:"LOG_LEVEL"`
	LogFormat string `toml:"logging.format" env:"LOG_FORMAT"`

	PrintState bool

	// Pins is read from the [gpio] tables of the config file only.
	Pins Pins
	// LogModules holds per-module levels: any other key under [logging].
	LogModules map[string]string
}

// Pins is the board wiring. Entries in the config file replace the default
// entry with the same name; new names are appended.
type Pins struct {
	Inputs  []gpio.PinSpec    `toml:"inputs"`
	Outputs []gpio.PinSpec    `toml:"outputs"`
	Analog  []gpio.AnalogSpec `toml:"analog"`
	PWM     []gpio.PWMSpec    `toml:"pwm"`
}

// DefaultPins returns the kit's stock wiring.
func DefaultPins() Pins {
	return Pins{
		Inputs:  append([]gpio.PinSpec(nil), gpio.DefaultInputPins...),
		Outputs: append([]gpio.PinSpec(nil), gpio.DefaultOutputPins...),
		Analog:  append([]gpio.AnalogSpec(nil), gpio.DefaultAnalogPins...),
		PWM:     append([]gpio.PWMSpec(nil), gpio.DefaultPWMPins...),
	}
}

// Defaults returns the built-in settings.
func Defaults() Options {
	return Options{
		Config:         DefaultPath,
		Poll:           2 * time.Millisecond,
		Heartbeat:      15 * time.Minute,
		DebounceUs:     60,
		RotationTarget: 1,
		RenderMode:     RenderCaller,
		Refresh:        matrix.DefaultRefresh,
		Broker:         "tcp://localhost:1883",
		ClientID:       "mono-kit",
		HTTP:           ":8080",
		Chip:           gpio.DefaultChip,
		LogLevel:       "info",
		LogFormat:      "text",
		Pins:           DefaultPins(),
		LogModules:     map[string]string{},
	}
}

// fileLayout is the part of the config file that is decoded by type rather
// than through the dotted toml tags.
type fileLayout struct {
	GPIO    Pins           `toml:"gpio"`
	Logging map[string]any `toml:"logging"`
}

// Load overlays the config file and the environment onto opts. Flags that
// were set on cmd are left alone. A missing config file is not an error.
func Load(opts *Options, cmd *cobra.Command) error {
	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	if opts.Config != "" {
		data, err := os.ReadFile(opts.Config)
		switch {
		case errors.Is(err, os.ErrNotExist) && !changed["config"]:
		case err != nil:
			return fmt.Errorf("read config: %w", err)
		default:
			if err := applyFile(opts, v, t, data, changed); err != nil {
				return err
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if changed[flagName(field)] {
			continue
		}
		if key := field.Tag.Get("env"); key != "" {
			if value, ok := os.LookupEnv(EnvPrefix + key); ok && value != "" {
				if err := setFieldValueFromString(v.Field(i), value); err != nil {
					return fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
				}
			}
		}
	}
	return nil
}

func applyFile(opts *Options, v reflect.Value, t reflect.Type, data []byte, changed map[string]bool) error {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if changed[flagName(field)] {
			continue
		}
		path := field.Tag.Get("toml")
		if path == "" {
			continue
		}
		if value := getNestedValue(raw, path); value != nil {
			if err := setFieldValue(v.Field(i), value); err != nil {
				return fmt.Errorf("config %s: %w", path, err)
			}
		}
	}

	var layout fileLayout
	if err := toml.Unmarshal(data, &layout); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	opts.Pins.Inputs = mergePins(opts.Pins.Inputs, layout.GPIO.Inputs)
	opts.Pins.Outputs = mergePins(opts.Pins.Outputs, layout.GPIO.Outputs)
	opts.Pins.Analog = mergeByName(opts.Pins.Analog, layout.GPIO.Analog, func(s gpio.AnalogSpec) string { return s.Name })
	opts.Pins.PWM = mergeByName(opts.Pins.PWM, layout.GPIO.PWM, func(s gpio.PWMSpec) string { return s.Name })

	if opts.LogModules == nil {
		opts.LogModules = make(map[string]string)
	}
	for key, value := range layout.Logging {
		if key == "level" || key == "format" {
			continue
		}
		if s, ok := value.(string); ok {
			opts.LogModules[key] = s
		}
	}
	return nil
}

func mergePins(base, override []gpio.PinSpec) []gpio.PinSpec {
	return mergeByName(base, override, func(p gpio.PinSpec) string { return p.Name })
}

func mergeByName[T any](base, override []T, name func(T) string) []T {
	out := append([]T(nil), base...)
	for _, o := range override {
		replaced := false
		for i := range out {
			if name(out[i]) == name(o) {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}

// Validate rejects settings the daemon cannot run with.
func (o *Options) Validate() error {
	switch {
	case o.Poll <= 0:
		return fmt.Errorf("%w: poll must be positive, got %v", ErrInvalid, o.Poll)
	case o.DebounceUs < 0:
		return fmt.Errorf("%w: debounce-us must not be negative, got %d", ErrInvalid, o.DebounceUs)
	case o.RenderMode != RenderCaller && o.RenderMode != RenderSelf:
		return fmt.Errorf("%w: render-mode must be %q or %q, got %q", ErrInvalid, RenderCaller, RenderSelf, o.RenderMode)
	case o.RenderMode == RenderSelf && o.Refresh <= 0:
		return fmt.Errorf("%w: refresh must be positive in self-timed mode, got %v", ErrInvalid, o.Refresh)
	case o.LogFormat != "text" && o.LogFormat != "json":
		return fmt.Errorf("%w: log-format must be text or json, got %q", ErrInvalid, o.LogFormat)
	}
	for _, table := range [][]gpio.PinSpec{o.Pins.Inputs, o.Pins.Outputs} {
		for _, p := range table {
			if p.Name == "" || p.Offset < 0 {
				return fmt.Errorf("%w: pin %q offset %d", ErrInvalid, p.Name, p.Offset)
			}
		}
	}
	return nil
}

// Debounce returns the input debounce strategy. Zero disables the filter.
func (o *Options) Debounce() logic.Debounce {
	return logic.FixedDelay(time.Duration(o.DebounceUs) * time.Microsecond)
}

// Mode returns the matrix render mode.
func (o *Options) Mode() matrix.Mode {
	if o.RenderMode == RenderSelf {
		return matrix.SelfTimed(o.Refresh)
	}
	return matrix.CallerTimed()
}

// Logging returns the logging settings.
func (o *Options) Logging() logging.Config {
	modules := make(map[string]string, len(o.LogModules))
	for k, v := range o.LogModules {
		modules[k] = v
	}
	return logging.Config{Level: o.LogLevel, Format: o.LogFormat, Modules: modules}
}

// flagName returns the CLI flag bound to a field: the flag tag, or the field
// name split at capitals ("RenderMode" -> "render-mode").
func flagName(field reflect.StructField) string {
	if name := field.Tag.Get("flag"); name != "" {
		return name
	}
	return fieldNameToFlag(field.Name)
}

func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue looks up a dotted path in decoded TOML.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data
	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldValue stores a decoded TOML value. Durations are written as
// strings ("250ms") in the file.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}
	if field.Type() == durationType {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("want a duration string, got %T", value)
		}
		return setFieldValueFromString(field, s)
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("want a string, got %T", value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("want a bool, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		default:
			return fmt.Errorf("want an integer, got %T", value)
		}
	}
	return nil
}

// setFieldValueFromString parses an environment value into field.
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	}
	return nil
}
