package matrix

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Library is a named set of patterns: the built-ins plus any loaded from a
// pattern file. Safe for concurrent use; the file watcher replaces custom
// patterns while the control loop reads them.
type Library struct {
	mu     sync.RWMutex
	custom map[string]Pattern
}

// NewLibrary creates a library holding only the built-in patterns.
func NewLibrary() *Library {
	return &Library{custom: make(map[string]Pattern)}
}

var builtins = func() map[string]Pattern {
	m := map[string]Pattern{
		NameBlank: Blank,
		NameLeft:  Left,
		NameRight: Right,
		NameUp:    Up,
		NameDown:  Down,
	}
	for n := 1; n <= Rows; n++ {
		m["left_"+strconv.Itoa(n)] = LeftBar(n)
		m["up_"+strconv.Itoa(n)] = UpBar(n)
	}
	return m
}()

// Get returns the named pattern. Custom patterns shadow built-ins.
func (l *Library) Get(name string) (Pattern, bool) {
	l.mu.RLock()
	p, ok := l.custom[name]
	l.mu.RUnlock()
	if ok {
		return p, true
	}
	p, ok = builtins[name]
	return p, ok
}

// Names returns every pattern name, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]bool, len(builtins)+len(l.custom))
	for name := range builtins {
		seen[name] = true
	}
	for name := range l.custom {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Replace swaps the custom patterns for custom.
func (l *Library) Replace(custom map[string]Pattern) {
	cp := make(map[string]Pattern, len(custom))
	for k, v := range custom {
		cp[k] = v
	}
	l.mu.Lock()
	l.custom = cp
	l.mu.Unlock()
}

// patternFile is the YAML layout of a pattern file:
//
//	patterns:
//	  heart:
//	    - "01100110"
//	    - ...
type patternFile struct {
	Patterns map[string][]string `yaml:"patterns"`
}

// LoadPatterns reads custom patterns from a YAML file.
func LoadPatterns(path string) (map[string]Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns: %w", err)
	}
	return ParsePatterns(data)
}

// ParsePatterns decodes custom patterns from YAML.
func ParsePatterns(data []byte) (map[string]Pattern, error) {
	var f patternFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse patterns: %w", err)
	}
	out := make(map[string]Pattern, len(f.Patterns))
	for name, rows := range f.Patterns {
		p, err := ParsePattern(rows)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", name, err)
		}
		out[name] = p
	}
	return out, nil
}
