package link

import (
	"fmt"
	"regexp"
)

// DefaultPattern matches Mininet-style port names such as r1-eth0.
const DefaultPattern = "eth"

// Selector decides which host interfaces become router ports.
type Selector struct {
	pattern *regexp.Regexp
	exclude map[string]struct{}
}

// NewSelector compiles pattern (matched anywhere in the interface name) and
// the exact names to exclude.
func NewSelector(pattern string, exclude []string) (Selector, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Selector{}, fmt.Errorf("invalid interface pattern %q: %w", pattern, err)
	}
	s := Selector{pattern: re, exclude: make(map[string]struct{}, len(exclude))}
	for _, name := range exclude {
		s.exclude[name] = struct{}{}
	}
	return s, nil
}

// Match reports whether name is selected.
func (s Selector) Match(name string) bool {
	if _, skip := s.exclude[name]; skip {
		return false
	}
	if s.pattern == nil {
		return false
	}
	return s.pattern.MatchString(name)
}

func (s Selector) String() string {
	if s.pattern == nil {
		return ""
	}
	return s.pattern.String()
}
