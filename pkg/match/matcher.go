// Package match splits listing paths into a literal prefix and a glob,
// evaluates globs against blob names and applies exclude rules.
package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher applies exclude patterns and hidden-segment rules to blob names.
//
// Exclude patterns use full doublestar syntax, including character classes
// and alternation, and are matched against the whole blob name. A
// backslash escapes the next metacharacter, so `tmp\*` excludes only the
// literal name "tmp*". A Matcher is safe for concurrent use after creation.
type Matcher struct {
	excludes      []string
	excludeHidden bool
}

// Config configures a Matcher.
type Config struct {
	// Excludes are glob patterns; a name matching any of them is rejected.
	Excludes []string

	// ExcludeHidden rejects names with a segment starting with '.'.
	ExcludeHidden bool
}

// ErrInvalidPattern is returned when an exclude pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a Matcher. Every exclude pattern is validated up front.
func New(cfg Config) (*Matcher, error) {
	excludes := make([]string, 0, len(cfg.Excludes))
	for _, pattern := range cfg.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, &PatternError{Pattern: pattern, Err: ErrInvalidPattern}
		}
		excludes = append(excludes, pattern)
	}

	return &Matcher{excludes: excludes, excludeHidden: cfg.ExcludeHidden}, nil
}

// Empty reports whether the matcher accepts every name.
func (m *Matcher) Empty() bool {
	return m == nil || (len(m.excludes) == 0 && !m.excludeHidden)
}

// Allow returns true unless name is hidden (when configured) or matches an
// exclude pattern. Directory names ending in '/' are also tested without
// the trailing slash so "tmp" excludes the virtual directory "tmp/".
func (m *Matcher) Allow(name string) bool {
	if m.Empty() {
		return true
	}

	if m.excludeHidden && IsHidden(name) {
		return false
	}

	trimmed := strings.TrimSuffix(name, "/")
	for _, exc := range m.excludes {
		if matchPattern(exc, name) || (trimmed != name && matchPattern(exc, trimmed)) {
			return false
		}
	}
	return true
}

// ExcludePatterns returns the exclude patterns as given.
func (m *Matcher) ExcludePatterns() []string {
	out := make([]string, len(m.excludes))
	copy(out, m.excludes)
	return out
}

// matchPattern matches a key against a validated doublestar pattern.
func matchPattern(pattern, key string) bool {
	matched, err := doublestar.Match(pattern, key)
	if err != nil {
		return false
	}
	return matched
}

// IsHidden reports whether any '/'-separated segment of name starts with
// '.'. Blob names are opaque, so a backslash is not a separator.
func IsHidden(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
