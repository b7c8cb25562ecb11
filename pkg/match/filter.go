package match

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/3leaps/azst/pkg/provider"
)

// Filter evaluates whether a listed entry passes filter criteria.
//
// Filters see only what a listing page returns (name, size, last
// modified). Size and date filters apply to blobs; virtual directories
// carry neither and always pass them.
type Filter interface {
	Match(e provider.Entry) bool
	String() string
}

// FilterConfig holds filter criteria from CLI flags.
type FilterConfig struct {
	// MinSize and MaxSize are inclusive bounds such as "1KB" or "100MiB".
	MinSize string
	MaxSize string

	// After is inclusive, Before exclusive. Both accept "2024-01-15" or
	// RFC 3339 timestamps.
	After  string
	Before string

	// NameRegex is applied to the full blob name after glob matching.
	NameRegex string

	Excludes      []string
	ExcludeHidden bool
}

// Filter errors.
var (
	ErrInvalidSize  = errors.New("invalid size value")
	ErrInvalidDate  = errors.New("invalid date value")
	ErrInvalidRegex = errors.New("invalid regex pattern")
)

// SizeFilter filters blobs by size range.
type SizeFilter struct {
	min int64 // -1 means no minimum
	max int64 // -1 means no maximum
}

// NewSizeFilter returns nil when neither bound is set.
func NewSizeFilter(minSize, maxSize string) (*SizeFilter, error) {
	if minSize == "" && maxSize == "" {
		return nil, nil
	}

	f := &SizeFilter{min: -1, max: -1}
	if minSize != "" {
		size, err := ParseSize(minSize)
		if err != nil {
			return nil, fmt.Errorf("min size: %w", err)
		}
		f.min = size
	}
	if maxSize != "" {
		size, err := ParseSize(maxSize)
		if err != nil {
			return nil, fmt.Errorf("max size: %w", err)
		}
		f.max = size
	}

	if f.min >= 0 && f.max >= 0 && f.min > f.max {
		return nil, fmt.Errorf("%w: min (%d) > max (%d)", ErrInvalidSize, f.min, f.max)
	}
	return f, nil
}

func (f *SizeFilter) Match(e provider.Entry) bool {
	if e.IsPrefix() {
		return true
	}
	if f.min >= 0 && e.Size < f.min {
		return false
	}
	if f.max >= 0 && e.Size > f.max {
		return false
	}
	return true
}

func (f *SizeFilter) String() string {
	switch {
	case f.min >= 0 && f.max >= 0:
		return fmt.Sprintf("size: %s - %s", FormatSize(f.min), FormatSize(f.max))
	case f.min >= 0:
		return fmt.Sprintf("size: >= %s", FormatSize(f.min))
	default:
		return fmt.Sprintf("size: <= %s", FormatSize(f.max))
	}
}

// DateFilter filters blobs by last-modified range.
type DateFilter struct {
	after  time.Time
	before time.Time
}

// NewDateFilter returns nil when neither bound is set.
func NewDateFilter(after, before string) (*DateFilter, error) {
	if after == "" && before == "" {
		return nil, nil
	}

	f := &DateFilter{}
	if after != "" {
		t, err := ParseDate(after)
		if err != nil {
			return nil, fmt.Errorf("after date: %w", err)
		}
		f.after = t
	}
	if before != "" {
		t, err := ParseDate(before)
		if err != nil {
			return nil, fmt.Errorf("before date: %w", err)
		}
		f.before = t
	}

	if !f.after.IsZero() && !f.before.IsZero() && !f.after.Before(f.before) {
		return nil, fmt.Errorf("%w: after (%s) >= before (%s)", ErrInvalidDate, f.after, f.before)
	}
	return f, nil
}

func (f *DateFilter) Match(e provider.Entry) bool {
	if e.IsPrefix() {
		return true
	}
	if !f.after.IsZero() && e.LastModified.Before(f.after) {
		return false
	}
	if !f.before.IsZero() && !e.LastModified.Before(f.before) {
		return false
	}
	return true
}

func (f *DateFilter) String() string {
	switch {
	case !f.after.IsZero() && !f.before.IsZero():
		return fmt.Sprintf("modified: %s to %s", f.after.Format("2006-01-02"), f.before.Format("2006-01-02"))
	case !f.after.IsZero():
		return fmt.Sprintf("modified: on/after %s", f.after.Format("2006-01-02"))
	default:
		return fmt.Sprintf("modified: before %s", f.before.Format("2006-01-02"))
	}
}

// RegexFilter filters blobs by name. Virtual directories always pass.
type RegexFilter struct {
	pattern *regexp.Regexp
}

// NewRegexFilter returns nil when pattern is empty.
func NewRegexFilter(pattern string) (*RegexFilter, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
	}
	return &RegexFilter{pattern: re}, nil
}

func (f *RegexFilter) Match(e provider.Entry) bool {
	if e.IsPrefix() {
		return true
	}
	return f.pattern.MatchString(e.Name)
}

func (f *RegexFilter) String() string {
	return "name_regex: " + f.pattern.String()
}

// ExcludeFilter adapts a Matcher to the Filter interface.
type ExcludeFilter struct {
	m *Matcher
}

func (f *ExcludeFilter) Match(e provider.Entry) bool {
	return f.m.Allow(e.Name)
}

func (f *ExcludeFilter) String() string {
	return "exclude: " + strings.Join(f.m.ExcludePatterns(), ",")
}

// CompositeFilter combines filters with AND semantics.
type CompositeFilter struct {
	filters []Filter
}

// NewFilterFromConfig builds the filter chain for cfg. It returns nil when
// no criteria are set; a nil *CompositeFilter matches everything.
func NewFilterFromConfig(cfg FilterConfig) (*CompositeFilter, error) {
	var filters []Filter

	sizeFilter, err := NewSizeFilter(cfg.MinSize, cfg.MaxSize)
	if err != nil {
		return nil, err
	}
	if sizeFilter != nil {
		filters = append(filters, sizeFilter)
	}

	dateFilter, err := NewDateFilter(cfg.After, cfg.Before)
	if err != nil {
		return nil, err
	}
	if dateFilter != nil {
		filters = append(filters, dateFilter)
	}

	regexFilter, err := NewRegexFilter(cfg.NameRegex)
	if err != nil {
		return nil, err
	}
	if regexFilter != nil {
		filters = append(filters, regexFilter)
	}

	m, err := New(Config{Excludes: cfg.Excludes, ExcludeHidden: cfg.ExcludeHidden})
	if err != nil {
		return nil, err
	}
	if !m.Empty() {
		filters = append(filters, &ExcludeFilter{m: m})
	}

	if len(filters) == 0 {
		return nil, nil
	}
	return &CompositeFilter{filters: filters}, nil
}

// Match returns true if all filters pass.
func (f *CompositeFilter) Match(e provider.Entry) bool {
	if f == nil {
		return true
	}
	for _, filter := range f.filters {
		if !filter.Match(e) {
			return false
		}
	}
	return true
}

// Apply returns the entries of page that pass, reusing page's backing array.
func (f *CompositeFilter) Apply(page []provider.Entry) []provider.Entry {
	if f == nil {
		return page
	}
	kept := page[:0]
	for _, e := range page {
		if f.Match(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

func (f *CompositeFilter) String() string {
	if f == nil || len(f.filters) == 0 {
		return "no filters"
	}
	parts := make([]string, len(f.filters))
	for i, filter := range f.filters {
		parts[i] = filter.String()
	}
	return strings.Join(parts, ", ")
}

// ParseSize parses a human-readable size. KB, MB and GB are base-10;
// KiB, MiB and GiB are base-2. A bare number is bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: size overflows int64", ErrInvalidSize)
	}
	return int64(n), nil
}

// FormatSize formats bytes using base-2 units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// ParseDate parses "2006-01-02" or an RFC 3339 timestamp, normalized to UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
