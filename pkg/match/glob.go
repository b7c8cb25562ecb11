package match

import (
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// RecursiveToken is the wildcard run that crosses segment boundaries.
const RecursiveToken = "**"

// literalMeta holds doublestar metacharacters that ls patterns treat as
// ordinary characters. Only '*' and '?' are wildcards in a listing path.
const literalMeta = `\[]{}`

// escapeLiteralMeta backslash-escapes every character of literalMeta so
// doublestar matches it verbatim.
func escapeLiteralMeta(pattern string) string {
	if !strings.ContainsAny(pattern, literalMeta) {
		return pattern
	}
	var b strings.Builder
	b.Grow(len(pattern) + 4)
	for _, r := range pattern {
		if strings.ContainsRune(literalMeta, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MatchGlob reports whether candidate matches pattern.
//
// '*' matches any run of characters within one segment and '?' matches a
// single non-'/' character. A '**' segment matches zero or more whole
// segments, so "a/**/*.txt" matches both "a/c.txt" and "a/b/c.txt". A '**'
// run inside a segment matches any characters including '/', so "**.jpg"
// matches "2024/a.jpg". Any other character, including '[' and '{',
// matches itself.
//
// MatchGlob never fails: the pattern is escaped before evaluation, so there
// is no malformed input.
func MatchGlob(candidate, pattern string) bool {
	if hasEmbeddedRecursive(pattern) {
		return compileGlob(pattern).MatchString(candidate)
	}
	ok, err := doublestar.Match(escapeLiteralMeta(pattern), candidate)
	return err == nil && ok
}

// hasEmbeddedRecursive reports whether a '**' run shares a segment with
// other characters. doublestar only crosses '/' for whole-segment '**'.
func hasEmbeddedRecursive(pattern string) bool {
	if !strings.Contains(pattern, RecursiveToken) {
		return false
	}
	for _, seg := range strings.Split(pattern, "/") {
		if strings.Contains(seg, RecursiveToken) && strings.Trim(seg, "*") != "" {
			return true
		}
	}
	return false
}

var globCache sync.Map // pattern -> *regexp.Regexp

// compileGlob translates pattern into an anchored regular expression.
func compileGlob(pattern string) *regexp.Regexp {
	if re, ok := globCache.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}

	segs := strings.Split(pattern, "/")
	var b strings.Builder
	b.WriteByte('^')
	for i, seg := range segs {
		last := i == len(segs)-1
		if strings.Count(seg, "*") == len(seg) && len(seg) >= 2 {
			if last {
				b.WriteString(".*")
			} else {
				b.WriteString("(?:[^/]*/)*")
			}
			continue
		}
		for j := 0; j < len(seg); j++ {
			switch seg[j] {
			case '*':
				run := 1
				for j+1 < len(seg) && seg[j+1] == '*' {
					j++
					run++
				}
				if run >= 2 {
					b.WriteString(".*")
				} else {
					b.WriteString("[^/]*")
				}
			case '?':
				b.WriteString("[^/]")
			default:
				b.WriteString(regexp.QuoteMeta(seg[j : j+1]))
			}
		}
		if !last {
			b.WriteByte('/')
		}
	}
	b.WriteByte('$')

	re := regexp.MustCompile(b.String())
	globCache.Store(pattern, re)
	return re
}

// PatternDepth returns the number of '/'-separated segments in pattern.
// The second result is false when the pattern contains '**', whose depth
// is unbounded.
func PatternDepth(pattern string) (int, bool) {
	if strings.Contains(pattern, RecursiveToken) {
		return 0, false
	}
	return len(strings.Split(pattern, "/")), true
}

// HasWildcard reports whether s contains '*' or '?'.
func HasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}
