package match

import (
	"strings"
)

// PatternSpec is the listing plan derived from a path.
//
// When HasGlob is false the path is a literal prefix and ForceRecursive is
// always false.
type PatternSpec struct {
	// LiteralPrefix is the wildcard-free part of the path, up to and
	// including the last '/' before the first wildcard. Without a glob it
	// is the whole path.
	LiteralPrefix string

	// Glob is the pattern after LiteralPrefix. A trailing '/' is completed
	// with '*'.
	Glob string

	// RawGlob is Glob as written, before completion.
	RawGlob string

	HasGlob bool

	// ForceRecursive is set when RawGlob contains '**' or spans more than
	// one segment, which a single delimiter listing cannot answer.
	ForceRecursive bool

	// Depth is PatternDepth(Glob); Bounded is false for '**' patterns.
	Depth   int
	Bounded bool
}

// SplitPattern splits path at the first wildcard.
//
// The literal prefix ends at the last '/' strictly before the wildcard and
// the glob is the remainder. A glob ending in '/' gets a trailing '*'. ok is
// false when path contains no wildcard.
//
// Examples:
//
//	"photos/*/"           -> "photos/", "*/*"
//	"photos/2024/*.jpg"   -> "photos/2024/", "*.jpg"
//	"photos/**/*.jpg"     -> "photos/", "**/*.jpg"
//	"img?.png"            -> "", "img?.png"
func SplitPattern(path string) (literalPrefix, globPattern string, ok bool) {
	literalPrefix, raw, ok := splitRaw(path)
	if !ok {
		return "", "", false
	}
	return literalPrefix, completeGlob(raw), true
}

func splitRaw(path string) (string, string, bool) {
	idx := strings.IndexAny(path, "*?")
	if idx < 0 {
		return "", "", false
	}
	cut := strings.LastIndex(path[:idx], "/") + 1
	return path[:cut], path[cut:], true
}

func completeGlob(raw string) string {
	if strings.HasSuffix(raw, "/") {
		return raw + "*"
	}
	return raw
}

// Plan derives the listing plan for path.
func Plan(path string) PatternSpec {
	prefix, raw, ok := splitRaw(path)
	if !ok {
		return PatternSpec{LiteralPrefix: path}
	}

	glob := completeGlob(raw)
	depth, bounded := PatternDepth(glob)
	return PatternSpec{
		LiteralPrefix:  prefix,
		Glob:           glob,
		RawGlob:        raw,
		HasGlob:        true,
		ForceRecursive: strings.Contains(raw, RecursiveToken) || strings.Contains(raw, "/"),
		Depth:          depth,
		Bounded:        bounded,
	}
}

// Relative strips LiteralPrefix from name. Names outside the prefix are
// returned unchanged.
func (s PatternSpec) Relative(name string) string {
	return strings.TrimPrefix(name, s.LiteralPrefix)
}

// DirectoryOnly reports whether the pattern was written with a trailing
// '/', selecting virtual directories rather than blobs.
func (s PatternSpec) DirectoryOnly() bool {
	return strings.HasSuffix(s.RawGlob, "/")
}

// ViewDepth is the number of segments a reconstructed directory has,
// relative to LiteralPrefix: "*/" views depth 1, "*/logs/" depth 2 and
// "*/*.jpg" depth 2. The second result is false for '**' patterns.
func (s PatternSpec) ViewDepth() (int, bool) {
	return PatternDepth(strings.TrimSuffix(s.RawGlob, "/"))
}

// MatchBlob reports whether a blob name relative to LiteralPrefix
// matches the glob.
func (s PatternSpec) MatchBlob(rel string) bool {
	return MatchGlob(rel, s.Glob)
}

// MatchPrefix reports whether a virtual directory (relative name ending
// in '/') matches. Both "2024/" against "*/" and "2024/" against "2*" are
// matches: the directory matches when its name without the trailing '/'
// matches the pattern as written.
func (s PatternSpec) MatchPrefix(rel string) bool {
	if MatchGlob(rel, s.Glob) {
		return true
	}
	return MatchGlob(rel, strings.TrimSuffix(s.RawGlob, "/")+"/")
}
