package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPattern(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantPrefix string
		wantGlob   string
		wantOK     bool
	}{
		{name: "no wildcard", path: "photos/2024/", wantOK: false},
		{name: "empty", path: "", wantOK: false},
		{name: "directory wildcard", path: "photos/*/", wantPrefix: "photos/", wantGlob: "*/*", wantOK: true},
		{name: "leaf wildcard", path: "photos/2024/*.jpg", wantPrefix: "photos/2024/", wantGlob: "*.jpg", wantOK: true},
		{name: "recursive", path: "photos/**/*.jpg", wantPrefix: "photos/", wantGlob: "**/*.jpg", wantOK: true},
		{name: "no slash before wildcard", path: "img?.png", wantPrefix: "", wantGlob: "img?.png", wantOK: true},
		{name: "partial segment", path: "logs/app-*/2024/", wantPrefix: "logs/", wantGlob: "app-*/2024/*", wantOK: true},
		{name: "first wildcard wins", path: "a/b?/c/*", wantPrefix: "a/", wantGlob: "b?/c/*", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix, glob, ok := SplitPattern(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPrefix, prefix)
			assert.Equal(t, tt.wantGlob, glob)
		})
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		want           PatternSpec
		wantViewDepth  int
		wantDirOnly    bool
		wantViewBounds bool
	}{
		{
			name: "literal",
			path: "photos/2024/",
			want: PatternSpec{LiteralPrefix: "photos/2024/"},
		},
		{
			name: "single segment stays hierarchical",
			path: "photos/2*",
			want: PatternSpec{
				LiteralPrefix: "photos/", Glob: "2*", RawGlob: "2*", HasGlob: true,
				Depth: 1, Bounded: true,
			},
			wantViewDepth: 1, wantViewBounds: true,
		},
		{
			name: "trailing slash forces recursion",
			path: "photos/*/",
			want: PatternSpec{
				LiteralPrefix: "photos/", Glob: "*/*", RawGlob: "*/", HasGlob: true,
				ForceRecursive: true, Depth: 2, Bounded: true,
			},
			wantViewDepth: 1, wantDirOnly: true, wantViewBounds: true,
		},
		{
			name: "multi segment leaf pattern",
			path: "photos/*/*.jpg",
			want: PatternSpec{
				LiteralPrefix: "photos/", Glob: "*/*.jpg", RawGlob: "*/*.jpg", HasGlob: true,
				ForceRecursive: true, Depth: 2, Bounded: true,
			},
			wantViewDepth: 2, wantViewBounds: true,
		},
		{
			name: "recursive token",
			path: "photos/**/*.jpg",
			want: PatternSpec{
				LiteralPrefix: "photos/", Glob: "**/*.jpg", RawGlob: "**/*.jpg", HasGlob: true,
				ForceRecursive: true,
			},
		},
		{
			name: "recursive token in one segment",
			path: "photos/**",
			want: PatternSpec{
				LiteralPrefix: "photos/", Glob: "**", RawGlob: "**", HasGlob: true,
				ForceRecursive: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Plan(tt.path)
			assert.Equal(t, tt.want, got)
			if !got.HasGlob {
				assert.False(t, got.ForceRecursive)
				return
			}
			depth, bounded := got.ViewDepth()
			assert.Equal(t, tt.wantViewBounds, bounded)
			assert.Equal(t, tt.wantViewDepth, depth)
			assert.Equal(t, tt.wantDirOnly, got.DirectoryOnly())
		})
	}
}

func TestPatternSpec_Match(t *testing.T) {
	dirs := Plan("photos/*/")
	assert.True(t, dirs.MatchPrefix("2024/"))
	assert.Equal(t, "2024/a.jpg", dirs.Relative("photos/2024/a.jpg"))

	partial := Plan("photos/2*")
	assert.True(t, partial.MatchPrefix("2024/"))
	assert.False(t, partial.MatchPrefix("1999/"))
	assert.True(t, partial.MatchBlob("2.txt"))
	assert.False(t, partial.MatchBlob("2024/a.jpg"))

	leaves := Plan("photos/*/*.jpg")
	assert.True(t, leaves.MatchBlob("2024/a.jpg"))
	assert.False(t, leaves.MatchPrefix("2024/raw/"))
	assert.True(t, leaves.MatchPrefix("2024/album.jpg/"))
}
