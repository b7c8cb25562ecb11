package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "no excludes", cfg: Config{}},
		{name: "valid excludes", cfg: Config{Excludes: []string{"**/*.tmp", "cache/**"}}},
		{name: "escaped metacharacter", cfg: Config{Excludes: []string{`cache/tmp\*`}}},
		{name: "invalid exclude", cfg: Config{Excludes: []string{"[abc"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				var pe *PatternError
				require.True(t, errors.As(err, &pe))
				assert.ErrorIs(t, err, ErrInvalidPattern)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, m)
		})
	}
}

func TestMatcher_Allow(t *testing.T) {
	m, err := New(Config{
		Excludes:      []string{"**/*.tmp", "cache", "build/out/**", `data/star\*.txt`},
		ExcludeHidden: true,
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{name: "plain blob", key: "data/a.txt", want: true},
		{name: "excluded extension", key: "data/a.tmp", want: false},
		{name: "excluded directory prefix", key: "cache/", want: false},
		{name: "recursive exclude", key: "build/out/x.bin", want: false},
		{name: "escaped star is literal", key: "data/star*.txt", want: false},
		{name: "escaped star does not glob", key: "data/stars.txt", want: true},
		{name: "backslash name is opaque", key: `build\out\x.bin`, want: true},
		{name: "hidden segment", key: "data/.git/config", want: false},
		{name: "dot at end is not hidden", key: "data/file.", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Allow(tt.key))
		})
	}
}

func TestMatcher_Empty(t *testing.T) {
	var nilMatcher *Matcher
	assert.True(t, nilMatcher.Empty())
	assert.True(t, nilMatcher.Allow(".hidden"))

	m, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, m.Empty())

	m, err = New(Config{ExcludeHidden: true})
	require.NoError(t, err)
	assert.False(t, m.Empty())
}

func TestMatcher_ExcludePatterns(t *testing.T) {
	m, err := New(Config{Excludes: []string{`a/b\*.tmp`, "**/*.log"}})
	require.NoError(t, err)
	assert.Equal(t, []string{`a/b\*.tmp`, "**/*.log"}, m.ExcludePatterns())
}

func TestPatternError(t *testing.T) {
	err := &PatternError{Pattern: "[bad", Err: ErrInvalidPattern}
	assert.Equal(t, "pattern [bad: invalid glob pattern", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidPattern))
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"empty", "", false},
		{"plain blob", "photos/2024/a.jpg", false},
		{"hidden blob", "photos/2024/.thumbs", true},
		{"hidden directory", ".snapshots/2024/a.jpg", true},
		{"hidden virtual directory", "photos/.cache/", true},
		{"dot inside name", "photos/a.jpg.", false},
		{"backslash is not a separator", `photos\.cache\a.jpg`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHidden(tt.key))
		})
	}
}
