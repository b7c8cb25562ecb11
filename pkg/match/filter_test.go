package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/azst/pkg/provider"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "raw bytes", input: "1024", want: 1024},
		{name: "zero", input: "0", want: 0},
		{name: "KB", input: "1KB", want: 1000},
		{name: "KB lowercase", input: "1kb", want: 1000},
		{name: "MB", input: "100MB", want: 100 * 1000 * 1000},
		{name: "KiB", input: "1KiB", want: 1024},
		{name: "MiB", input: "100MiB", want: 100 * 1024 * 1024},
		{name: "decimal", input: "1.5KB", want: 1500},
		{name: "space before unit", input: "100 MB", want: 100 * 1000 * 1000},
		{name: "trailing space", input: "100MB ", want: 100 * 1000 * 1000},
		{name: "empty", input: "", wantErr: true},
		{name: "negative", input: "-1KB", wantErr: true},
		{name: "unknown unit", input: "100XB", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSize)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KiB", FormatSize(1536))
	assert.Equal(t, "0 B", FormatSize(-5))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "date only", input: "2024-01-15", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", input: "2024-01-15T10:30:00Z", want: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{name: "offset normalized", input: "2024-01-15T10:30:00+02:00", want: time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestSizeFilter(t *testing.T) {
	f, err := NewSizeFilter("1KB", "1MB")
	require.NoError(t, err)

	assert.False(t, f.Match(provider.BlobEntry("small", 999, time.Time{}, "")))
	assert.True(t, f.Match(provider.BlobEntry("lower bound", 1000, time.Time{}, "")))
	assert.True(t, f.Match(provider.BlobEntry("upper bound", 1000*1000, time.Time{}, "")))
	assert.False(t, f.Match(provider.BlobEntry("big", 1000*1000+1, time.Time{}, "")))
	assert.True(t, f.Match(provider.PrefixEntry("dir/")), "directories carry no size")

	none, err := NewSizeFilter("", "")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = NewSizeFilter("2MB", "1MB")
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestDateFilter(t *testing.T) {
	f, err := NewDateFilter("2024-01-01", "2024-02-01")
	require.NoError(t, err)

	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)

	assert.True(t, f.Match(provider.BlobEntry("a", 1, jan, "")))
	assert.False(t, f.Match(provider.BlobEntry("a", 1, feb, "")), "before is exclusive")
	assert.False(t, f.Match(provider.BlobEntry("a", 1, dec, "")))
	assert.True(t, f.Match(provider.PrefixEntry("dir/")))

	_, err = NewDateFilter("2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestRegexFilter(t *testing.T) {
	f, err := NewRegexFilter(`\.jpe?g$`)
	require.NoError(t, err)
	assert.True(t, f.Match(provider.BlobEntry("photos/a.jpg", 1, time.Time{}, "")))
	assert.False(t, f.Match(provider.BlobEntry("photos/a.png", 1, time.Time{}, "")))
	assert.True(t, f.Match(provider.PrefixEntry("photos/2024/")), "directories are not name-filtered")

	empty, err := NewRegexFilter("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = NewRegexFilter("(")
	assert.ErrorIs(t, err, ErrInvalidRegex)
}

func TestNewFilterFromConfig(t *testing.T) {
	f, err := NewFilterFromConfig(FilterConfig{})
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.True(t, f.Match(provider.BlobEntry("anything", 0, time.Time{}, "")))
	assert.Equal(t, "no filters", f.String())

	f, err = NewFilterFromConfig(FilterConfig{
		MinSize:  "10",
		Excludes: []string{"**/*.tmp"},
	})
	require.NoError(t, err)
	require.NotNil(t, f)

	page := []provider.Entry{
		provider.BlobEntry("logs/a.log", 100, time.Time{}, ""),
		provider.BlobEntry("logs/b.tmp", 100, time.Time{}, ""),
		provider.BlobEntry("logs/c.log", 5, time.Time{}, ""),
		provider.PrefixEntry("logs/old/"),
	}
	kept := f.Apply(page)
	require.Len(t, kept, 2)
	assert.Equal(t, "logs/a.log", kept[0].Name)
	assert.Equal(t, "logs/old/", kept[1].Name)
	assert.Contains(t, f.String(), "exclude: **/*.tmp")

	f, err = NewFilterFromConfig(FilterConfig{ExcludeHidden: true})
	require.NoError(t, err)
	kept = f.Apply([]provider.Entry{
		provider.BlobEntry("logs/a.log", 1, time.Time{}, ""),
		provider.BlobEntry("logs/.lock", 1, time.Time{}, ""),
		provider.PrefixEntry("logs/.trash/"),
	})
	require.Len(t, kept, 1)
	assert.Equal(t, "logs/a.log", kept[0].Name)

	_, err = NewFilterFromConfig(FilterConfig{Excludes: []string{"[unterminated"}})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
