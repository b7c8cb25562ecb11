package listing

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/azst/pkg/match"
	"github.com/3leaps/azst/pkg/provider"
	"github.com/3leaps/azst/pkg/provider/memory"
)

func photos(pageSize int) *memory.Provider {
	p := memory.New("media", pageSize)
	p.PutSize("photos/2024/a.jpg", 100)
	p.PutSize("photos/2024/b.jpg", 200)
	p.PutSize("photos/2023/c.jpg", 50)
	return p
}

func names(entries []provider.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func prefixNames(entries []provider.Entry) []string {
	var out []string
	for _, e := range entries {
		if e.IsPrefix() {
			out = append(out, e.Name)
		}
	}
	sort.Strings(out)
	return out
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want Mode
	}{
		{name: "plain path", req: Request{Path: "photos/"}, want: ModeHierarchical},
		{name: "plain recursive", req: Request{Path: "photos/", Recursive: true}, want: ModeRecursive},
		{name: "single segment glob", req: Request{Path: "photos/2*"}, want: ModeHierarchical},
		{name: "directory glob", req: Request{Path: "photos/*/"}, want: ModeReconstructed},
		{name: "directory glob recursive", req: Request{Path: "photos/*/", Recursive: true}, want: ModeRecursive},
		{name: "recursive token", req: Request{Path: "photos/**/*.jpg"}, want: ModeRecursive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, _ := Plan(tt.req)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestList_DirectoryPattern(t *testing.T) {
	l := New(photos(0), Config{})

	got, err := l.Collect(context.Background(), Request{Container: "media", Path: "photos/*/"})
	require.NoError(t, err)

	assert.Equal(t, []string{"photos/2023/", "photos/2024/"}, names(got))
	for _, e := range got {
		assert.True(t, e.IsPrefix(), e.Name)
	}
}

func TestList_RecursivePatternIgnoresFlag(t *testing.T) {
	l := New(photos(0), Config{})

	for _, recursive := range []bool{false, true} {
		got, err := l.Collect(context.Background(), Request{Path: "photos/**/*.jpg", Recursive: recursive})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"photos/2023/c.jpg", "photos/2024/a.jpg", "photos/2024/b.jpg"}, names(got))
	}
}

func TestList_EmbeddedRecursiveRun(t *testing.T) {
	p := photos(0)
	p.PutSize("photos/2024/raw/d.cr2", 8)
	l := New(p, Config{})

	mode, _ := Plan(Request{Path: "photos/**.jpg"})
	assert.Equal(t, ModeRecursive, mode)

	got, err := l.Collect(context.Background(), Request{Path: "photos/**.jpg"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"photos/2023/c.jpg", "photos/2024/a.jpg", "photos/2024/b.jpg"}, names(got))

	got, err = l.Collect(context.Background(), Request{Path: "photos/2024**"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"photos/2024/a.jpg", "photos/2024/b.jpg", "photos/2024/raw/d.cr2"}, names(got))
}

func TestList_Hierarchical(t *testing.T) {
	p := photos(0)
	p.PutSize("photos/readme.txt", 5)
	l := New(p, Config{})

	tests := []struct {
		name string
		req  Request
		want []string
	}{
		{
			name: "container root",
			req:  Request{},
			want: []string{"photos/"},
		},
		{
			name: "one level",
			req:  Request{Path: "photos/"},
			want: []string{"photos/2023/", "photos/2024/", "photos/readme.txt"},
		},
		{
			name: "prefix without slash",
			req:  Request{Path: "photos"},
			want: []string{"photos/"},
		},
		{
			name: "single segment glob filters prefixes and blobs",
			req:  Request{Path: "photos/2*"},
			want: []string{"photos/2023/", "photos/2024/"},
		},
		{
			name: "leaf glob",
			req:  Request{Path: "photos/2024/*.jpg"},
			want: []string{"photos/2024/a.jpg", "photos/2024/b.jpg"},
		},
		{
			name: "question mark",
			req:  Request{Path: "photos/202?/"},
			want: []string{"photos/2023/", "photos/2024/"},
		},
		{
			name: "explicit recursive",
			req:  Request{Path: "photos/", Recursive: true},
			want: []string{"photos/2023/c.jpg", "photos/2024/a.jpg", "photos/2024/b.jpg", "photos/readme.txt"},
		},
		{
			name: "explicit recursive with multi segment glob",
			req:  Request{Path: "photos/*/*.jpg", Recursive: true},
			want: []string{"photos/2023/c.jpg", "photos/2024/a.jpg", "photos/2024/b.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Collect(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestList_ReconstructedLeafPattern(t *testing.T) {
	p := photos(0)
	p.PutSize("photos/2024/raw/x.cr2", 900)
	p.PutSize("photos/2024/notes.txt", 1)
	l := New(p, Config{})

	got, err := l.Collect(context.Background(), Request{Path: "photos/*/*.jpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/2023/c.jpg", "photos/2024/a.jpg", "photos/2024/b.jpg"}, names(got))

	got, err = l.Collect(context.Background(), Request{Path: "photos/*/r*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/2024/raw/"}, names(got))
	assert.True(t, got[0].IsPrefix())
}

func TestList_ReconstructionMatchesDelimiterListing(t *testing.T) {
	keys := []string{
		"a/1", "a/2", "a/b/3", "b/4", "c/d/e/5", "top.txt", "x//y",
	}
	p := memory.New("c", 2)
	for _, k := range keys {
		p.PutSize(k, 1)
	}
	l := New(p, Config{})

	delimited, err := l.Collect(context.Background(), Request{})
	require.NoError(t, err)

	reconstructed, err := l.Collect(context.Background(), Request{Path: "*/"})
	require.NoError(t, err)

	assert.Equal(t, prefixNames(delimited), prefixNames(reconstructed))
	assert.Equal(t, []string{"a/", "b/", "c/", "x/"}, prefixNames(reconstructed))
}

func TestList_StreamsPageByPage(t *testing.T) {
	p := memory.New("c", 2)
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		p.PutSize(k, 1)
	}
	l := New(p, Config{PageSize: 2})

	var batches [][]string
	sum, err := l.List(context.Background(), Request{}, func(page []provider.Entry) error {
		// Each batch must arrive before the next page is requested.
		assert.Equal(t, len(batches)+1, p.ListCalls())
		batches = append(batches, names(page))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, batches)
	assert.Equal(t, 3, sum.Pages)
	assert.Equal(t, int64(5), sum.Emitted)
	assert.Equal(t, ModeHierarchical, sum.Mode)
}

func TestList_FailureMidStream(t *testing.T) {
	p := memory.New("c", 1)
	for _, k := range []string{"a", "b", "c"} {
		p.PutSize(k, 1)
	}
	boom := errors.New("connection reset")
	p.FailAfter(1, boom)
	l := New(p, Config{})

	var seen []string
	sum, err := l.List(context.Background(), Request{}, func(page []provider.Entry) error {
		seen = append(seen, names(page)...)
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var pe *provider.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{"a"}, seen, "entries already delivered are kept")
	assert.Equal(t, int64(1), sum.Emitted)
}

func TestList_ReconstructionFailureEmitsNothing(t *testing.T) {
	p := photos(1)
	p.FailAfter(2, provider.ErrThrottled)
	l := New(p, Config{})

	called := false
	_, err := l.List(context.Background(), Request{Path: "photos/*/"}, func([]provider.Entry) error {
		called = true
		return nil
	})
	assert.True(t, provider.IsThrottled(err))
	assert.False(t, called)
}

func TestList_ConsumerErrorStops(t *testing.T) {
	p := memory.New("c", 1)
	p.PutSize("a", 1)
	p.PutSize("b", 1)
	l := New(p, Config{})

	stop := errors.New("stop")
	_, err := l.List(context.Background(), Request{}, func([]provider.Entry) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, p.ListCalls())
}

func TestList_EmptyResult(t *testing.T) {
	l := New(photos(0), Config{})

	sum, err := l.List(context.Background(), Request{Path: "videos/*/"}, func([]provider.Entry) error {
		t.Fatal("consumer must not be called for an empty result")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, sum.Emitted)

	got, err := l.Collect(context.Background(), Request{Path: "photos/*.png"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestList_MaxPages(t *testing.T) {
	p := memory.New("c", 1)
	for _, k := range []string{"a", "b", "c"} {
		p.PutSize(k, 1)
	}
	l := New(p, Config{MaxPages: 2})

	var seen []string
	sum, err := l.List(context.Background(), Request{}, func(page []provider.Entry) error {
		seen = append(seen, names(page)...)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sum.Truncated)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestList_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(photos(0), Config{}).Collect(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestList_Filter(t *testing.T) {
	f, err := match.NewFilterFromConfig(match.FilterConfig{MinSize: "100"})
	require.NoError(t, err)
	l := New(photos(0), Config{}).WithFilter(f)

	got, err := l.Collect(context.Background(), Request{Path: "photos/", Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/2024/a.jpg", "photos/2024/b.jpg"}, names(got))
}

func TestList_NilConsumer(t *testing.T) {
	_, err := New(photos(0), Config{}).List(context.Background(), Request{}, nil)
	assert.ErrorIs(t, err, ErrNilConsumer)
}
