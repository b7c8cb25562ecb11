// Package usage computes per-directory size totals from blob listings and
// from local directory trees.
package usage

import (
	"sort"
	"strings"

	"github.com/3leaps/azst/pkg/provider"
)

// DirectorySizeMap maps a directory path (ending in '/') to the total size
// of every blob beneath it.
type DirectorySizeMap map[string]int64

// DirectorySize is one row of a DirectorySizeMap.
type DirectorySize struct {
	Path string
	Size int64
}

// Sorted returns the entries ordered by path.
func (m DirectorySizeMap) Sorted() []DirectorySize {
	out := make([]DirectorySize, 0, len(m))
	for path, size := range m {
		out = append(out, DirectorySize{Path: path, Size: size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Aggregator folds blob entries into directory totals.
//
// Each blob's name is taken relative to the base prefix, and its size is
// added to every strict ancestor directory of that relative name. Keys are
// reported with the base prefix re-joined, so with base "photos/" the blob
// "photos/2024/a.jpg" counts toward "photos/2024/". The base itself has no
// key; its size is Total. Prefix entries contribute nothing.
//
// An Aggregator is not safe for concurrent use.
type Aggregator struct {
	base  string
	sizes DirectorySizeMap
	total int64
	blobs int64
}

// NewAggregator creates an aggregator for blobs listed under basePrefix.
func NewAggregator(basePrefix string) *Aggregator {
	return &Aggregator{base: basePrefix, sizes: make(DirectorySizeMap)}
}

// Add folds one entry.
func (a *Aggregator) Add(e provider.Entry) {
	if e.IsPrefix() {
		return
	}
	a.blobs++
	a.total += e.Size

	rel := strings.TrimPrefix(e.Name, a.base)
	segments := strings.Split(rel, "/")
	for i := 1; i < len(segments); i++ {
		dir := a.base + strings.Join(segments[:i], "/") + "/"
		a.sizes[dir] += e.Size
	}
}

// AddPage folds a page of entries. Its signature matches listing.Consumer.
func (a *Aggregator) AddPage(page []provider.Entry) error {
	for _, e := range page {
		a.Add(e)
	}
	return nil
}

// Sizes returns the directory totals.
func (a *Aggregator) Sizes() DirectorySizeMap { return a.sizes }

// Total returns the size of every blob seen.
func (a *Aggregator) Total() int64 { return a.total }

// Blobs returns the number of blobs seen.
func (a *Aggregator) Blobs() int64 { return a.blobs }

// Aggregate folds entries listed under basePrefix into directory totals.
func Aggregate(entries []provider.Entry, basePrefix string) DirectorySizeMap {
	a := NewAggregator(basePrefix)
	_ = a.AddPage(entries)
	return a.Sizes()
}
