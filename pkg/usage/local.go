package usage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/3leaps/azst/pkg/match"
	"github.com/3leaps/azst/pkg/provider"
)

// LocalUsage is the result of walking a local directory tree.
type LocalUsage struct {
	// Root is the walked path as given.
	Root string

	// Sizes maps every directory under Root, and Root itself, to the total
	// size of regular files beneath it. Keys are Root joined with the
	// relative directory path.
	Sizes map[string]int64

	Files int64
}

// Total returns the size of the whole tree.
func (u *LocalUsage) Total() int64 { return u.Sizes[u.Root] }

// WalkLocal sums file sizes under root on fs.
//
// The traversal keeps its own stack of pending directories, so depth is
// bounded by memory rather than by the call stack. A root that is a regular
// file yields a single entry for that file. filter sees names relative to
// root with '/' separators; a rejected directory is skipped with
// everything below it. A nil filter accepts everything.
func WalkLocal(fs afero.Fs, root string, filter *match.CompositeFilter) (*LocalUsage, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, err
	}

	u := &LocalUsage{Root: root, Sizes: map[string]int64{root: 0}}
	if !info.IsDir() {
		if info.Mode().IsRegular() {
			u.Sizes[root] = info.Size()
			u.Files = 1
		}
		return u, nil
	}

	// ancestors[dir] lists the keys a file in dir contributes to.
	ancestors := map[string][]string{root: {root}}
	stack := []string{root}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}

		chain := ancestors[dir]
		delete(ancestors, dir)

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if !filter.Match(localEntry(root, path, entry)) {
				continue
			}
			switch {
			case entry.IsDir():
				u.Sizes[path] = 0
				next := make([]string, len(chain)+1)
				copy(next, chain)
				next[len(chain)] = path
				ancestors[path] = next
				stack = append(stack, path)
			case entry.Mode()&os.ModeType == 0:
				u.Files++
				for _, key := range chain {
					u.Sizes[key] += entry.Size()
				}
			}
		}
	}

	return u, nil
}

func localEntry(root, path string, info os.FileInfo) provider.Entry {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	if info.IsDir() {
		return provider.PrefixEntry(rel + "/")
	}
	return provider.BlobEntry(rel, info.Size(), info.ModTime().UTC(), "")
}
