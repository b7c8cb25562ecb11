// Package file implements the provider interface over a local directory
// tree. Each subdirectory of the base directory is a container; files
// below it are blobs named by their slash-separated relative path.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/3leaps/azst/pkg/provider"
)

// DefaultMaxKeys is the default page size for List operations.
const DefaultMaxKeys = 1000

// Config configures a file provider.
type Config struct {
	// Fs is the filesystem to read. Nil uses the OS filesystem.
	Fs afero.Fs

	// BaseDir holds one subdirectory per container (required).
	BaseDir string

	// Container is the subdirectory the provider is bound to. It may be
	// empty when the provider is only used to list containers.
	Container string

	// MaxKeys is the default page size. Zero uses DefaultMaxKeys.
	MaxKeys int
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("file config: base dir is required")
	}
	if strings.ContainsAny(c.Container, `/\`) || c.Container == ".." {
		return fmt.Errorf("file config: invalid container name %q", c.Container)
	}
	return nil
}

// Provider implements provider.Provider for a local directory tree.
type Provider struct {
	fs        afero.Fs
	baseDir   string
	container string
	maxKeys   int
}

// Ensure Provider implements provider capability interfaces.
var (
	_ provider.Provider        = (*Provider)(nil)
	_ provider.ContainerLister = (*Provider)(nil)
	_ provider.ObjectGetter    = (*Provider)(nil)
	_ provider.ObjectRanger    = (*Provider)(nil)
)

// New creates a file provider.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{
		fs:        fs,
		baseDir:   filepath.Clean(cfg.BaseDir),
		container: cfg.Container,
		maxKeys:   maxKeys,
	}, nil
}

// WithContainer returns a provider bound to another subdirectory.
func (p *Provider) WithContainer(name string) *Provider {
	return &Provider{fs: p.fs, baseDir: p.baseDir, container: name, maxKeys: p.maxKeys}
}

// Container returns the bound container name.
func (p *Provider) Container() string { return p.container }

// Close releases any resources held by the provider.
func (p *Provider) Close() error { return nil }

// ListContainers returns the subdirectories of the base directory.
func (p *Provider) ListContainers(ctx context.Context) ([]provider.ContainerInfo, error) {
	_ = ctx
	infos, err := afero.ReadDir(p.fs, p.baseDir)
	if err != nil {
		return nil, p.wrapError("ListContainers", "", err)
	}

	var out []provider.ContainerInfo
	for _, fi := range infos {
		if fi.IsDir() {
			out = append(out, provider.ContainerInfo{Name: fi.Name(), LastModified: fi.ModTime().UTC()})
		}
	}
	return out, nil
}

// List returns one page of entries under opts.Prefix. The continuation
// token is the last name returned; the next page starts strictly after it.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListPage, error) {
	_ = ctx
	root, err := p.containerRoot()
	if err != nil {
		return nil, p.wrapError("List", "", err)
	}
	if _, err := p.fs.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, &provider.ProviderError{Op: "List", Provider: provider.ProviderFile, Container: p.container, Err: provider.ErrContainerNotFound}
		}
		return nil, p.wrapError("List", "", err)
	}

	entries, err := p.collect(root, opts.Prefix, opts.Delimiter)
	if err != nil {
		return nil, p.wrapError("List", "", err)
	}

	start := 0
	if opts.ContinuationToken != "" {
		start = sort.Search(len(entries), func(i int) bool { return entries[i].Name > opts.ContinuationToken })
	}

	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = p.maxKeys
	}
	end := start + maxKeys
	if end > len(entries) {
		end = len(entries)
	}

	page := &provider.ListPage{Entries: entries[start:end]}
	if end < len(entries) {
		page.ContinuationToken = entries[end-1].Name
	}
	return page, nil
}

// collect walks the directory holding prefix and returns every matching
// entry sorted by name, grouped by delimiter when one is given.
func (p *Provider) collect(root, prefix, delimiter string) ([]provider.Entry, error) {
	walkRoot := root
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir, err := safeJoin(root, prefix[:i])
		if err != nil {
			return nil, err
		}
		walkRoot = dir
	}
	if _, err := p.fs.Stat(walkRoot); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []provider.Entry
	seen := make(map[string]bool)

	err := afero.Walk(p.fs, walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}

		if delimiter != "" {
			rest := name[len(prefix):]
			if i := strings.Index(rest, delimiter); i >= 0 {
				dir := prefix + rest[:i+len(delimiter)]
				if !seen[dir] {
					seen[dir] = true
					entries = append(entries, provider.PrefixEntry(dir))
				}
				return nil
			}
		}

		entries = append(entries, provider.BlobEntry(name, info.Size(), info.ModTime().UTC(), ""))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Head returns metadata for a single file.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	_ = ctx
	full, err := p.fullPath(key)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	st, err := p.fs.Stat(full)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	if st.IsDir() {
		return nil, p.wrapError("Head", key, os.ErrNotExist)
	}

	return &provider.ObjectMeta{
		Entry: provider.BlobEntry(key, st.Size(), st.ModTime().UTC(), ""),
	}, nil
}

// GetObject opens the whole file.
func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	_ = ctx
	f, st, err := p.open(key)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	return f, st.Size(), nil
}

// GetRange opens bytes [start, endInclusive] of the file. A negative
// endInclusive reads to the end of the file.
func (p *Provider) GetRange(ctx context.Context, key string, start, endInclusive int64) (io.ReadCloser, int64, error) {
	_ = ctx
	f, st, err := p.open(key)
	if err != nil {
		return nil, 0, p.wrapError("GetRange", key, err)
	}

	size := st.Size()
	if start < 0 || start >= size || (endInclusive >= 0 && endInclusive < start) {
		_ = f.Close()
		return io.NopCloser(strings.NewReader("")), 0, nil
	}

	end := size - 1
	if endInclusive >= 0 && endInclusive < end {
		end = endInclusive
	}
	length := end - start + 1

	return &sectionReadCloser{r: io.NewSectionReader(f, start, length), c: f}, length, nil
}

type sectionReadCloser struct {
	r io.Reader
	c io.Closer
}

func (s *sectionReadCloser) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *sectionReadCloser) Close() error               { return s.c.Close() }

func (p *Provider) open(key string) (afero.File, os.FileInfo, error) {
	full, err := p.fullPath(key)
	if err != nil {
		return nil, nil, err
	}
	f, err := p.fs.Open(full)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, nil, os.ErrNotExist
	}
	return f, st, nil
}

func (p *Provider) containerRoot() (string, error) {
	if p.container == "" {
		return "", errors.New("container name is required")
	}
	return filepath.Join(p.baseDir, p.container), nil
}

func (p *Provider) fullPath(key string) (string, error) {
	root, err := p.containerRoot()
	if err != nil {
		return "", err
	}
	return safeJoin(root, key)
}

// safeJoin joins a slash-separated key under root, rejecting traversal.
func safeJoin(root, key string) (string, error) {
	clean := strings.TrimPrefix(filepath.Clean("/"+strings.TrimPrefix(key, "/")), "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path %q", key)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}

func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Container: p.container, Key: key, Err: err}
	switch {
	case os.IsNotExist(err):
		wrapped.Err = provider.ErrNotFound
	case os.IsPermission(err):
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}
