// Package memory implements provider.Provider over an in-process key set.
//
// It reproduces the paging and delimiter-grouping behavior of real blob
// services closely enough to drive the listing engine in tests and in
// dry runs.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/3leaps/azst/pkg/provider"
)

// DefaultPageSize is the page size used when ListOptions.MaxKeys is zero.
const DefaultPageSize = 1000

// Provider is an in-memory container.
//
// Provider is safe for concurrent use.
type Provider struct {
	name     string
	pageSize int

	mu    sync.Mutex
	blobs map[string]blob

	listCalls int
	failAfter int
	failErr   error
}

type blob struct {
	data         []byte
	size         int64
	lastModified time.Time
	contentType  string
}

// Ensure Provider implements provider capability interfaces.
var (
	_ provider.Provider     = (*Provider)(nil)
	_ provider.ObjectGetter = (*Provider)(nil)
	_ provider.ObjectRanger = (*Provider)(nil)
)

// New creates an empty container. pageSize <= 0 uses DefaultPageSize.
func New(name string, pageSize int) *Provider {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Provider{
		name:     name,
		pageSize: pageSize,
		blobs:    make(map[string]blob),
	}
}

// Name returns the container name.
func (p *Provider) Name() string { return p.name }

// Put stores a blob with the given content.
func (p *Provider) Put(key string, data []byte, contentType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blobs[key] = blob{
		data:         append([]byte(nil), data...),
		size:         int64(len(data)),
		lastModified: time.Now().UTC(),
		contentType:  contentType,
	}
}

// PutSize stores a content-less blob that reports the given size.
func (p *Provider) PutSize(key string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blobs[key] = blob{size: size, lastModified: time.Now().UTC()}
}

// FailAfter makes every List call after the first n calls return err.
// Pass a nil err to clear.
func (p *Provider) FailAfter(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAfter = n
	p.failErr = err
}

// ListCalls returns how many List calls have been served.
func (p *Provider) ListCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listCalls
}

// Close is a no-op.
func (p *Provider) Close() error { return nil }

// List returns one page of entries under opts.Prefix.
//
// The continuation token is the name of the last entry returned; the next
// page starts strictly after it.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.listCalls++
	if p.failErr != nil && p.listCalls > p.failAfter {
		return nil, &provider.ProviderError{Op: "List", Provider: provider.ProviderMemory, Container: p.name, Err: p.failErr}
	}

	pageSize := opts.MaxKeys
	if pageSize <= 0 {
		pageSize = p.pageSize
	}

	entries := p.grouped(opts.Prefix, opts.Delimiter)

	start := 0
	if opts.ContinuationToken != "" {
		start = sort.Search(len(entries), func(i int) bool {
			return entries[i].Name > opts.ContinuationToken
		})
	}

	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}

	page := &provider.ListPage{Entries: append([]provider.Entry(nil), entries[start:end]...)}
	if end < len(entries) {
		page.ContinuationToken = entries[end-1].Name
	}
	return page, nil
}

// grouped returns the sorted entries visible under prefix, folding names
// by delimiter when one is set. Caller holds p.mu.
func (p *Provider) grouped(prefix, delimiter string) []provider.Entry {
	var entries []provider.Entry
	seen := make(map[string]struct{})

	for key, b := range p.blobs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if delimiter != "" {
			rest := key[len(prefix):]
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				name := prefix + rest[:idx+len(delimiter)]
				if _, ok := seen[name]; !ok {
					seen[name] = struct{}{}
					entries = append(entries, provider.PrefixEntry(name))
				}
				continue
			}
		}
		entries = append(entries, provider.BlobEntry(key, b.size, b.lastModified, b.contentType))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Head returns metadata for a single blob.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.blobs[key]
	if !ok {
		return nil, &provider.ProviderError{Op: "Head", Provider: provider.ProviderMemory, Container: p.name, Key: key, Err: provider.ErrNotFound}
	}
	return &provider.ObjectMeta{Entry: provider.BlobEntry(key, b.size, b.lastModified, b.contentType)}, nil
}

// GetObject returns the blob content.
func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	meta, err := p.Head(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	p.mu.Lock()
	data := p.blobs[key].data
	p.mu.Unlock()
	return io.NopCloser(bytes.NewReader(data)), meta.Size, nil
}

// GetRange returns bytes [start, endInclusive] of the blob, clamped to its size.
func (p *Provider) GetRange(ctx context.Context, key string, start, endInclusive int64) (io.ReadCloser, int64, error) {
	if _, err := p.Head(ctx, key); err != nil {
		return nil, 0, err
	}
	p.mu.Lock()
	data := p.blobs[key].data
	p.mu.Unlock()

	size := int64(len(data))
	if start < 0 || start >= size {
		return io.NopCloser(bytes.NewReader(nil)), 0, nil
	}
	if endInclusive < 0 || endInclusive >= size {
		endInclusive = size - 1
	}
	if endInclusive < start {
		return io.NopCloser(bytes.NewReader(nil)), 0, nil
	}
	chunk := data[start : endInclusive+1]
	return io.NopCloser(bytes.NewReader(chunk)), int64(len(chunk)), nil
}

// Account is a set of in-memory containers implementing
// provider.ContainerLister.
type Account struct {
	mu         sync.Mutex
	containers map[string]*Provider
	pageSize   int
}

// NewAccount creates an empty account whose containers use pageSize.
func NewAccount(pageSize int) *Account {
	return &Account{containers: make(map[string]*Provider), pageSize: pageSize}
}

// Container returns the named container, creating it on first use.
func (a *Account) Container(name string) *Provider {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.containers[name]
	if !ok {
		c = New(name, a.pageSize)
		a.containers[name] = c
	}
	return c
}

// Lookup returns the named container if it exists.
func (a *Account) Lookup(name string) (*Provider, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.containers[name]
	return c, ok
}

// ListContainers returns the containers sorted by name.
func (a *Account) ListContainers(ctx context.Context) ([]provider.ContainerInfo, error) {
	_ = ctx
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]provider.ContainerInfo, 0, len(a.containers))
	for name := range a.containers {
		out = append(out, provider.ContainerInfo{Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var _ provider.ContainerLister = (*Account)(nil)
