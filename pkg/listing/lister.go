// Package listing turns flat blob enumerations into the entry set a user
// sees for a path: delimiter-grouped directories, glob-filtered blobs, or
// directories reconstructed at the depth of a multi-segment pattern.
//
// Pages are requested one at a time in continuation-token order. Each page
// is handed to the consumer before the next is requested, so memory stays
// bounded to one page except when directory reconstruction needs the whole
// enumeration.
package listing

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/3leaps/azst/pkg/match"
	"github.com/3leaps/azst/pkg/provider"
)

// Delimiter separates virtual directory levels in blob names.
const Delimiter = "/"

// Mode is the strategy chosen for a request.
type Mode string

const (
	// ModeHierarchical lists one level with the provider grouping by
	// Delimiter.
	ModeHierarchical Mode = "hierarchical"

	// ModeRecursive lists every blob under the literal prefix.
	ModeRecursive Mode = "recursive"

	// ModeReconstructed lists recursively and rebuilds directories at the
	// depth of the pattern.
	ModeReconstructed Mode = "reconstructed"
)

// Config configures listing behavior.
type Config struct {
	// PageSize is the MaxKeys hint sent with each page request.
	// Zero lets the provider choose.
	PageSize int

	// MaxPages stops a listing after this many pages. Zero means no cap.
	MaxPages int

	// RateLimit is the maximum page requests per second. Zero means
	// unlimited.
	RateLimit float64
}

// DefaultConfig returns the default listing configuration.
func DefaultConfig() Config {
	return Config{PageSize: 5000}
}

// Request describes one listing.
type Request struct {
	// Container is informational; the provider is already bound to it.
	Container string

	// Path is the blob path below the container, possibly with '*', '?'
	// or '**'. Empty lists the container root.
	Path string

	// Recursive asks for every blob under the path instead of one level.
	Recursive bool
}

// Consumer receives entries one page at a time. Returning an error stops
// the listing and is returned from List.
type Consumer func(page []provider.Entry) error

// Summary reports what a listing did.
type Summary struct {
	Mode      Mode
	Prefix    string
	Pages     int
	Listed    int64
	Emitted   int64
	Bytes     int64
	Truncated bool
}

// ErrNilConsumer is returned when List is called without a consumer.
var ErrNilConsumer = errors.New("listing: consumer is required")

// Lister runs listings against a single container.
//
// A Lister holds no per-listing state and may be reused for sequential or
// concurrent listings.
type Lister struct {
	provider provider.Provider
	config   Config
	filter   *match.CompositeFilter
	logger   *zap.Logger
	limiter  *rate.Limiter
}

// New creates a lister over p.
func New(p provider.Provider, cfg Config) *Lister {
	l := &Lister{
		provider: p,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	if cfg.RateLimit > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return l
}

// WithFilter applies f to every emitted entry, after glob matching.
func (l *Lister) WithFilter(f *match.CompositeFilter) *Lister {
	l.filter = f
	return l
}

// WithLogger sets the logger used for page-level debug events.
func (l *Lister) WithLogger(logger *zap.Logger) *Lister {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// Plan returns the mode List would use for req along with the pattern
// split of its path.
func Plan(req Request) (Mode, match.PatternSpec) {
	spec := match.Plan(req.Path)
	switch {
	case spec.HasGlob && spec.ForceRecursive && spec.Bounded && !req.Recursive:
		return ModeReconstructed, spec
	case req.Recursive || spec.ForceRecursive:
		return ModeRecursive, spec
	default:
		return ModeHierarchical, spec
	}
}

// List streams the visible entries for req to consume.
//
// On a provider failure List stops at once and returns the error along
// with the summary of what was already emitted; those entries are not
// retracted. An empty result is not an error: Summary.Emitted is zero.
func (l *Lister) List(ctx context.Context, req Request, consume Consumer) (*Summary, error) {
	if consume == nil {
		return nil, ErrNilConsumer
	}

	mode, spec := Plan(req)
	opts := provider.ListOptions{Prefix: spec.LiteralPrefix, MaxKeys: l.config.PageSize}
	if mode == ModeHierarchical {
		opts.Delimiter = Delimiter
	}

	sum := &Summary{Mode: mode, Prefix: spec.LiteralPrefix}
	l.logger.Debug("listing",
		zap.String("container", req.Container),
		zap.String("prefix", spec.LiteralPrefix),
		zap.String("glob", spec.Glob),
		zap.String("mode", string(mode)),
	)

	emit := func(entries []provider.Entry) error {
		entries = l.filter.Apply(entries)
		if len(entries) == 0 {
			return nil
		}
		for _, e := range entries {
			sum.Emitted++
			sum.Bytes += e.Size
		}
		return consume(entries)
	}

	var err error
	switch {
	case mode == ModeReconstructed:
		err = l.reconstruct(ctx, opts, spec, sum, emit)
	case !spec.HasGlob:
		err = l.pages(ctx, opts, sum, emit)
	default:
		err = l.pages(ctx, opts, sum, func(page []provider.Entry) error {
			return emit(matchPage(spec, page))
		})
	}
	return sum, err
}

// Collect buffers the full result of List.
func (l *Lister) Collect(ctx context.Context, req Request) ([]provider.Entry, error) {
	var out []provider.Entry
	_, err := l.List(ctx, req, func(page []provider.Entry) error {
		out = append(out, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// matchPage keeps the entries of page whose name relative to the literal
// prefix matches the glob. It reuses page's backing array.
func matchPage(spec match.PatternSpec, page []provider.Entry) []provider.Entry {
	kept := page[:0]
	for _, e := range page {
		rel := spec.Relative(e.Name)
		var ok bool
		if e.IsPrefix() {
			ok = spec.MatchPrefix(rel)
		} else {
			ok = spec.MatchBlob(rel)
		}
		if ok {
			kept = append(kept, e)
		}
	}
	return kept
}

// reconstruct enumerates flat and rebuilds the one-level view at the
// pattern's depth. Every entry deep enough is cut to its first depth
// segments and the resulting directory is tested against the pattern.
// Blobs sitting exactly at that depth are tested as blobs unless the
// pattern selects directories only. The directory set lives for this call
// only; the output is sorted by name.
func (l *Lister) reconstruct(ctx context.Context, opts provider.ListOptions, spec match.PatternSpec, sum *Summary, emit Consumer) error {
	depth, _ := spec.ViewDepth()
	dirOnly := spec.DirectoryOnly()

	dirs := make(map[string]struct{})
	var blobs []provider.Entry

	err := l.pages(ctx, opts, sum, func(page []provider.Entry) error {
		for _, e := range page {
			rel := spec.Relative(e.Name)
			segments := strings.Split(rel, Delimiter)
			if len(segments)-1 >= depth {
				dir := strings.Join(segments[:depth], Delimiter) + Delimiter
				if spec.MatchPrefix(dir) {
					dirs[dir] = struct{}{}
				}
				continue
			}
			if !dirOnly && !e.IsPrefix() && len(segments) == depth && spec.MatchBlob(rel) {
				blobs = append(blobs, e)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	out := make([]provider.Entry, 0, len(dirs)+len(blobs))
	out = append(out, blobs...)
	for dir := range dirs {
		out = append(out, provider.PrefixEntry(spec.LiteralPrefix+dir))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	l.logger.Debug("reconstructed directories",
		zap.Int("depth", depth),
		zap.Int("directories", len(dirs)),
		zap.Int("blobs", len(blobs)),
	)
	return emit(out)
}

// pages requests pages in order and hands each to fn before requesting the
// next.
func (l *Lister) pages(ctx context.Context, opts provider.ListOptions, sum *Summary, fn Consumer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		page, err := l.provider.List(ctx, opts)
		if err != nil {
			l.logger.Debug("list page failed",
				zap.String("prefix", opts.Prefix),
				zap.Int("page", sum.Pages+1),
				zap.Error(err),
			)
			return err
		}
		sum.Pages++
		sum.Listed += int64(len(page.Entries))

		l.logger.Debug("list page",
			zap.String("prefix", opts.Prefix),
			zap.Int("page", sum.Pages),
			zap.Int("entries", len(page.Entries)),
			zap.Bool("more", page.HasMore()),
		)

		if err := fn(page.Entries); err != nil {
			return err
		}

		if !page.HasMore() {
			return nil
		}
		if l.config.MaxPages > 0 && sum.Pages >= l.config.MaxPages {
			sum.Truncated = true
			l.logger.Warn("listing stopped at page cap",
				zap.String("prefix", opts.Prefix),
				zap.Int("max_pages", l.config.MaxPages),
			)
			return nil
		}
		opts.ContinuationToken = page.ContinuationToken
	}
}
