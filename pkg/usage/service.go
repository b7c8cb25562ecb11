package usage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3leaps/azst/pkg/listing"
	"github.com/3leaps/azst/pkg/match"
	"github.com/3leaps/azst/pkg/provider"
)

// OpenFunc returns a provider bound to container. The caller closes it.
type OpenFunc func(ctx context.Context, container string) (provider.Provider, error)

// DefaultParallel is the number of containers summed at once by Account.
const DefaultParallel = 4

// ErrNoContainerLister is returned by Account when the backend cannot
// enumerate containers.
var ErrNoContainerLister = errors.New("usage: backend cannot list containers")

// Report is the usage of one container path.
type Report struct {
	Container string
	Prefix    string
	Sizes     DirectorySizeMap
	Total     int64
	Blobs     int64
	Listing   *listing.Summary
}

// ContainerTotal is the usage of one container in an account report.
type ContainerTotal struct {
	Container string
	Total     int64
	Blobs     int64
}

// AccountReport is the usage of every container of an account.
type AccountReport struct {
	Containers []ContainerTotal
	Total      int64
}

// Service computes usage over listings.
type Service struct {
	open       OpenFunc
	containers provider.ContainerLister
	config     listing.Config
	filter     *match.CompositeFilter
	parallel   int
	logger     *zap.Logger
}

// NewService creates a usage service. containers may be nil when only
// Container is used.
func NewService(open OpenFunc, containers provider.ContainerLister, cfg listing.Config) *Service {
	return &Service{
		open:       open,
		containers: containers,
		config:     cfg,
		parallel:   DefaultParallel,
		logger:     zap.NewNop(),
	}
}

// WithParallel sets how many containers Account lists at once.
func (s *Service) WithParallel(n int) *Service {
	if n > 0 {
		s.parallel = n
	}
	return s
}

// WithFilter restricts the blobs counted.
func (s *Service) WithFilter(f *match.CompositeFilter) *Service {
	s.filter = f
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(logger *zap.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Container sums every blob under path in container. Wildcards in path
// restrict the blobs counted; directory keys are relative to the path's
// literal prefix.
func (s *Service) Container(ctx context.Context, container, path string) (*Report, error) {
	p, err := s.open(ctx, container)
	if err != nil {
		return nil, err
	}
	defer func() { _ = p.Close() }()

	_, spec := listing.Plan(listing.Request{Path: path, Recursive: true})
	agg := NewAggregator(spec.LiteralPrefix)

	l := listing.New(p, s.config).WithFilter(s.filter).WithLogger(s.logger)
	sum, err := l.List(ctx, listing.Request{Container: container, Path: path, Recursive: true}, agg.AddPage)
	if err != nil {
		return nil, err
	}

	return &Report{
		Container: container,
		Prefix:    spec.LiteralPrefix,
		Sizes:     agg.Sizes(),
		Total:     agg.Total(),
		Blobs:     agg.Blobs(),
		Listing:   sum,
	}, nil
}

// Account sums every container of the bound account. Containers are
// listed concurrently, each with its own sequential page loop. The first
// failure cancels the rest.
func (s *Service) Account(ctx context.Context) (*AccountReport, error) {
	if s.containers == nil {
		return nil, ErrNoContainerLister
	}

	infos, err := s.containers.ListContainers(ctx)
	if err != nil {
		return nil, err
	}

	totals := make([]ContainerTotal, len(infos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)

	for i, info := range infos {
		g.Go(func() error {
			report, err := s.Container(gctx, info.Name, "")
			if err != nil {
				return fmt.Errorf("container %s: %w", info.Name, err)
			}
			totals[i] = ContainerTotal{Container: info.Name, Total: report.Total, Blobs: report.Blobs}
			s.logger.Debug("container usage",
				zap.String("container", info.Name),
				zap.Int64("bytes", report.Total),
				zap.Int64("blobs", report.Blobs),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &AccountReport{Containers: totals}
	for _, t := range totals {
		out.Total += t.Total
	}
	return out, nil
}
