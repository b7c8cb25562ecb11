package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/3leaps/azst/internal/config"
	"github.com/3leaps/azst/pkg/listing"
	"github.com/3leaps/azst/pkg/provider"
	"github.com/3leaps/azst/pkg/provider/azure"
	"github.com/3leaps/azst/pkg/provider/file"
	"github.com/3leaps/azst/pkg/provider/s3"
	"github.com/3leaps/azst/pkg/usage"
)

// localFs backs local paths and the file provider.
var localFs afero.Fs = afero.NewOsFs()

// ErrNoAccount is returned when an Azure address has no storage account.
var ErrNoAccount = errors.New("no storage account: use az://account/..., --account or AZURE_STORAGE_ACCOUNT")

// backend opens per-container providers for one account.
type backend struct {
	kind       provider.ProviderType
	open       usage.OpenFunc
	containers provider.ContainerLister
}

// openBackend builds the configured backend for account.
func openBackend(ctx context.Context, cfg *config.Config, account string) (*backend, error) {
	switch cfg.Provider.Kind {
	case config.KindS3:
		p, err := s3.New(ctx, s3.Config{
			Region:   cfg.Provider.Region,
			Endpoint: cfg.Provider.Endpoint,
			Profile:  cfg.Provider.Profile,
			// S3-compatible services (moto, MinIO, etc.) require path-style URLs.
			ForcePathStyle: cfg.Provider.ForcePathStyle || cfg.Provider.Endpoint != "",
			MaxKeys:        cfg.Listing.PageSize,
		})
		if err != nil {
			return nil, err
		}
		return &backend{
			kind: provider.ProviderS3,
			open: func(_ context.Context, container string) (provider.Provider, error) {
				return p.WithContainer(container), nil
			},
			containers: p,
		}, nil

	case config.KindFile:
		p, err := file.New(file.Config{
			Fs:      localFs,
			BaseDir: cfg.Provider.BaseDir,
			MaxKeys: cfg.Listing.PageSize,
		})
		if err != nil {
			return nil, err
		}
		return &backend{
			kind: provider.ProviderFile,
			open: func(_ context.Context, container string) (provider.Provider, error) {
				return p.WithContainer(container), nil
			},
			containers: p,
		}, nil

	case config.KindAzure:
		if account == "" && cfg.Azure.Endpoint == "" {
			return nil, ErrNoAccount
		}
		p, err := azure.New(ctx, azure.Config{
			Account:        account,
			AccountKey:     cfg.Azure.AccountKey,
			SASToken:       cfg.Azure.SASToken,
			Anonymous:      cfg.Azure.Anonymous,
			EndpointSuffix: cfg.Azure.EndpointSuffix,
			Endpoint:       cfg.Azure.Endpoint,
			MaxKeys:        cfg.Listing.PageSize,
		})
		if err != nil {
			return nil, err
		}
		return &backend{
			kind: provider.ProviderAzure,
			open: func(_ context.Context, container string) (provider.Provider, error) {
				return p.WithContainer(container), nil
			},
			containers: p,
		}, nil
	}
	return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
}

// listingConfig maps configuration onto the page loop.
func listingConfig(cfg *config.Config) listing.Config {
	return listing.Config{
		PageSize:  cfg.Listing.PageSize,
		MaxPages:  cfg.Listing.MaxPages,
		RateLimit: cfg.Listing.RateLimit,
	}
}

// commandContext applies the configured listing timeout.
func commandContext(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Listing.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Listing.Timeout)
	}
	return context.WithCancel(ctx)
}
