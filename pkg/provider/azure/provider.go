package azure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"

	"github.com/3leaps/azst/pkg/provider"
)

// Provider implements provider.Provider for one container of an Azure
// storage account.
type Provider struct {
	client    *azblob.Client
	account   string
	container string
	maxKeys   int
}

// Ensure Provider implements the interfaces.
var (
	_ provider.Provider        = (*Provider)(nil)
	_ provider.ContainerLister = (*Provider)(nil)
	_ provider.ObjectGetter    = (*Provider)(nil)
	_ provider.ObjectRanger    = (*Provider)(nil)
)

// New creates a provider with the given configuration.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	_ = ctx
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, &provider.ProviderError{
			Op:        "New",
			Provider:  provider.ProviderAzure,
			Container: cfg.Container,
			Err:       err,
		}
	}

	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	return &Provider{
		client:    client,
		account:   cfg.Account,
		container: cfg.Container,
		maxKeys:   maxKeys,
	}, nil
}

func newClient(cfg Config) (*azblob.Client, error) {
	switch {
	case cfg.AccountKey != "":
		cred, err := azblob.NewSharedKeyCredential(cfg.Account, cfg.AccountKey)
		if err != nil {
			return nil, err
		}
		return azblob.NewClientWithSharedKeyCredential(cfg.ServiceURL(), cred, nil)
	case cfg.SASToken != "":
		return azblob.NewClientWithNoCredential(cfg.sasURL(), nil)
	case cfg.Anonymous:
		return azblob.NewClientWithNoCredential(cfg.ServiceURL(), nil)
	default:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, err
		}
		return azblob.NewClient(cfg.ServiceURL(), cred, nil)
	}
}

// WithContainer returns a provider for another container of the same
// account, sharing the underlying client.
func (p *Provider) WithContainer(name string) *Provider {
	return &Provider{
		client:    p.client,
		account:   p.account,
		container: name,
		maxKeys:   p.maxKeys,
	}
}

// Account returns the storage account name.
func (p *Provider) Account() string { return p.account }

// Container returns the bound container name.
func (p *Provider) Container() string { return p.container }

func (p *Provider) containerClient() *container.Client {
	return p.client.ServiceClient().NewContainerClient(p.container)
}

// List returns one page of blobs. With a delimiter the service groups
// names into virtual directories, reported as prefix entries.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListPage, error) {
	maxKeys := int32(clampMaxKeys(opts.MaxKeys, p.maxKeys))

	var prefix, marker *string
	if opts.Prefix != "" {
		prefix = to.Ptr(opts.Prefix)
	}
	if opts.ContinuationToken != "" {
		marker = to.Ptr(opts.ContinuationToken)
	}

	if opts.Delimiter == "" {
		pager := p.containerClient().NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
			Prefix:     prefix,
			Marker:     marker,
			MaxResults: &maxKeys,
		})
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, p.wrapError("List", "", err)
		}

		page := &provider.ListPage{ContinuationToken: deref(resp.NextMarker)}
		if resp.Segment != nil {
			page.Entries = make([]provider.Entry, 0, len(resp.Segment.BlobItems))
			for _, item := range resp.Segment.BlobItems {
				page.Entries = append(page.Entries, blobEntry(item))
			}
		}
		return page, nil
	}

	pager := p.containerClient().NewListBlobsHierarchyPager(opts.Delimiter, &container.ListBlobsHierarchyOptions{
		Prefix:     prefix,
		Marker:     marker,
		MaxResults: &maxKeys,
	})
	resp, err := pager.NextPage(ctx)
	if err != nil {
		return nil, p.wrapError("List", "", err)
	}

	page := &provider.ListPage{ContinuationToken: deref(resp.NextMarker)}
	if resp.Segment != nil {
		page.Entries = make([]provider.Entry, 0, len(resp.Segment.BlobItems)+len(resp.Segment.BlobPrefixes))
		for _, item := range resp.Segment.BlobItems {
			page.Entries = append(page.Entries, blobEntry(item))
		}
		for _, pfx := range resp.Segment.BlobPrefixes {
			page.Entries = append(page.Entries, provider.PrefixEntry(deref(pfx.Name)))
		}
		// The service returns blobs and prefixes in separate lists.
		sort.Slice(page.Entries, func(i, j int) bool { return page.Entries[i].Name < page.Entries[j].Name })
	}
	return page, nil
}

func blobEntry(item *container.BlobItem) provider.Entry {
	e := provider.Entry{Kind: provider.KindBlob, Name: deref(item.Name)}
	if props := item.Properties; props != nil {
		e.Size = deref(props.ContentLength)
		e.ContentType = deref(props.ContentType)
		if props.LastModified != nil {
			e.LastModified = props.LastModified.UTC()
		}
	}
	return e
}

// ListContainers returns every container of the account, sorted by name.
func (p *Provider) ListContainers(ctx context.Context) ([]provider.ContainerInfo, error) {
	var out []provider.ContainerInfo

	pager := p.client.ServiceClient().NewListContainersPager(&service.ListContainersOptions{})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, p.wrapError("ListContainers", "", err)
		}
		for _, item := range resp.ContainerItems {
			info := provider.ContainerInfo{Name: deref(item.Name)}
			if item.Properties != nil && item.Properties.LastModified != nil {
				info.LastModified = item.Properties.LastModified.UTC()
			}
			out = append(out, info)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Head returns metadata for a single blob.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	resp, err := p.containerClient().NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}

	meta := &provider.ObjectMeta{
		Entry: provider.Entry{
			Kind:        provider.KindBlob,
			Name:        key,
			Size:        deref(resp.ContentLength),
			ContentType: deref(resp.ContentType),
		},
	}
	if resp.LastModified != nil {
		meta.LastModified = resp.LastModified.UTC()
	}
	if resp.ETag != nil {
		meta.ETag = string(*resp.ETag)
	}
	if len(resp.Metadata) > 0 {
		meta.Metadata = make(map[string]string, len(resp.Metadata))
		for k, v := range resp.Metadata {
			meta.Metadata[k] = deref(v)
		}
	}
	return meta, nil
}

// GetObject streams the whole blob.
func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	resp, err := p.containerClient().NewBlobClient(key).DownloadStream(ctx, nil)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	return resp.Body, deref(resp.ContentLength), nil
}

// GetRange streams bytes [start, endInclusive] of the blob. A negative
// endInclusive reads to the end. A start past the end of the blob yields
// an empty body.
func (p *Provider) GetRange(ctx context.Context, key string, start, endInclusive int64) (io.ReadCloser, int64, error) {
	if start < 0 || (endInclusive >= 0 && endInclusive < start) {
		return io.NopCloser(bytes.NewReader(nil)), 0, nil
	}

	rng := blob.HTTPRange{Offset: start}
	if endInclusive >= 0 {
		rng.Count = endInclusive - start + 1
	}

	resp, err := p.containerClient().NewBlobClient(key).DownloadStream(ctx, &blob.DownloadStreamOptions{Range: rng})
	if err != nil {
		if bloberror.HasCode(err, bloberror.InvalidRange) {
			return io.NopCloser(bytes.NewReader(nil)), 0, nil
		}
		return nil, 0, p.wrapError("GetRange", key, err)
	}
	return resp.Body, deref(resp.ContentLength), nil
}

// Close releases resources held by the provider. The SDK client needs no
// explicit cleanup.
func (p *Provider) Close() error {
	return nil
}

// wrapError converts SDK errors to provider errors with sentinel causes.
func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:        op,
		Provider:  provider.ProviderAzure,
		Container: p.container,
		Key:       key,
		Err:       err,
	}

	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case bloberror.HasCode(err, bloberror.ContainerNotFound):
		wrapped.Err = provider.ErrContainerNotFound
		return wrapped
	case bloberror.HasCode(err, bloberror.AuthenticationFailed):
		wrapped.Err = provider.ErrInvalidCredentials
		return wrapped
	case bloberror.HasCode(err,
		bloberror.AuthorizationFailure,
		bloberror.AuthorizationPermissionMismatch,
		bloberror.InsufficientAccountPermissions):
		wrapped.Err = provider.ErrAccessDenied
		return wrapped
	case bloberror.HasCode(err, bloberror.ServerBusy, bloberror.OperationTimedOut):
		wrapped.Err = provider.ErrThrottled
		return wrapped
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			wrapped.Err = provider.ErrNotFound
		case http.StatusUnauthorized:
			wrapped.Err = provider.ErrInvalidCredentials
		case http.StatusForbidden:
			wrapped.Err = provider.ErrAccessDenied
		case http.StatusTooManyRequests:
			wrapped.Err = provider.ErrThrottled
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wrapped.Err = provider.ErrProviderUnavailable
		}
		return wrapped
	}

	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		wrapped.Err = provider.ErrInvalidCredentials
	}
	return wrapped
}

// clampMaxKeys applies defaults and limits to maxKeys values.
func clampMaxKeys(requested, providerDefault int) int {
	if requested <= 0 {
		requested = providerDefault
	}
	if requested > MaxAllowedKeys {
		return MaxAllowedKeys
	}
	return requested
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
