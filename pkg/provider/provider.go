// Package provider defines abstractions for blob storage listing operations.
//
// Providers implement a minimal surface area focused on paged listing and
// metadata retrieval for a single container. Authentication uses SDK
// default credential chains - providers should not implement custom auth
// logic.
package provider

import (
	"context"
	"time"
)

// Provider abstracts blob listing operations scoped to one container.
//
// Implementations should:
//   - Use SDK default credential chains
//   - Return exactly one page per List call, resumable via ContinuationToken
//   - Group names by Delimiter when one is given
type Provider interface {
	// List returns a single page of entries under opts.Prefix.
	// Use ContinuationToken from ListPage for subsequent pages.
	List(ctx context.Context, opts ListOptions) (*ListPage, error)

	// Head returns metadata for a single blob.
	// Returns ErrNotFound if the blob does not exist.
	Head(ctx context.Context, key string) (*ObjectMeta, error)

	// Close releases any resources held by the provider.
	Close() error
}

// ListOptions configures a List operation.
type ListOptions struct {
	// Prefix filters results to names starting with this value.
	// Empty string lists the whole container.
	Prefix string

	// Delimiter groups names sharing a prefix up to the next delimiter
	// into a single KindPrefix entry. Empty means a flat, recursive page.
	Delimiter string

	// ContinuationToken resumes listing from a previous ListPage.
	// Empty string starts from the beginning.
	ContinuationToken string

	// MaxKeys limits the number of entries returned per page.
	// Zero uses provider default (typically 1000 for S3, 5000 for Azure).
	MaxKeys int
}

// ListPage contains one page of entries from a List operation.
type ListPage struct {
	// Entries holds blobs and, for delimiter listings, virtual directories.
	Entries []Entry

	// ContinuationToken is used to retrieve the next page.
	// Empty string indicates no more pages.
	ContinuationToken string
}

// HasMore reports whether another page can be requested.
func (p *ListPage) HasMore() bool {
	return p != nil && p.ContinuationToken != ""
}

// EntryKind discriminates the Entry union.
type EntryKind int

const (
	// KindBlob is a stored object with a size.
	KindBlob EntryKind = iota

	// KindPrefix is a virtual directory, server-reported or synthesized.
	// Its name carries a trailing delimiter.
	KindPrefix
)

// String returns "blob" or "prefix".
func (k EntryKind) String() string {
	if k == KindPrefix {
		return "prefix"
	}
	return "blob"
}

// Entry is a single listing result: either a blob or a virtual directory.
//
// Entries are immutable values; Size, LastModified and ContentType are only
// meaningful for KindBlob.
type Entry struct {
	Kind         EntryKind
	Name         string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// BlobEntry constructs a blob entry.
func BlobEntry(name string, size int64, lastModified time.Time, contentType string) Entry {
	return Entry{
		Kind:         KindBlob,
		Name:         name,
		Size:         size,
		LastModified: lastModified,
		ContentType:  contentType,
	}
}

// PrefixEntry constructs a virtual directory entry.
func PrefixEntry(name string) Entry {
	return Entry{Kind: KindPrefix, Name: name}
}

// IsPrefix reports whether the entry is a virtual directory.
func (e Entry) IsPrefix() bool {
	return e.Kind == KindPrefix
}

// ObjectMeta contains full metadata for a single blob.
// Returned by Head operations.
type ObjectMeta struct {
	Entry

	// ETag is the entity tag reported by the service.
	ETag string

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string
}

// ContainerInfo describes a container (or bucket) within an account.
type ContainerInfo struct {
	Name         string
	LastModified time.Time
}

// ProviderType identifies a storage backend.
type ProviderType string

const (
	// ProviderAzure represents Azure Blob Storage.
	ProviderAzure ProviderType = "azure"

	// ProviderS3 represents AWS S3 or S3-compatible storage.
	ProviderS3 ProviderType = "s3"

	// ProviderFile represents a local directory tree.
	ProviderFile ProviderType = "file"

	// ProviderMemory represents the in-process store.
	ProviderMemory ProviderType = "memory"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}
