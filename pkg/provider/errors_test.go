package provider

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProviderError
		expected string
	}{
		{
			name: "with key",
			err: &ProviderError{
				Op:        "Head",
				Provider:  ProviderAzure,
				Container: "photos",
				Key:       "2024/a.jpg",
				Err:       ErrNotFound,
			},
			expected: "azure Head: photos/2024/a.jpg: blob not found",
		},
		{
			name: "without key",
			err: &ProviderError{
				Op:        "List",
				Provider:  ProviderAzure,
				Container: "photos",
				Err:       ErrAccessDenied,
			},
			expected: "azure List: photos: access denied",
		},
		{
			name: "without container",
			err: &ProviderError{
				Op:       "ListContainers",
				Provider: ProviderS3,
				Err:      ErrInvalidCredentials,
			},
			expected: "s3 ListContainers: invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorClassification(t *testing.T) {
	wrap := func(err error) error {
		return fmt.Errorf("listing: %w", &ProviderError{Op: "List", Provider: ProviderAzure, Err: err})
	}

	assert.True(t, IsNotFound(wrap(ErrNotFound)))
	assert.True(t, IsAccessDenied(wrap(ErrAccessDenied)))
	assert.True(t, IsContainerNotFound(wrap(ErrContainerNotFound)))
	assert.True(t, IsInvalidCredentials(wrap(ErrInvalidCredentials)))
	assert.True(t, IsProviderUnavailable(wrap(ErrProviderUnavailable)))
	assert.True(t, IsThrottled(wrap(ErrThrottled)))

	assert.False(t, IsNotFound(wrap(errors.New("other"))))
	assert.False(t, IsNotFound(nil))
}

func TestEntryConstructors(t *testing.T) {
	b := BlobEntry("a/b.txt", 10, time.Time{}, "text/plain")
	assert.Equal(t, KindBlob, b.Kind)
	assert.False(t, b.IsPrefix())
	assert.Equal(t, "blob", b.Kind.String())

	p := PrefixEntry("a/")
	assert.True(t, p.IsPrefix())
	assert.Equal(t, int64(0), p.Size)
	assert.Equal(t, "prefix", p.Kind.String())

	var page *ListPage
	assert.False(t, page.HasMore())
	assert.True(t, (&ListPage{ContinuationToken: "x"}).HasMore())
}
