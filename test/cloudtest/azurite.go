package cloudtest

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

const (
	// DefaultAzuriteEndpoint is the Azurite blob endpoint for the
	// well-known development account.
	DefaultAzuriteEndpoint = "http://127.0.0.1:10000/devstoreaccount1"

	// AzuriteAccount is the Azurite development account name.
	AzuriteAccount = "devstoreaccount1"

	// AzuriteAccountKey is the published Azurite development key.
	AzuriteAccountKey = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

var (
	// AzuriteEndpoint is configurable via AZURITE_BLOB_ENDPOINT.
	AzuriteEndpoint = getEnvOrDefault("AZURITE_BLOB_ENDPOINT", DefaultAzuriteEndpoint)

	azClient     *azblob.Client
	azClientOnce sync.Once
	azClientErr  error
)

// AzuriteAvailable checks if the Azurite blob service is reachable. Any
// HTTP response counts; an unauthenticated request is rejected with 4xx.
func AzuriteAvailable() bool {
	return reachable(AzuriteEndpoint+"?comp=list", func(code int) bool { return code > 0 })
}

// SkipIfAzuriteUnavailable skips the test if Azurite is not running.
func SkipIfAzuriteUnavailable(t *testing.T) {
	t.Helper()
	if !AzuriteAvailable() {
		t.Skipf("azurite not available at %s (start with: make azurite-start)", AzuriteEndpoint)
	}
}

// AzuriteClient returns a shared blob client for the development account.
func AzuriteClient() (*azblob.Client, error) {
	azClientOnce.Do(func() {
		cred, err := azblob.NewSharedKeyCredential(AzuriteAccount, AzuriteAccountKey)
		if err != nil {
			azClientErr = fmt.Errorf("shared key: %w", err)
			return
		}
		azClient, azClientErr = azblob.NewClientWithSharedKeyCredential(AzuriteEndpoint+"/", cred, nil)
	})
	return azClient, azClientErr
}

// AzuriteClientT returns the blob client, failing the test on error.
func AzuriteClientT(t *testing.T) *azblob.Client {
	t.Helper()
	c, err := AzuriteClient()
	if err != nil {
		t.Fatalf("failed to create azurite client: %v", err)
	}
	return c
}

// CreateContainer creates a uniquely named container and registers cleanup.
func CreateContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	c := AzuriteClientT(t)
	name := uniqueName(t, 50)

	if _, err := c.CreateContainer(ctx, name, nil); err != nil {
		t.Fatalf("failed to create container %s: %v", name, err)
	}

	t.Cleanup(func() {
		if _, err := c.DeleteContainer(context.Background(), name, nil); err != nil {
			t.Logf("warning: failed to delete container %s: %v", name, err)
		}
	})

	return name
}

// UploadBlob writes a block blob.
func UploadBlob(t *testing.T, ctx context.Context, container, name string, content []byte) {
	t.Helper()

	if _, err := AzuriteClientT(t).UploadStream(ctx, container, name, bytes.NewReader(content), nil); err != nil {
		t.Fatalf("failed to upload blob %s/%s: %v", container, name, err)
	}
}

// UploadBlobs writes blobs with the given names and small generated content.
func UploadBlobs(t *testing.T, ctx context.Context, container string, names []string) {
	t.Helper()

	for _, name := range names {
		UploadBlob(t, ctx, container, name, []byte("test content for "+name))
	}
}
