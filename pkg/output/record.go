// Package output renders listing and usage results.
//
// Two renderings share one Writer interface: JSONL, where each line is a
// typed record envelope that can be parsed independently, and a
// tab-aligned table for terminals.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/3leaps/azst/pkg/provider"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: azst.<type>.v<version>
const (
	// TypeBlob identifies blob listing records.
	TypeBlob = "azst.blob.v1"

	// TypePrefix identifies virtual directory records.
	TypePrefix = "azst.prefix.v1"

	// TypeContainer identifies container listing records.
	TypeContainer = "azst.container.v1"

	// TypeUsage identifies disk usage records.
	TypeUsage = "azst.usage.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "azst.summary.v1"

	// TypeError identifies error records.
	TypeError = "azst.error.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "azst.blob.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID for this invocation.
	JobID string `json:"job_id"`

	// Provider identifies the storage backend (e.g., "azure").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// BlobRecord is the data payload for a listed blob.
type BlobRecord struct {
	// URI is the full az:// address of the blob.
	URI string `json:"uri"`

	// Name is the blob name within its container.
	Name string `json:"name"`

	// Size is the blob size in bytes.
	Size int64 `json:"size"`

	// LastModified is when the blob was last written.
	LastModified time.Time `json:"last_modified,omitempty"`

	// ContentType is the MIME type, when the service reports one.
	ContentType string `json:"content_type,omitempty"`
}

// PrefixRecord is the data payload for a virtual directory.
type PrefixRecord struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// ContainerRecord is the data payload for a container.
type ContainerRecord struct {
	URI          string    `json:"uri"`
	Account      string    `json:"account,omitempty"`
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// UsageRecord is the data payload for one line of disk usage.
type UsageRecord struct {
	// Path is the address the size belongs to: a directory URI, a
	// container URI, or a local path.
	Path string `json:"path"`

	// Size is the cumulative size in bytes.
	Size int64 `json:"size"`

	// Total marks the grand total line.
	Total bool `json:"total,omitempty"`
}

// SummaryRecord is the data payload for the end of a listing.
type SummaryRecord struct {
	// URI is the address that was listed.
	URI string `json:"uri"`

	// Mode is the listing strategy that ran.
	Mode string `json:"mode"`

	// Pattern reports whether the address contained wildcards.
	Pattern bool `json:"pattern"`

	// Pages is the number of pages requested.
	Pages int `json:"pages"`

	// Listed is the number of entries the service returned.
	Listed int64 `json:"listed"`

	// Emitted is the number of entries written.
	Emitted int64 `json:"emitted"`

	// Bytes is the cumulative size of emitted blobs.
	Bytes int64 `json:"bytes"`

	// Truncated reports whether the page cap stopped the listing.
	Truncated bool `json:"truncated,omitempty"`

	// Duration is the total listing duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// ErrorRecord is the data payload for errors.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// URI is the address being processed when the error occurred.
	URI string `json:"uri,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeAccessDenied       = "ACCESS_DENIED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeContainerNotFound  = "CONTAINER_NOT_FOUND"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeThrottled          = "THROTTLED"
	ErrCodeUnavailable        = "UNAVAILABLE"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeCanceled           = "CANCELED"
	ErrCodeInternal           = "INTERNAL"
)

// ErrorCode classifies err into one of the ErrCode constants.
func ErrorCode(err error) string {
	switch {
	case provider.IsContainerNotFound(err):
		return ErrCodeContainerNotFound
	case provider.IsNotFound(err):
		return ErrCodeNotFound
	case provider.IsAccessDenied(err):
		return ErrCodeAccessDenied
	case provider.IsInvalidCredentials(err):
		return ErrCodeInvalidCredentials
	case provider.IsThrottled(err):
		return ErrCodeThrottled
	case provider.IsProviderUnavailable(err):
		return ErrCodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		return ErrCodeCanceled
	default:
		return ErrCodeInternal
	}
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
