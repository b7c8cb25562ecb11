package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer renders listing and usage results.
//
// Implementations must be safe for concurrent use from multiple
// goroutines.
type Writer interface {
	// WriteBlob emits a blob.
	WriteBlob(ctx context.Context, blob *BlobRecord) error

	// WritePrefix emits a virtual directory.
	WritePrefix(ctx context.Context, prefix *PrefixRecord) error

	// WriteContainer emits a container.
	WriteContainer(ctx context.Context, container *ContainerRecord) error

	// WriteUsage emits one disk usage line.
	WriteUsage(ctx context.Context, usage *UsageRecord) error

	// WriteSummary emits the end-of-listing summary.
	WriteSummary(ctx context.Context, sum *SummaryRecord) error

	// WriteError emits an error.
	WriteError(ctx context.Context, err *ErrorRecord) error

	// Flush pushes buffered output to the underlying writer. Callers flush
	// after each listing page.
	Flush() error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
//
// JSONLWriter is safe for concurrent use. Writes are serialized using
// a mutex to ensure atomic line writes (no interleaved output).
type JSONLWriter struct {
	w        io.Writer
	jobID    string
	provider string
	mu       sync.Mutex

	closed bool
}

// NewJSONLWriter creates a new JSONL writer.
//
// Parameters:
//   - w: The underlying writer (stdout, file, etc.)
//   - jobID: Correlation ID for this invocation
//   - provider: Storage backend identifier (e.g., "azure")
func NewJSONLWriter(w io.Writer, jobID, provider string) *JSONLWriter {
	return &JSONLWriter{
		w:        w,
		jobID:    jobID,
		provider: provider,
	}
}

// WriteBlob emits a blob record.
func (jw *JSONLWriter) WriteBlob(ctx context.Context, blob *BlobRecord) error {
	return jw.writeRecord(ctx, TypeBlob, blob)
}

// WritePrefix emits a prefix record.
func (jw *JSONLWriter) WritePrefix(ctx context.Context, prefix *PrefixRecord) error {
	return jw.writeRecord(ctx, TypePrefix, prefix)
}

// WriteContainer emits a container record.
func (jw *JSONLWriter) WriteContainer(ctx context.Context, container *ContainerRecord) error {
	return jw.writeRecord(ctx, TypeContainer, container)
}

// WriteUsage emits a usage record.
func (jw *JSONLWriter) WriteUsage(ctx context.Context, usage *UsageRecord) error {
	return jw.writeRecord(ctx, TypeUsage, usage)
}

// WriteSummary emits a summary record.
func (jw *JSONLWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, sum)
}

// WriteError emits an error record.
func (jw *JSONLWriter) WriteError(ctx context.Context, err *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, err)
}

// Flush is a no-op; every record is written as soon as it is produced.
func (jw *JSONLWriter) Flush() error { return nil }

// Close marks the writer as closed.
//
// If the underlying writer implements io.Closer, it is NOT closed.
// The caller is responsible for closing the underlying writer.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	jw.closed = true
	return nil
}

// writeRecord marshals data and writes a complete record line while
// holding the mutex, so lines never interleave.
func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Marshal the payload outside the lock.
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	recordBytes, err := json.Marshal(Record{
		Type:     recordType,
		TS:       time.Now().UTC(),
		JobID:    jw.jobID,
		Provider: jw.provider,
		Data:     dataBytes,
	})
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	// io.Writer may return n < len(p) with a nil error, which would
	// silently truncate the line.
	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}

	return nil
}

// writeAll writes all bytes to w, handling short writes.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			// No progress made - avoid infinite loop
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// Compile-time check that JSONLWriter implements Writer.
var _ Writer = (*JSONLWriter)(nil)
