package output

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"text/tabwriter"
)

// TimeLayout is the timestamp layout used in table output.
const TimeLayout = "2006-01-02 15:04:05"

// TableOptions configures a TableWriter.
type TableOptions struct {
	// Long adds size, content type and modification time columns.
	Long bool

	// Human renders sizes with binary units ("1.5 KB").
	Human bool
}

// TableWriter renders records as tab-aligned text. Columns are aligned
// within each flushed batch.
type TableWriter struct {
	tw     *tabwriter.Writer
	errOut io.Writer
	opts   TableOptions
	mu     sync.Mutex
	closed bool
}

// NewTableWriter creates a table writer. Error records go to errOut.
func NewTableWriter(w, errOut io.Writer, opts TableOptions) *TableWriter {
	return &TableWriter{
		tw:     tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		errOut: errOut,
		opts:   opts,
	}
}

// Compile-time check that TableWriter implements Writer.
var _ Writer = (*TableWriter)(nil)

// WriteBlob emits the blob URI, with details in long mode.
func (t *TableWriter) WriteBlob(ctx context.Context, blob *BlobRecord) error {
	if !t.opts.Long {
		return t.line(ctx, blob.URI)
	}
	contentType := blob.ContentType
	if contentType == "" {
		contentType = "-"
	}
	modified := "-"
	if !blob.LastModified.IsZero() {
		modified = blob.LastModified.Format(TimeLayout)
	}
	return t.line(ctx, t.size(blob.Size), contentType, modified, blob.URI)
}

// WritePrefix emits the directory URI, marked DIR in long mode.
func (t *TableWriter) WritePrefix(ctx context.Context, prefix *PrefixRecord) error {
	if !t.opts.Long {
		return t.line(ctx, prefix.URI)
	}
	return t.line(ctx, "-", "DIR", "-", prefix.URI)
}

// WriteContainer emits the container URI, with its modification time in
// long mode.
func (t *TableWriter) WriteContainer(ctx context.Context, container *ContainerRecord) error {
	if !t.opts.Long || container.LastModified.IsZero() {
		return t.line(ctx, container.URI)
	}
	return t.line(ctx, container.URI, container.LastModified.Format(TimeLayout))
}

// WriteUsage emits "size<TAB>path".
func (t *TableWriter) WriteUsage(ctx context.Context, usage *UsageRecord) error {
	path := usage.Path
	if usage.Total {
		path += " (total)"
	}
	return t.line(ctx, t.size(usage.Size), path)
}

// WriteSummary reports empty and truncated listings; a listing that
// produced output needs no trailer.
func (t *TableWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	switch {
	case sum.Emitted == 0 && sum.Pattern:
		return t.line(ctx, "No objects matching pattern in "+sum.URI)
	case sum.Emitted == 0:
		return t.line(ctx, "No objects found in "+sum.URI)
	case sum.Truncated:
		return t.line(ctx, fmt.Sprintf("Listing stopped after %d pages; results are incomplete.", sum.Pages))
	}
	return nil
}

// WriteError prints the error to the error stream.
func (t *TableWriter) WriteError(ctx context.Context, rec *ErrorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrWriterClosed
	}

	msg := "error: " + rec.Message
	if rec.URI != "" {
		msg = "error: " + rec.URI + ": " + rec.Message
	}
	if _, err := fmt.Fprintln(t.errOut, msg); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// Flush writes the buffered rows.
func (t *TableWriter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.tw.Flush(); err != nil {
		return &WriteError{Op: "flush", Err: err}
	}
	return nil
}

// Close flushes and marks the writer closed.
func (t *TableWriter) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *TableWriter) size(n int64) string {
	if t.opts.Human {
		return FormatSize(n)
	}
	return strconv.FormatInt(n, 10)
}

func (t *TableWriter) line(ctx context.Context, cols ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrWriterClosed
	}

	for i, c := range cols {
		sep := "\t"
		if i == len(cols)-1 {
			sep = "\n"
		}
		if _, err := io.WriteString(t.tw, c+sep); err != nil {
			return &WriteError{Op: "write", Err: err}
		}
	}
	return nil
}

// FormatSize formats bytes as human-readable size.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
