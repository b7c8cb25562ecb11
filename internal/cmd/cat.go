package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/azst/internal/observability"
	"github.com/3leaps/azst/pkg/match"
	"github.com/3leaps/azst/pkg/provider"
)

var catCmd = &cobra.Command{
	Use:   "cat <uri>...",
	Short: "Write blob contents to stdout",
	Long: `Download one or more blobs and write their contents to stdout.

Ranges:
  start-end   bytes start through end, inclusive
  start-      bytes from start to the end of the blob
  -N          the last N bytes

Examples:
  azst cat az://store01/media/readme.txt
  azst cat --header az://store01/logs/a.log az://store01/logs/b.log
  azst cat --range 0-99 az://store01/media/big.bin
  azst cat --range -512 az://store01/logs/app.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCat,
}

var (
	catHeader bool
	catRange  string
)

func init() {
	rootCmd.AddCommand(catCmd)

	catCmd.Flags().BoolVar(&catHeader, "header", false, "Print a header line before each blob (to stderr)")
	catCmd.Flags().StringVar(&catRange, "range", "", "Byte range: start-end, start- or -N")
}

// ErrInvalidRange indicates a malformed --range value.
var ErrInvalidRange = errors.New("invalid range (use start-end, start- or -N)")

// byteRange is a parsed --range value. End is -1 for "to the end"; Last
// is set for the "-N" form.
type byteRange struct {
	Start int64
	End   int64
	Last  int64
}

// parseRange parses start-end, start- and -N.
func parseRange(s string) (*byteRange, error) {
	if s == "" {
		return nil, nil
	}

	if strings.HasPrefix(s, "-") {
		n, err := strconv.ParseInt(s[1:], 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, s)
		}
		return &byteRange{Last: n, End: -1}, nil
	}

	startStr, endStr, ok := strings.Cut(s, "-")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, fmt.Errorf("%w: invalid start in %q", ErrInvalidRange, s)
	}
	r := &byteRange{Start: start, End: -1}
	if endStr != "" {
		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, fmt.Errorf("%w: invalid end in %q", ErrInvalidRange, s)
		}
		r.End = end
	}
	return r, nil
}

// resolve turns the range into absolute offsets for a blob of size bytes.
// The end offset is -1 for "to the end".
func (r *byteRange) resolve(size int64) (int64, int64) {
	if r.Last > 0 {
		start := size - r.Last
		if start < 0 {
			start = 0
		}
		return start, size - 1
	}
	return r.Start, r.End
}

func runCat(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	ctx, cancel := commandContext(cmd.Context(), cfg)
	defer cancel()

	rng, err := parseRange(catRange)
	if err != nil {
		observability.CLILogger.Error("Invalid range", zap.String("range", catRange), zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid range", err)
	}

	targets := make([]*Target, 0, len(args))
	for _, arg := range args {
		target, err := ParseTarget(arg, cfg.Azure.Account)
		if err == nil && (target.Local || target.IsAccount() || target.BlobPath == "") {
			err = fmt.Errorf("%q does not name a blob (expected az://[account/]container/path)", arg)
		}
		if err == nil && match.HasWildcard(target.BlobPath) {
			err = fmt.Errorf("%q: wildcards are not supported by cat", arg)
		}
		if err != nil {
			observability.CLILogger.Error("Invalid URI", zap.String("uri", arg), zap.Error(err))
			return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
		}
		targets = append(targets, target)
	}

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	for i, target := range targets {
		if catHeader {
			if i > 0 {
				_, _ = fmt.Fprintln(stderr)
			}
			_, _ = fmt.Fprintf(stderr, "==> %s <==\n", target)
		}

		if err := catBlob(ctx, stdout, target, rng); err != nil {
			return err
		}
	}
	return nil
}

func catBlob(ctx context.Context, out io.Writer, target *Target, rng *byteRange) error {
	uri := target.String()

	b, err := openBackend(ctx, appConfig, target.Account)
	if err != nil {
		observability.CLILogger.Error("Failed to create provider", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}
	p, err := b.open(ctx, target.Container)
	if err != nil {
		observability.CLILogger.Error("Failed to open container", zap.String("uri", uri), zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to open container", err)
	}
	defer func() { _ = p.Close() }()

	body, err := openBody(ctx, p, target.BlobPath, rng)
	if err != nil {
		observability.CLILogger.Error("Failed to download blob", zap.String("uri", uri), zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return exitError(foundry.ExitSignalInt, "Download cancelled", err)
		}
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to download blob", err)
	}
	defer func() { _ = body.Close() }()

	n, err := io.Copy(out, body)
	if err != nil {
		observability.CLILogger.Error("Failed to copy blob", zap.String("uri", uri), zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to write blob", err)
	}
	observability.CLILogger.Debug("Blob written", zap.String("uri", uri), zap.Int64("bytes", n))
	return nil
}

// ErrDownloadUnsupported is returned when a backend cannot stream blobs.
var ErrDownloadUnsupported = errors.New("backend does not support downloads")

// openBody opens the blob, or the requested range of it.
func openBody(ctx context.Context, p provider.Provider, key string, rng *byteRange) (io.ReadCloser, error) {
	if rng == nil {
		getter, ok := p.(provider.ObjectGetter)
		if !ok {
			return nil, ErrDownloadUnsupported
		}
		body, _, err := getter.GetObject(ctx, key)
		return body, err
	}

	ranger, ok := p.(provider.ObjectRanger)
	if !ok {
		return nil, ErrDownloadUnsupported
	}

	var size int64
	if rng.Last > 0 {
		meta, err := p.Head(ctx, key)
		if err != nil {
			return nil, err
		}
		size = meta.Size
	}

	start, end := rng.resolve(size)
	body, _, err := ranger.GetRange(ctx, key, start, end)
	return body, err
}
