package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/azst/internal/observability"
	"github.com/3leaps/azst/pkg/listing"
	"github.com/3leaps/azst/pkg/match"
	"github.com/3leaps/azst/pkg/output"
	"github.com/3leaps/azst/pkg/provider"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List containers, blobs and virtual directories",
	Long: `List the contents of a container path, the containers of an account,
or a local directory.

Wildcards: '*' and '?' match within one path segment, '**' matches any
number of segments. A pattern ending in '/' selects virtual directories.

Examples:
  azst ls                                   # containers of the configured account
  azst ls az://store01/
  azst ls az://store01/media/photos/
  azst ls az://store01/media/photos/*/
  azst ls -l -H az://store01/media/photos/**/*.jpg
  azst ls -r az://store01/media/ --exclude '**/*.tmp'
  azst ls ./local/dir`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

var (
	lsLong      bool
	lsHuman     bool
	lsRecursive bool
	lsExcludes  []string
	lsMinSize   string
	lsMaxSize   string
	lsAfter     string
	lsBefore    string
	lsRegex     string
	lsNoHidden  bool
)

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "Show size, content type and modification time")
	lsCmd.Flags().BoolVarP(&lsHuman, "human-readable", "H", false, "Print sizes in human-readable units")
	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "r", false, "List every blob below the path")
	lsCmd.Flags().StringArrayVar(&lsExcludes, "exclude", nil, "Exclude names matching a glob (repeatable)")
	lsCmd.Flags().StringVar(&lsMinSize, "min-size", "", "Only blobs at least this size (e.g. 1KB, 10MiB)")
	lsCmd.Flags().StringVar(&lsMaxSize, "max-size", "", "Only blobs at most this size")
	lsCmd.Flags().StringVar(&lsAfter, "after", "", "Only blobs modified at or after this date (2024-01-15 or RFC 3339)")
	lsCmd.Flags().StringVar(&lsBefore, "before", "", "Only blobs modified before this date")
	lsCmd.Flags().StringVar(&lsRegex, "regex", "", "Only blobs whose name matches this regular expression")
	lsCmd.Flags().BoolVar(&lsNoHidden, "exclude-hidden", false, "Skip names with a path segment starting with '.'")
}

func lsFilter() (*match.CompositeFilter, error) {
	return match.NewFilterFromConfig(match.FilterConfig{
		MinSize:       lsMinSize,
		MaxSize:       lsMaxSize,
		After:         lsAfter,
		Before:        lsBefore,
		NameRegex:     lsRegex,
		Excludes:      lsExcludes,
		ExcludeHidden: lsNoHidden,
	})
}

func runLs(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	ctx, cancel := commandContext(cmd.Context(), cfg)
	defer cancel()

	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}

	target, err := ParseTarget(arg, cfg.Azure.Account)
	if err != nil {
		observability.CLILogger.Error("Invalid URI", zap.String("uri", arg), zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
	}

	filter, err := lsFilter()
	if err != nil {
		observability.CLILogger.Error("Invalid filter", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid filter", err)
	}

	opts := output.TableOptions{Long: lsLong, Human: lsHuman}

	if target.Local {
		w := newOutputWriter(cmd, cfg, string(provider.ProviderFile), opts)
		if err := listLocal(ctx, w, target.Path, lsRecursive, filter); err != nil {
			_ = w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return failWrite(err)
		}
		return nil
	}

	b, err := openBackend(ctx, cfg, target.Account)
	if err != nil {
		observability.CLILogger.Error("Failed to create provider", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}

	w := newOutputWriter(cmd, cfg, string(b.kind), opts)
	if target.IsAccount() {
		err = listContainers(ctx, w, b, target)
	} else {
		err = listBlobs(ctx, w, b, target, filter)
	}
	if err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return failWrite(err)
	}
	return nil
}

// listContainers writes one record per container of the target account.
func listContainers(ctx context.Context, w output.Writer, b *backend, target *Target) error {
	infos, err := b.containers.ListContainers(ctx)
	if err != nil {
		return failStorage(ctx, w, target.String(), "Failed to list containers", err)
	}

	for _, info := range infos {
		rec := &output.ContainerRecord{
			URI:          target.ContainerURI(info.Name),
			Account:      target.Account,
			Name:         info.Name,
			LastModified: info.LastModified,
		}
		if err := w.WriteContainer(ctx, rec); err != nil {
			return failWrite(err)
		}
	}
	return nil
}

// listBlobs runs the listing engine and streams each page to w.
func listBlobs(ctx context.Context, w output.Writer, b *backend, target *Target, filter *match.CompositeFilter) error {
	p, err := b.open(ctx, target.Container)
	if err != nil {
		return failStorage(ctx, w, target.String(), "Failed to open container", err)
	}
	defer func() { _ = p.Close() }()

	req := listing.Request{
		Container: target.Container,
		Path:      target.BlobPath,
		Recursive: lsRecursive,
	}
	_, spec := listing.Plan(req)

	l := listing.New(p, listingConfig(appConfig)).
		WithFilter(filter).
		WithLogger(observability.CLILogger)

	start := time.Now()
	var writeErr error
	sum, err := l.List(ctx, req, func(page []provider.Entry) error {
		for _, e := range page {
			if err := writeEntry(ctx, w, target, e); err != nil {
				writeErr = err
				return err
			}
		}
		if err := w.Flush(); err != nil {
			writeErr = err
			return err
		}
		return nil
	})
	if writeErr != nil {
		return failWrite(writeErr)
	}
	if err != nil {
		return failStorage(ctx, w, target.String(), "Failed to list blobs", err)
	}

	elapsed := time.Since(start)
	observability.CLILogger.Debug("Listing complete",
		zap.String("uri", target.String()),
		zap.String("mode", string(sum.Mode)),
		zap.Int("pages", sum.Pages),
		zap.String("listed", humanize.Comma(sum.Listed)),
		zap.String("emitted", humanize.Comma(sum.Emitted)),
		zap.Duration("duration", elapsed))

	if err := w.WriteSummary(ctx, &output.SummaryRecord{
		URI:           target.String(),
		Mode:          string(sum.Mode),
		Pattern:       spec.HasGlob,
		Pages:         sum.Pages,
		Listed:        sum.Listed,
		Emitted:       sum.Emitted,
		Bytes:         sum.Bytes,
		Truncated:     sum.Truncated,
		Duration:      elapsed,
		DurationHuman: elapsed.String(),
	}); err != nil {
		return failWrite(err)
	}
	return nil
}

func writeEntry(ctx context.Context, w output.Writer, target *Target, e provider.Entry) error {
	if e.IsPrefix() {
		return w.WritePrefix(ctx, &output.PrefixRecord{URI: target.URI(e.Name), Name: e.Name})
	}
	return w.WriteBlob(ctx, &output.BlobRecord{
		URI:          target.URI(e.Name),
		Name:         e.Name,
		Size:         e.Size,
		LastModified: e.LastModified,
		ContentType:  e.ContentType,
	})
}

// listLocal lists a local file or directory. Directories carry a trailing
// '/'; recursive listings walk the whole tree.
func listLocal(ctx context.Context, w output.Writer, root string, recursive bool, filter *match.CompositeFilter) error {
	info, err := localFs.Stat(root)
	if err != nil {
		observability.CLILogger.Error("Failed to access path", zap.String("path", root), zap.Error(err))
		if errors.Is(err, os.ErrNotExist) {
			return exitError(foundry.ExitFileNotFound, "Path not found", err)
		}
		return exitError(foundry.ExitFileReadError, "Failed to access path", err)
	}

	// Filters see names relative to root, so a root inside a hidden
	// directory is still listed.
	relative := func(path string) string {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			rel = filepath.Base(path)
		}
		return filepath.ToSlash(rel)
	}

	emit := func(path string, fi os.FileInfo) error {
		if fi.IsDir() {
			if !filter.Match(provider.PrefixEntry(relative(path) + "/")) {
				return nil
			}
			name := filepath.ToSlash(path) + "/"
			return w.WritePrefix(ctx, &output.PrefixRecord{URI: name, Name: name})
		}
		if !filter.Match(provider.BlobEntry(relative(path), fi.Size(), fi.ModTime().UTC(), "")) {
			return nil
		}
		name := filepath.ToSlash(path)
		return w.WriteBlob(ctx, &output.BlobRecord{
			URI:          name,
			Name:         name,
			Size:         fi.Size(),
			LastModified: fi.ModTime().UTC(),
		})
	}

	if !info.IsDir() {
		if err := emit(root, info); err != nil {
			return failWrite(err)
		}
		return nil
	}

	if recursive {
		err = afero.Walk(localFs, root, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if path == root {
				return nil
			}
			if fi.IsDir() && !filter.Match(provider.PrefixEntry(relative(path)+"/")) {
				return filepath.SkipDir
			}
			return emit(path, fi)
		})
	} else {
		var entries []os.FileInfo
		if entries, err = afero.ReadDir(localFs, root); err == nil {
			for _, fi := range entries {
				if err = emit(filepath.Join(root, fi.Name()), fi); err != nil {
					break
				}
			}
		}
	}
	if err != nil {
		observability.CLILogger.Error("Failed to list path", zap.String("path", root), zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Failed to list path", err)
	}
	return nil
}
