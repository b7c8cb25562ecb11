package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/azst/internal/observability"
	"github.com/3leaps/azst/pkg/match"
	"github.com/3leaps/azst/pkg/output"
	"github.com/3leaps/azst/pkg/provider"
	"github.com/3leaps/azst/pkg/usage"
)

var duCmd = &cobra.Command{
	Use:   "du <path>",
	Short: "Report storage usage",
	Long: `Report the total size of blobs under every virtual directory of a
container path, of every container of an account, or of a local tree.

Examples:
  azst du az://store01/media/
  azst du -H az://store01/media/photos/
  azst du -s az://store01/media/
  azst du -Hc az://store01/media/
  azst du az://store01/
  azst du -s /local/path/`,
	Args: cobra.ExactArgs(1),
	RunE: runDu,
}

var (
	duSummarize bool
	duHuman     bool
	duTotal     bool
	duExcludes  []string
	duNoHidden  bool
)

func init() {
	rootCmd.AddCommand(duCmd)

	duCmd.Flags().BoolVarP(&duSummarize, "summarize", "s", false, "Print only the total for the path")
	duCmd.Flags().BoolVarP(&duHuman, "human-readable", "H", false, "Print sizes in human-readable units")
	duCmd.Flags().BoolVarP(&duTotal, "total", "c", false, "Print a grand total")
	duCmd.Flags().StringArrayVar(&duExcludes, "exclude", nil, "Skip blobs matching a glob (repeatable)")
	duCmd.Flags().BoolVar(&duNoHidden, "exclude-hidden", false, "Skip names with a path segment starting with '.'")
}

func runDu(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	ctx, cancel := commandContext(cmd.Context(), cfg)
	defer cancel()

	target, err := ParseTarget(args[0], cfg.Azure.Account)
	if err != nil {
		observability.CLILogger.Error("Invalid URI", zap.String("uri", args[0]), zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
	}

	filter, err := match.NewFilterFromConfig(match.FilterConfig{Excludes: duExcludes, ExcludeHidden: duNoHidden})
	if err != nil {
		observability.CLILogger.Error("Invalid filter", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid filter", err)
	}

	opts := output.TableOptions{Human: duHuman}

	if target.Local {
		w := newOutputWriter(cmd, cfg, string(provider.ProviderFile), opts)
		if err := localUsage(ctx, w, target.Path, filter); err != nil {
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

	svc := usage.NewService(b.open, b.containers, listingConfig(cfg)).
		WithParallel(cfg.Usage.Parallel).
		WithFilter(filter).
		WithLogger(observability.CLILogger)

	w := newOutputWriter(cmd, cfg, string(b.kind), opts)
	if target.IsAccount() {
		err = accountUsage(ctx, w, svc, target)
	} else {
		err = containerUsage(ctx, w, svc, target)
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

func containerUsage(ctx context.Context, w output.Writer, svc *usage.Service, target *Target) error {
	report, err := svc.Container(ctx, target.Container, target.BlobPath)
	if err != nil {
		return failStorage(ctx, w, target.String(), "Failed to compute usage", err)
	}

	base := target.URI(report.Prefix)
	rows := []*output.UsageRecord{}
	switch {
	case duSummarize:
		rows = append(rows, &output.UsageRecord{Path: base, Size: report.Total})
	default:
		for _, dir := range report.Sizes.Sorted() {
			rows = append(rows, &output.UsageRecord{Path: target.URI(dir.Path), Size: dir.Size})
		}
		if duTotal {
			rows = append(rows, &output.UsageRecord{Path: base, Size: report.Total, Total: true})
		}
	}
	return writeUsage(ctx, w, rows)
}

func accountUsage(ctx context.Context, w output.Writer, svc *usage.Service, target *Target) error {
	report, err := svc.Account(ctx)
	if err != nil {
		return failStorage(ctx, w, target.String(), "Failed to compute usage", err)
	}

	rows := []*output.UsageRecord{}
	if !duSummarize {
		for _, c := range report.Containers {
			rows = append(rows, &output.UsageRecord{Path: target.ContainerURI(c.Container), Size: c.Total})
		}
	}
	switch {
	case duSummarize:
		rows = append(rows, &output.UsageRecord{Path: target.String(), Size: report.Total})
	case duTotal:
		rows = append(rows, &output.UsageRecord{Path: target.String(), Size: report.Total, Total: true})
	}
	return writeUsage(ctx, w, rows)
}

func localUsage(ctx context.Context, w output.Writer, root string, filter *match.CompositeFilter) error {
	u, err := usage.WalkLocal(localFs, root, filter)
	if err != nil {
		observability.CLILogger.Error("Failed to compute usage", zap.String("path", root), zap.Error(err))
		if errors.Is(err, os.ErrNotExist) {
			return exitError(foundry.ExitFileNotFound, "Path not found", err)
		}
		return exitError(foundry.ExitFileReadError, "Failed to compute usage", err)
	}

	rows := []*output.UsageRecord{}
	switch {
	case duSummarize:
		rows = append(rows, &output.UsageRecord{Path: root, Size: u.Total()})
	default:
		paths := make([]string, 0, len(u.Sizes))
		for path := range u.Sizes {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			rows = append(rows, &output.UsageRecord{Path: filepath.ToSlash(path), Size: u.Sizes[path]})
		}
		if duTotal {
			rows = append(rows, &output.UsageRecord{Path: root, Size: u.Total(), Total: true})
		}
	}
	return writeUsage(ctx, w, rows)
}

func writeUsage(ctx context.Context, w output.Writer, rows []*output.UsageRecord) error {
	for _, row := range rows {
		if err := w.WriteUsage(ctx, row); err != nil {
			return failWrite(err)
		}
	}
	return nil
}
