package cmd

import (
	"context"
	"errors"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/azst/internal/config"
	"github.com/3leaps/azst/internal/observability"
	"github.com/3leaps/azst/pkg/output"
)

// newOutputWriter returns the configured record writer on the command's
// stdout. Table errors go to the command's stderr.
func newOutputWriter(cmd *cobra.Command, cfg *config.Config, providerName string, opts output.TableOptions) output.Writer {
	if cfg.Output.Format == config.FormatJSONL {
		return output.NewJSONLWriter(cmd.OutOrStdout(), uuid.NewString(), providerName)
	}
	return output.NewTableWriter(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
}

// failStorage reports a provider failure as an error record and returns
// the matching exit error.
func failStorage(ctx context.Context, w output.Writer, uri, message string, err error) error {
	observability.CLILogger.Error(message, zap.String("uri", uri), zap.Error(err))

	// The listing context may be done; the error record still goes out.
	_ = w.WriteError(context.WithoutCancel(ctx), &output.ErrorRecord{
		Code:    output.ErrorCode(err),
		Message: err.Error(),
		URI:     uri,
	})
	_ = w.Flush()

	if errors.Is(err, context.Canceled) {
		return exitError(foundry.ExitSignalInt, message, err)
	}
	return exitError(foundry.ExitExternalServiceUnavailable, message, err)
}

// failWrite reports an output failure.
func failWrite(err error) error {
	observability.CLILogger.Error("Failed to write output", zap.Error(err))
	return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
}
