// Package cmd implements the azst command line.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/azst/internal/config"
	"github.com/3leaps/azst/internal/observability"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "none",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata reported by the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	cfgFile      string
	logLevel     string
	accountFlag  string
	outputFormat string

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "azst",
	Short: "List and size Azure Blob Storage paths",
	Long: `azst lists blobs and virtual directories in Azure Blob Storage and
reports storage usage, with shell-style wildcards in paths.

Addresses take two forms:
  az://account/container/path
  az://container/path          (account from --account or config)

Paths without the az:// scheme refer to the local filesystem.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/azst/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVarP(&accountFlag, "account", "a", "", "Storage account name")
	pf.StringVar(&outputFormat, "output", "", "Output format (table, jsonl)")
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func initConfig(cmd *cobra.Command, _ []string) error {
	overrides := map[string]any{}
	if logLevel != "" {
		overrides["logging"] = map[string]any{"level": logLevel}
	}
	if accountFlag != "" {
		overrides["azure"] = map[string]any{"account": accountFlag}
	}
	if outputFormat != "" {
		overrides["output"] = map[string]any{"format": outputFormat}
	}

	cfg, err := config.LoadFile(cmd.Context(), cfgFile, overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	if err := observability.InitCLILogger(cfg.Logging.Level, cfg.Logging.Format == "json"); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid log level", err)
	}
	observability.CLILogger.Debug("Configuration loaded",
		zap.String("provider", cfg.Provider.Kind),
		zap.String("account", cfg.Azure.Account),
		zap.String("output", cfg.Output.Format))

	appConfig = cfg
	return nil
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (exit code %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode returns the exit code carried by err, or 1 for other errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}
