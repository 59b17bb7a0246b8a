package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	logLevel   string
	logFormat  string
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "confpilot",
		Short: "ConfPilot - HCM configuration implementation pipeline",
		Long: `ConfPilot ingests configuration workbooks, versions them by content,
analyzes them into typed configuration items, and implements the items
against a remote HCM tenant.

The pipeline:
  - upload: store a workbook file as a new content-addressed version
  - analyze: classify sheets and score complexity/risk
  - implement: apply configuration items to the connected tenant
  - diff/versions/rollback: inspect and manage version history`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (console, json)")

	rootCmd.AddCommand(newUploadCommand())
	rootCmd.AddCommand(newVersionsCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newImplementCommand())
	rootCmd.AddCommand(newRollbackCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newMigrateCommand())

	return rootCmd
}
