package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/confpilot/confpilot/pkg/pipeline"
)

func newAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <version-id>",
		Short: "Classify a stored version into typed configuration items",
		Long: `Analyze loads a stored version, classifies every sheet by its column
headers, and prints the resulting items, recommendations and
complexity/risk scores as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			analysisCtx, span := a.telemetry.Tracer.StartAnalysisSpan(ctx, args[0])
			defer span.End()

			result, err := analyzeVersion(analysisCtx, a, args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	return cmd
}

// analyzeVersion materializes the stored blob under its original file name
// and runs the analyzer over it. The checksum is verified on read.
func analyzeVersion(ctx context.Context, a *app, versionID string) (*pipeline.AnalysisResult, error) {
	version, raw, err := a.versions.Open(ctx, versionID)
	if err != nil {
		return nil, err
	}

	// The loader switches on the file extension, so the temp file must
	// keep the uploaded file's name, not the workbook's, which can be any
	// label the user chose at upload time.
	fileName := version.FileName
	if fileName == "" {
		owner, err := a.db.GetWorkbook(ctx, version.WorkbookID)
		if err != nil {
			return nil, err
		}
		fileName = owner.Name
	}

	tmpDir, err := os.MkdirTemp("", "confpilot-analyze-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, filepath.Base(fileName))
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return nil, fmt.Errorf("failed to materialize version: %w", err)
	}

	return a.newAnalyzer().AnalyzeFile(ctx, path)
}
