package commands

import (
	"github.com/spf13/cobra"
)

func newUploadCommand() *cobra.Command {
	var (
		workbookName string
		createdBy    string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Store a workbook file as a new content-addressed version",
		Long: `Upload reads a tabular file (.xlsx, .xlsm or .csv), rejects exact
duplicates by content checksum, and records it as the next version of its
workbook. The workbook is selected by name (defaulting to the file name)
and created on first upload.`,
		Example: `  # Upload under the file's own name
  confpilot upload configs/q3-users.xlsx

  # Upload into a named workbook
  confpilot upload q3-final.xlsx --workbook quarterly-users`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			version, err := a.ingestFile(ctx, args[0], workbookName, createdBy)
			if err != nil {
				return err
			}
			return printJSON(version)
		},
	}

	cmd.Flags().StringVarP(&workbookName, "workbook", "w", "", "workbook name (default: file name)")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "uploading user recorded on the version")

	return cmd
}
