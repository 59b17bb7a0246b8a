package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/confpilot/confpilot/pkg/pipeline"
)

func newVersionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions [workbook]",
		Short: "List workbooks, or the version history of one workbook",
		Long: `Without arguments, versions lists all workbooks. Given a workbook ID
or name, it lists that workbook's versions newest-first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if len(args) == 0 {
				workbooks, err := a.db.ListWorkbooks(ctx, 0, 0)
				if err != nil {
					return err
				}
				return printJSON(workbooks)
			}

			owner, err := resolveWorkbook(ctx, a, args[0])
			if err != nil {
				return err
			}

			list, err := a.versions.List(ctx, owner.ID)
			if err != nil {
				return err
			}
			return printJSON(list)
		},
	}

	return cmd
}

// resolveWorkbook accepts either a workbook ID or its unique name.
func resolveWorkbook(ctx context.Context, a *app, ref string) (*pipeline.Workbook, error) {
	wb, err := a.db.GetWorkbook(ctx, ref)
	if err == nil {
		return wb, nil
	}
	if !pipeline.IsNotFound(err) {
		return nil, err
	}
	return a.db.GetWorkbookByName(ctx, ref)
}
