package commands

import (
	"github.com/spf13/cobra"
)

func newRollbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback <workbook> <version-id>",
		Short: "Repoint a workbook's current version to an older one",
		Long: `Rollback marks an existing version as the workbook's current version.
Version history is append-only: no bytes move and no versions are
deleted, only the current-version pointer changes.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			owner, err := resolveWorkbook(ctx, a, args[0])
			if err != nil {
				return err
			}

			target, err := a.versions.Rollback(ctx, owner.ID, args[1])
			if err != nil {
				return err
			}
			return printJSON(target)
		},
	}

	return cmd
}
