package commands

import (
	"github.com/spf13/cobra"

	"github.com/confpilot/confpilot/pkg/versions"
)

func newDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <version-a> <version-b>",
		Short: "Compare two stored versions by content checksum",
		Long: `Diff reports whether two versions carry identical content. Equality is
decided by checksum alone; version numbers play no part.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			result, err := versions.NewDiff(a.versions, nil).Compare(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	return cmd
}
