package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/confpilot/confpilot/pkg/policy"
)

func newImplementCommand() *cobra.Command {
	var approve bool

	cmd := &cobra.Command{
		Use:   "implement <version-id>",
		Short: "Apply a stored version's configuration items to the tenant",
		Long: `Implement analyzes the version, checks the policy gate, and dispatches
every configuration item to the connected tenant. Item failures are
recorded in the result; only an authentication failure aborts the run.

High-risk analyses and very large batches are blocked unless --approve
is given.`,
		Example: `  confpilot implement 3f2c9a10-...

  # Explicitly approve a high-risk batch
  confpilot implement 3f2c9a10-... --approve`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			conn, err := a.connection()
			if err != nil {
				return err
			}

			analysis, err := analyzeVersion(ctx, a, args[0])
			if err != nil {
				return err
			}

			gate := policy.NewGate(a.telemetry.Logger)
			verdict, err := gate.Check(ctx, policy.Input{
				RiskLevel:        analysis.RiskLevel,
				Complexity:       analysis.Complexity,
				EstimatedChanges: analysis.EstimatedChanges,
				Approved:         approve,
			})
			if err != nil {
				return err
			}
			if !verdict.Allowed {
				for _, v := range verdict.Violations {
					fmt.Fprintf(cmd.ErrOrStderr(), "policy %s: %s\n", v.Policy, v.Message)
				}
				return fmt.Errorf("implementation blocked by policy (rerun with --approve to override)")
			}

			record, err := a.newExecutor().Execute(ctx, conn, analysis, args[0])
			if err != nil {
				return err
			}
			return printJSON(record)
		},
	}

	cmd.Flags().BoolVar(&approve, "approve", false, "approve high-risk or large implementations")

	return cmd
}
