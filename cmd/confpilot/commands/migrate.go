package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/confpilot/confpilot/pkg/config"
	"github.com/confpilot/confpilot/pkg/stores"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Migrate brings the metadata database schema up to date. The other
commands run pending migrations automatically; this command exists for
provisioning and for verifying connectivity without touching data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			db, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Storage.DatabasePath})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Init(ctx); err != nil {
				return err
			}
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			if err := db.HealthCheck(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
			return nil
		},
	}

	return cmd
}
