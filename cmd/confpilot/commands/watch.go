package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/confpilot/confpilot/pkg/inbox"
)

func newWatchCommand() *cobra.Command {
	var createdBy string

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch an inbox directory and ingest dropped workbook files",
		Long: `Watch tails a directory and uploads every workbook file (.xlsx, .xlsm,
.csv) dropped into it. Duplicate content is rejected like a manual
upload; failures are logged and watching continues. The directory
defaults to watch.dir from the config file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			dir := a.cfg.Watch.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no inbox directory: pass one or set watch.dir in the config")
			}

			w := inbox.NewWatcher(dir, func(ctx context.Context, path string) error {
				_, err := a.ingestFile(ctx, path, "", createdBy)
				return err
			}, a.telemetry.Logger)

			err = w.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&createdBy, "created-by", "", "user recorded on ingested versions")

	return cmd
}
