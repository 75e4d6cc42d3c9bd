package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one full catalog synchronization and exit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := buildApplication(ctx, cfgFile)
			if err != nil {
				return err
			}
			defer app.close()

			stats, err := app.orch.Run(ctx)
			if err != nil {
				return err
			}
			app.logger.Info("Synchronization complete",
				zap.Int("pages", stats.Pages),
				zap.Int("entries", stats.Entries),
				zap.Int("processed", stats.Processed),
				zap.Int("created", stats.Created),
				zap.Int("updated", stats.Updated),
				zap.Int("failed", stats.Failed),
			)
			return nil
		},
	}
}
