package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/sync/coordinator"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Synchronize on a schedule until interrupted",
	Long: `Run an initial synchronization cycle, then synchronize every syncInterval
until SIGINT or SIGTERM. Failures of scheduled cycles are logged and the
schedule keeps running.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("skip-initial", false, "Do not synchronize before the first tick")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	skipInitial, err := cmd.Flags().GetBool("skip-initial")
	if err != nil {
		return fmt.Errorf("failed to read skip-initial flag: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return withComponents(ctx, func(c *components) error {
		interval, err := c.config.GetSyncInterval()
		if err != nil {
			return err
		}

		c.notifier.OnFailure(func(err error) {
			zap.S().Errorw("Scheduled synchronization failed", "error", err)
		})

		if !skipInitial {
			if _, err := c.manager.Synchronize(ctx, false); err != nil {
				zap.S().Errorw("Initial synchronization failed", "error", err)
			}
		}

		scheduler := coordinator.New(c.manager, coordinator.WithNotifier(c.notifier))
		scheduler.Configure(ctx, interval)
		defer scheduler.Stop()

		if interval == config.IntervalDisabled {
			zap.S().Warnw("Scheduled synchronization is disabled, waiting for a signal only")
		}

		<-ctx.Done()
		zap.S().Infow("Received shutdown signal, stopping", "cause", context.Cause(ctx))
		return nil
	})
}
