package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCrawlCmd creates the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs one discovery and crawl pass",
		Long: `Searches every configured query, ranks the accepted links by trust, then
renders and persists each one under the configured concurrency limit. The
command returns once every link has reached a terminal state.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	// PersistentPostRun is skipped when RunE fails, so close here.
	defer appInstance.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := appInstance.RunCrawl(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil && cmd.Context().Err() == nil {
		appInstance.Logger().Warn("crawl interrupted by signal", zap.Error(context.Cause(ctx)))
	}
	appInstance.Logger().Info("crawl command finished",
		zap.Int("total", summary.Total),
		zap.Int("synced", summary.Synced),
	)
	return nil
}
