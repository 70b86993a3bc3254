package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
	"github.com/JakeFAU/afl-job-crawler/internal/server"
)

// newCrawlCmd creates the 'crawl' subcommand, which performs one coordinator run.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs one crawl pass over the field/region queue",
		Long: `Processes field/region combinations from the persisted queue until it
drains, the per-run budget is spent, or a combination fails. A failed
combination stays at the head of the queue for the next run.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	app, logger, err := buildApp(cmd, server.ModeCrawl)
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := app.Crawl(cmd.Context())
	if errors.Is(err, crawler.ErrRunInProgress) {
		logger.Info("another crawl run is in progress, nothing to do")
		return nil
	}
	if err != nil {
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("crawl command finished",
		zap.String("run_id", summary.RunID),
		zap.Int("combinations_done", summary.CombinationsDone),
		zap.Int("combinations_left", summary.CombinationsLeft),
		zap.Int("inserted", summary.Inserted),
		zap.Int("purged", summary.Purged),
		zap.Int("failed_jobs", summary.FailedJobs),
		zap.Duration("duration", summary.Duration),
	)
	return nil
}
