package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/afl-job-crawler/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the job search API and UI, crawling on a schedule",
		Long: `Starts the HTTP server with the /api/jobs query endpoint and the web UI.
When Gemini tokens are configured the crawl coordinator also runs on the
configured cron schedule.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := buildApp(cmd, server.ModeServe)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(cmd.Context())
		},
	}
}
