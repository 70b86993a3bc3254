package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/afl-job-crawler/internal/server"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates the jobs table and its indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := buildApp(cmd, server.ModeMigrate)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Migrate(cmd.Context())
		},
	}
}
