// Package cmd defines the afl-crawler command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/afl-job-crawler/internal/config"
	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
	"github.com/JakeFAU/afl-job-crawler/internal/logging"
	"github.com/JakeFAU/afl-job-crawler/internal/server"
)

var cfgFile string

type envKeyType string

const envKey envKeyType = "env"

// env is what PersistentPreRunE hands to subcommands.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

// App is the subset of *server.App the commands drive, so tests can swap it.
type App interface {
	Crawl(ctx context.Context) (crawler.RunSummary, error)
	Serve(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close()
}

// newApp is the application factory. Tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger, mode server.Mode) (App, error) {
	return server.Build(ctx, cfg, logger, mode)
}

// loadConfig is replaced in tests.
var loadConfig = config.Load

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "afl-crawler",
		Short: "Crawls Platsbanken job ads and serves a searchable index of them.",
		Long: `afl-crawler walks every configured occupation field and region on
Platsbanken, extracts structured requirements from each new posting with
Gemini, and stores the result in Postgres. The serve command exposes the
stored jobs through a filtering JSON endpoint and a small web UI.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), envKey, &env{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e, ok := cmd.Context().Value(envKey).(*env); ok && e != nil {
				_ = e.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml when present)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func resolveEnv(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKey).(*env)
	if !ok || e == nil {
		return nil, errors.New("configuration not loaded")
	}
	return e, nil
}

// buildApp resolves the loaded configuration and builds an App for mode.
func buildApp(cmd *cobra.Command, mode server.Mode) (App, *zap.Logger, error) {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	app, err := newApp(cmd.Context(), e.cfg, e.logger, mode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize application services: %w", err)
	}
	return app, e.logger, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
