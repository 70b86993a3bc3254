// Package server assembles the application's dependencies and runs them.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/afl-job-crawler/internal/api"
	"github.com/JakeFAU/afl-job-crawler/internal/config"
	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
	"github.com/JakeFAU/afl-job-crawler/internal/extract"
	"github.com/JakeFAU/afl-job-crawler/internal/platsbanken"
	memorypublisher "github.com/JakeFAU/afl-job-crawler/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/afl-job-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/afl-job-crawler/internal/scheduler"
	"github.com/JakeFAU/afl-job-crawler/internal/storage/memory"
	pgstore "github.com/JakeFAU/afl-job-crawler/internal/storage/postgres"
	redisstore "github.com/JakeFAU/afl-job-crawler/internal/storage/redis"
)

// JobCreatedEventType labels job.created Pub/Sub messages.
const JobCreatedEventType = "job.created"

// ErrCrawlDisabled is returned by Crawl when no AI credentials are configured.
var ErrCrawlDisabled = errors.New("crawling is disabled: gemini.tokens is empty")

// Mode selects which components Build wires.
type Mode int

// Build modes.
const (
	ModeServe Mode = iota
	ModeCrawl
	ModeMigrate
)

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	jobStore        crawler.JobStore
	pgStore         *pgstore.JobStore
	redisClient     *goredis.Client
	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsub.Publisher
	closeGemini     func() error

	coordinator *crawler.Coordinator
	apiServer   *api.Server
}

// Build creates the dependencies needed for mode.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, mode Mode) (_ *App, err error) {
	app := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()
	logger.Info("building application", zap.Int("server_port", cfg.Server.Port), zap.Int("mode", int(mode)))

	if err := app.setupJobStore(ctx, mode); err != nil {
		return nil, err
	}
	if mode == ModeMigrate {
		return app, nil
	}

	if mode == ModeCrawl || len(cfg.Gemini.Tokens) > 0 {
		if err := cfg.ValidateCrawl(); err != nil {
			return nil, err
		}
		if err := app.setupCoordinator(ctx); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("no gemini tokens configured, serving read-only")
	}

	if mode == ModeServe {
		app.apiServer = api.NewServer(app.jobStore, logger.Named("api"))
	}
	return app, nil
}

func (a *App) setupJobStore(ctx context.Context, mode Mode) error {
	if a.cfg.DB.DSN == "" {
		if mode == ModeMigrate {
			return fmt.Errorf("db.dsn is required to migrate")
		}
		a.logger.Warn("no database DSN configured, using in-memory job store")
		a.jobStore = memory.NewJobStore()
		return nil
	}
	store, err := pgstore.NewJobStore(ctx, pgstore.JobStoreConfig{
		DSN:      a.cfg.DB.DSN,
		Table:    a.cfg.DB.Table,
		MaxConns: a.cfg.DB.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("job store init failed: %w", err)
	}
	a.pgStore = store
	a.jobStore = store
	a.logger.Info("postgres job store initialized", zap.String("table", a.cfg.DB.Table))
	return nil
}

func (a *App) setupQueue(ctx context.Context) (crawler.QueueStore, crawler.Locker, error) {
	if a.cfg.Redis.URL == "" {
		a.logger.Warn("no redis URL configured, crawl queue will not survive restarts")
		return memory.NewQueueStore(), memory.NewLocker(), nil
	}
	client, err := redisstore.NewClient(ctx, a.cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis init failed: %w", err)
	}
	a.redisClient = client
	a.logger.Info("redis queue initialized",
		zap.String("queue_key", a.cfg.Redis.QueueKey),
		zap.String("lock_key", a.cfg.Redis.LockKey),
		zap.Duration("lock_ttl", a.cfg.Redis.LockTTL),
	)
	return redisstore.NewQueueStore(client, a.cfg.Redis.QueueKey),
		redisstore.NewLocker(client, a.cfg.Redis.LockKey, a.cfg.Redis.LockTTL),
		nil
}

func (a *App) setupPublisher(ctx context.Context) (crawler.Publisher, error) {
	if a.cfg.PubSub.Topic == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Info("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	var err error
	a.pubsubClient, err = pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubPublisher = a.pubsubClient.Publisher(a.cfg.PubSub.Topic)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.Topic),
	)
	return gcppublisher.New(a.pubsubPublisher, JobCreatedEventType), nil
}

func (a *App) setupCoordinator(ctx context.Context) error {
	queue, locker, err := a.setupQueue(ctx)
	if err != nil {
		return err
	}
	publisher, err := a.setupPublisher(ctx)
	if err != nil {
		return err
	}

	client, err := platsbanken.NewClient(platsbanken.Config{
		BaseURL:           a.cfg.Platsbanken.BaseURL,
		Timeout:           a.cfg.PlatsbankenTimeout(),
		RequestsPerSecond: a.cfg.Platsbanken.RequestsPerSecond,
		Logger:            a.logger.Named("platsbanken"),
	})
	if err != nil {
		return fmt.Errorf("platsbanken client init failed: %w", err)
	}

	generators, closeGemini, err := extract.NewGeminiGenerators(ctx, a.cfg.Gemini.Tokens, a.cfg.Gemini.Model)
	if err != nil {
		return fmt.Errorf("gemini init failed: %w", err)
	}
	a.closeGemini = closeGemini
	extractor, err := extract.NewService(generators,
		extract.WithMaxAttempts(a.cfg.Gemini.MaxAttempts),
		extract.WithBackoff(a.cfg.GeminiBackoff()),
		extract.WithLogger(a.logger.Named("extract")),
	)
	if err != nil {
		return fmt.Errorf("extraction service init failed: %w", err)
	}
	a.logger.Info("extraction service initialized",
		zap.String("model", a.cfg.Gemini.Model),
		zap.Int("credentials", len(generators)),
		zap.Int("start_credential", extractor.Cursor().Index),
	)

	topic := a.cfg.PubSub.Topic
	if topic == "" {
		topic = JobCreatedEventType
	}
	a.coordinator, err = crawler.NewCoordinator(crawler.Config{
		Fields:                a.cfg.Crawl.Fields,
		Regions:               a.cfg.Crawl.Regions,
		MaxCombinationsPerRun: a.cfg.Crawl.MaxCombinationsPerRun,
		Topic:                 topic,
		LockRenewInterval:     lockRenewInterval(a.cfg.Redis.LockTTL),
	}, crawler.Deps{
		Queue:     queue,
		Locker:    locker,
		Lister:    client,
		Postings:  client,
		Extractor: extractor,
		Store:     a.jobStore,
		Publisher: publisher,
	}, a.logger.Named("coordinator"))
	if err != nil {
		return fmt.Errorf("coordinator init failed: %w", err)
	}
	a.logger.Info("crawl coordinator initialized",
		zap.Int("fields", len(a.cfg.Crawl.Fields)),
		zap.Int("regions", len(a.cfg.Crawl.Regions)),
		zap.Int("max_combinations_per_run", a.cfg.Crawl.MaxCombinationsPerRun),
	)
	return nil
}

// lockRenewInterval renews the run lock three times per TTL.
func lockRenewInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = redisstore.DefaultLockTTL
	}
	return ttl / 3
}

// Migrate creates the job table.
func (a *App) Migrate(ctx context.Context) error {
	if a.pgStore == nil {
		return fmt.Errorf("migrate requires a postgres job store")
	}
	if err := a.pgStore.Migrate(ctx); err != nil {
		return err
	}
	a.logger.Info("migration complete", zap.String("table", a.cfg.DB.Table))
	return nil
}

// Crawl performs a single coordinator run.
func (a *App) Crawl(ctx context.Context) (crawler.RunSummary, error) {
	if a.coordinator == nil {
		return crawler.RunSummary{}, ErrCrawlDisabled
	}
	return a.coordinator.Run(ctx)
}

// Serve runs the HTTP server and, when crawling is enabled, the scheduler
// until ctx is canceled.
func (a *App) Serve(ctx context.Context) error {
	if a.apiServer == nil {
		return fmt.Errorf("serve requires the API server")
	}
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var sched *scheduler.Scheduler
	if a.coordinator != nil {
		sched = scheduler.New(a.coordinator, scheduler.Config{
			Spec:       a.cfg.Crawl.Schedule,
			RunOnStart: a.cfg.Crawl.RunOnStart,
		}, a.logger.Named("scheduler"))
		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	if sched != nil {
		sched.Stop()
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// Close releases every client the App opened.
func (a *App) Close() {
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.closeGemini != nil {
		if err := a.closeGemini(); err != nil {
			a.logger.Warn("gemini client close failed", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("redis client close failed", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
}
