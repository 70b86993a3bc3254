package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/afl-job-crawler/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Server:      config.ServerConfig{Port: 8080},
		DB:          config.DBConfig{Table: "jobs"},
		Redis:       config.RedisConfig{QueueKey: "crawl:queue", LockKey: "crawl:lock"},
		Platsbanken: config.PlatsbankenConfig{TimeoutSeconds: 5},
		Gemini:      config.GeminiConfig{Model: "gemini-2.0-flash", MaxAttempts: 2},
		Crawl: config.CrawlConfig{
			Fields:   []string{"apaJ_2ja_LuF"},
			Regions:  []string{"CifL_Rzy_Mku"},
			Schedule: "@every 1h",
		},
	}
}

func TestBuildServeWithoutTokensIsReadOnly(t *testing.T) {
	t.Parallel()

	app, err := Build(context.Background(), testConfig(), zap.NewNop(), ModeServe)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	require.NotNil(t, app.apiServer)
	require.Nil(t, app.coordinator)

	_, err = app.Crawl(context.Background())
	require.ErrorIs(t, err, ErrCrawlDisabled)

	rec := httptest.NewRecorder()
	app.apiServer.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLockRenewInterval(t *testing.T) {
	t.Parallel()

	require.Equal(t, 20*time.Minute, lockRenewInterval(time.Hour))
	require.Equal(t, 40*time.Minute, lockRenewInterval(0))
}

func TestBuildCrawlRequiresTokens(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), testConfig(), zap.NewNop(), ModeCrawl)
	require.ErrorContains(t, err, "gemini.tokens")
}

func TestBuildMigrateRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), testConfig(), zap.NewNop(), ModeMigrate)
	require.ErrorContains(t, err, "db.dsn")
}

func TestCrawlWithRedisQueueAndEmptyListing(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ads":[],"numberOfAds":0}`))
	}))
	t.Cleanup(api.Close)

	cfg := testConfig()
	cfg.Redis.URL = "redis://" + mr.Addr()
	cfg.Platsbanken.BaseURL = api.URL
	cfg.Gemini.Tokens = []string{"test-token"}

	app, err := Build(context.Background(), cfg, zap.NewNop(), ModeCrawl)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	summary, err := app.Crawl(context.Background())
	require.NoError(t, err)
	require.True(t, summary.QueueInitialized)
	require.Equal(t, 1, summary.CombinationsDone)
	require.Equal(t, 0, summary.CombinationsLeft)

	stored, err := mr.Get(cfg.Redis.QueueKey)
	require.NoError(t, err)
	require.Equal(t, "[]", stored)
	require.False(t, mr.Exists(cfg.Redis.LockKey))
}
