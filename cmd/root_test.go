package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/afl-job-crawler/internal/config"
	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
	"github.com/JakeFAU/afl-job-crawler/internal/server"
)

type fakeApp struct {
	crawlErr error
	crawls   int
	migrates int
	closed   bool
}

func (a *fakeApp) Crawl(context.Context) (crawler.RunSummary, error) {
	a.crawls++
	return crawler.RunSummary{RunID: "run-1"}, a.crawlErr
}

func (a *fakeApp) Serve(context.Context) error { return nil }

func (a *fakeApp) Migrate(context.Context) error {
	a.migrates++
	return nil
}

func (a *fakeApp) Close() { a.closed = true }

func stubApp(t *testing.T, app *fakeApp) *server.Mode {
	t.Helper()
	var gotMode server.Mode = -1
	origApp, origLoad := newApp, loadConfig
	t.Cleanup(func() { newApp, loadConfig = origApp, origLoad })

	loadConfig = func(string) (config.Config, error) {
		return config.Config{Logging: config.LoggingConfig{Level: "error"}}, nil
	}
	newApp = func(_ context.Context, _ config.Config, _ *zap.Logger, mode server.Mode) (App, error) {
		gotMode = mode
		return app, nil
	}
	return &gotMode
}

func TestCrawlCommand(t *testing.T) {
	app := &fakeApp{}
	mode := stubApp(t, app)

	root := newRootCmd()
	root.SetArgs([]string{"crawl"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.Equal(t, server.ModeCrawl, *mode)
	require.Equal(t, 1, app.crawls)
	require.True(t, app.closed)
}

func TestCrawlCommandRunInProgressIsNotAnError(t *testing.T) {
	app := &fakeApp{crawlErr: crawler.ErrRunInProgress}
	stubApp(t, app)

	root := newRootCmd()
	root.SetArgs([]string{"crawl"})
	require.NoError(t, root.ExecuteContext(context.Background()))
}

func TestCrawlCommandHaltReturnsError(t *testing.T) {
	app := &fakeApp{crawlErr: errors.Join(crawler.ErrHalted, errors.New("boom"))}
	stubApp(t, app)

	root := newRootCmd()
	root.SetArgs([]string{"crawl"})
	err := root.ExecuteContext(context.Background())
	require.ErrorIs(t, err, crawler.ErrHalted)
	require.True(t, app.closed)
}

func TestMigrateCommand(t *testing.T) {
	app := &fakeApp{}
	mode := stubApp(t, app)

	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.Equal(t, server.ModeMigrate, *mode)
	require.Equal(t, 1, app.migrates)
}

func TestConfigErrorStopsCommand(t *testing.T) {
	stubApp(t, &fakeApp{})
	loadConfig = func(string) (config.Config, error) {
		return config.Config{}, errors.New("bad config")
	}

	root := newRootCmd()
	root.SetArgs([]string{"crawl"})
	require.ErrorContains(t, root.ExecuteContext(context.Background()), "bad config")
}
