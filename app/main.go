package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lysyi3m/feed2notion/app/cfg"
	"github.com/lysyi3m/feed2notion/app/database"
	"github.com/lysyi3m/feed2notion/app/feed"
	"github.com/lysyi3m/feed2notion/app/notion"
	"github.com/lysyi3m/feed2notion/app/tasks"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Variables already set in the environment take precedence over .env.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to load .env file: %v\n", err)
		return 1
	}

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if appCfg == nil {
		return 0
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting feed2notion", "version", appCfg.Version)

	feedConfigs, err := feed.NewConfigLoader(appCfg.FeedsDir).Run(appCfg.FeedURLs)
	if err != nil {
		slog.Error("Failed to load feed configurations", "error", err)
		return 1
	}
	if len(feedConfigs) == 0 {
		slog.Error("No feeds configured", "feeds_dir", appCfg.FeedsDir)
		return 1
	}
	slog.Info("Feed configurations loaded", "count", len(feedConfigs))

	client, err := notion.NewClient(appCfg.NotionAPIKey,
		notion.WithBaseURL(appCfg.NotionAPIURL),
		notion.WithTimeout(appCfg.NotionTimeout),
		notion.WithWriteLimiter(tasks.NewThrottle(appCfg.RequestDelay)),
		notion.WithUserAgent(appCfg.UserAgent),
	)
	if err != nil {
		slog.Error("Failed to create Notion client", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	options := tasks.SyncOptions{
		MaxItems:     appCfg.MaxItems,
		AllowUpdates: appCfg.AllowUpdates,
		FetchContent: appCfg.FetchFullContent,
		FeedTimeout:  appCfg.FeedTimeout,
	}

	pageOptions := database.PageOptions{
		IncludeSummary: appCfg.IncludeSummary,
		WriteBody:      appCfg.WritePageBody,
	}
	if tasks.FetchesContent(options, feedConfigs) {
		pageOptions.ContentProperty = appCfg.ContentProperty
	}

	pages := database.NewNotionPageRepository(client, appCfg.NotionDatabaseID, pageOptions)
	if err := pages.LoadSchema(ctx); err != nil {
		if errors.Is(err, database.ErrMissingRequiredProperty) {
			slog.Warn("Database schema lacks a required property, writes will likely be rejected",
				"database", appCfg.NotionDatabaseID, "error", err)
		} else {
			slog.Warn("Unable to retrieve database schema, writing all properties",
				"database", appCfg.NotionDatabaseID, "error", err)
		}
	}

	converter := feed.NewMarkdownConverter()
	fetcher := feed.NewFetcher(nil, appCfg.UserAgent)

	runner := tasks.NewRunner(
		options,
		fetcher,
		feed.NewParser(),
		feed.NewFilterer(),
		feed.NewNormalizer(converter),
		feed.NewArticleLoader(fetcher, feed.NewContentExtractor(), converter, appCfg.ArticleTimeout),
		pages,
		tasks.NewThrottle(appCfg.RequestDelay),
	)

	start := time.Now()
	summary := runner.Run(ctx, feedConfigs)

	if err := summary.Report(os.Stdout); err != nil {
		slog.Error("Failed to write summary", "error", err)
	}

	slog.Info("Run completed",
		"feeds", len(summary.Feeds),
		"upserted", summary.Total(),
		"failed", summary.Failed(),
		"duration", time.Since(start))

	if errors.Is(ctx.Err(), context.Canceled) {
		slog.Warn("Run interrupted by signal")
	}

	return 0
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
