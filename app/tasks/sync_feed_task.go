package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/feed2notion/app/database"
	"github.com/lysyi3m/feed2notion/app/feed"
)

// ContentLoader resolves the full article behind an item URL.
type ContentLoader interface {
	Run(ctx context.Context, url string) feed.Content
}

type SyncOptions struct {
	MaxItems     int
	AllowUpdates bool
	FetchContent bool
	FeedTimeout  time.Duration
}

// Seen maps URLs written during the current run to their page IDs. Pages
// created a moment ago may not be visible to queries yet.
type Seen map[string]string

type FeedSummary struct {
	Feed     string
	URL      string
	Source   string
	New      int
	Updated  int
	Skipped  int
	Failed   int
	Disabled bool
	Duration time.Duration
	Err      error
}

type outcome int

const (
	outcomeNew outcome = iota
	outcomeUpdated
	outcomeSkipped
	outcomeFailed
)

type SyncFeedTask struct {
	Task
	FeedConfig *feed.Config
	Summary    FeedSummary

	options    SyncOptions
	fetcher    *feed.Fetcher
	parser     *feed.Parser
	filterer   *feed.Filterer
	normalizer *feed.Normalizer
	articles   ContentLoader
	pages      database.PageRepository
	limiter    Limiter
	seen       Seen
}

var _ TaskInterface = (*SyncFeedTask)(nil)

func NewSyncFeedTask(feedConfig *feed.Config, options SyncOptions, fetcher *feed.Fetcher, parser *feed.Parser, filterer *feed.Filterer, normalizer *feed.Normalizer, articles ContentLoader, pages database.PageRepository, limiter Limiter, seen Seen) *SyncFeedTask {
	return &SyncFeedTask{
		Task:       NewTask(TaskTypeSyncFeed, feedConfig.Name),
		FeedConfig: feedConfig,
		Summary:    FeedSummary{Feed: feedConfig.Name, URL: feedConfig.URL},
		options:    options,
		fetcher:    fetcher,
		parser:     parser,
		filterer:   filterer,
		normalizer: normalizer,
		articles:   articles,
		pages:      pages,
		limiter:    limiter,
		seen:       seen,
	}
}

// Execute upserts the feed's items. Item failures are counted in Summary;
// only feed-level failures are returned.
func (t *SyncFeedTask) Execute(ctx context.Context) error {
	t.Start()
	defer func() { t.Summary.Duration = t.GetDuration() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.FeedConfig.Settings.Enabled {
		slog.Debug("Feed disabled, skipping", "feed", t.FeedName)
		t.Summary.Disabled = true
		return nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	data, err := t.fetcher.Fetch(ctx, t.FeedConfig.URL, t.options.FeedTimeout)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, items, err := t.parser.Run(data)
	if err != nil {
		return err
	}
	if metadata.FeedURL == "" {
		metadata.FeedURL = t.FeedConfig.URL
	}

	source := feed.SourceName(metadata, t.FeedConfig.Source)
	t.Summary.Source = source

	maxItems := t.options.MaxItems
	if t.FeedConfig.Settings.MaxItems > 0 {
		maxItems = t.FeedConfig.Settings.MaxItems
	}
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	items = t.filterer.Run(items, t.FeedConfig)

	fetchContent := contentEnabled(t.options, t.FeedConfig)
	withTags := t.pages.SupportsTags()

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		if item.IsFiltered {
			slog.Debug("Item filtered", "feed", t.FeedName, "url", item.Link, "reason", item.FilterReason)
			t.Summary.Skipped++
			continue
		}

		record, ok := t.normalizer.Run(item, source, withTags)
		if !ok {
			slog.Debug("Item has no URL, skipping", "feed", t.FeedName, "title", item.Title)
			t.Summary.Skipped++
			continue
		}

		switch t.syncRecord(ctx, record, fetchContent) {
		case outcomeNew:
			t.Summary.New++
		case outcomeUpdated:
			t.Summary.Updated++
		case outcomeSkipped:
			t.Summary.Skipped++
		case outcomeFailed:
			t.Summary.Failed++
		}
	}

	slog.Info("Task completed",
		"task_id", t.ID,
		"type", t.Type,
		"feed", t.FeedName,
		"source", source,
		"duration", t.GetDuration(),
		"total", len(items),
		"new", t.Summary.New,
		"updated", t.Summary.Updated,
		"skipped", t.Summary.Skipped,
		"failed", t.Summary.Failed)

	return nil
}

// contentEnabled applies the feed's extract_content override to the global
// switch.
func contentEnabled(options SyncOptions, feedConfig *feed.Config) bool {
	if feedConfig.Settings.ExtractContent != nil {
		return *feedConfig.Settings.ExtractContent
	}
	return options.FetchContent
}

// FetchesContent reports whether any enabled feed fetches article content.
func FetchesContent(options SyncOptions, configs []*feed.Config) bool {
	for _, feedConfig := range configs {
		if feedConfig.Settings.Enabled && contentEnabled(options, feedConfig) {
			return true
		}
	}
	return false
}

// syncRecord looks the record up, then creates, updates or skips it.
// Content is only fetched for records that will be written.
func (t *SyncFeedTask) syncRecord(ctx context.Context, record feed.Record, fetchContent bool) outcome {
	pageID, found := t.seen[record.URL]
	if !found {
		page, err := t.pages.FindByURL(ctx, record.URL)
		if err != nil {
			slog.Error("Lookup failed", "task_id", t.ID, "feed", t.FeedName, "url", record.URL, "error", err)
			return outcomeFailed
		}
		if page != nil {
			pageID, found = page.ID, true
		}
	}

	action := Decide(found, t.options.AllowUpdates)
	if action == ActionSkip {
		slog.Debug("Page exists, updates disabled", "feed", t.FeedName, "url", record.URL)
		return outcomeSkipped
	}

	if fetchContent {
		record.Content = t.articles.Run(ctx, record.URL)
	}

	switch action {
	case ActionCreate:
		page, err := t.pages.CreatePage(ctx, record)
		if err != nil {
			slog.Error("Failed to create page", "task_id", t.ID, "feed", t.FeedName, "url", record.URL, "error", err)
			return outcomeFailed
		}
		t.seen[record.URL] = page.ID
		slog.Debug("Page created", "feed", t.FeedName, "url", record.URL, "page", page.ID)
		return outcomeNew

	default:
		if err := t.pages.UpdatePage(ctx, pageID, record); err != nil {
			slog.Error("Failed to update page", "task_id", t.ID, "feed", t.FeedName, "url", record.URL, "page", pageID, "error", err)
			return outcomeFailed
		}
		t.seen[record.URL] = pageID
		slog.Debug("Page updated", "feed", t.FeedName, "url", record.URL, "page", pageID)
		return outcomeUpdated
	}
}
