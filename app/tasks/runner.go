package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/lysyi3m/feed2notion/app/database"
	"github.com/lysyi3m/feed2notion/app/feed"
)

// Runner syncs feeds one after another, sharing the run's seen URLs.
type Runner struct {
	options     SyncOptions
	fetcher     *feed.Fetcher
	parser      *feed.Parser
	filterer    *feed.Filterer
	normalizer  *feed.Normalizer
	articles    ContentLoader
	pages       database.PageRepository
	feedLimiter Limiter
}

func NewRunner(options SyncOptions, fetcher *feed.Fetcher, parser *feed.Parser, filterer *feed.Filterer, normalizer *feed.Normalizer, articles ContentLoader, pages database.PageRepository, feedLimiter Limiter) *Runner {
	return &Runner{
		options:     options,
		fetcher:     fetcher,
		parser:      parser,
		filterer:    filterer,
		normalizer:  normalizer,
		articles:    articles,
		pages:       pages,
		feedLimiter: feedLimiter,
	}
}

type RunSummary struct {
	Feeds []FeedSummary
}

// Total is the number of pages created or updated.
func (s RunSummary) Total() int {
	total := 0
	for _, summary := range s.Feeds {
		total += summary.New + summary.Updated
	}
	return total
}

func (s RunSummary) Failed() int {
	failed := 0
	for _, summary := range s.Feeds {
		failed += summary.Failed
	}
	return failed
}

// Report writes one line per feed followed by the total.
func (s RunSummary) Report(w io.Writer) error {
	for _, summary := range s.Feeds {
		if summary.Disabled {
			continue
		}
		if summary.Err != nil {
			if _, err := fmt.Fprintf(w, "[error] %s: %v\n", summary.URL, summary.Err); err != nil {
				return err
			}
			continue
		}

		label := summary.Source
		if label == "" {
			label = summary.Feed
		}
		if _, err := fmt.Fprintf(w, "[%s] new=%d updated=%d skipped=%d\n",
			label, summary.New, summary.Updated, summary.Skipped); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "[done] pages upserted: %d\n", s.Total())
	return err
}

func (r *Runner) Run(ctx context.Context, configs []*feed.Config) RunSummary {
	seen := make(Seen)
	summary := RunSummary{Feeds: make([]FeedSummary, 0, len(configs))}

	for _, feedConfig := range configs {
		task := NewSyncFeedTask(feedConfig, r.options, r.fetcher, r.parser, r.filterer, r.normalizer, r.articles, r.pages, r.feedLimiter, seen)

		task.Summary.Err = r.execute(ctx, task)
		summary.Feeds = append(summary.Feeds, task.Summary)

		if ctx.Err() != nil {
			slog.Warn("Run interrupted", "remaining_feeds", len(configs)-len(summary.Feeds))
			break
		}
	}

	return summary
}

func (r *Runner) execute(ctx context.Context, task TaskInterface) error {
	slog.Debug("Task started", "task_id", task.GetID(), "type", task.GetType(), "feed", task.GetFeedName())

	err := task.Execute(ctx)
	if err != nil {
		slog.Error("Task failed",
			"task_id", task.GetID(),
			"type", task.GetType(),
			"feed", task.GetFeedName(),
			"duration", task.GetDuration(),
			"error", err)
	}
	return err
}
