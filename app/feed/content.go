package feed

import (
	"context"
	"log/slog"
	"time"
)

// ArticleLoader fetches the linked article of an item and turns its main
// content into Markdown. Failures never escape: they are logged and
// reported as unavailable content.
type ArticleLoader struct {
	fetcher   *Fetcher
	extractor *ContentExtractor
	converter *MarkdownConverter
	timeout   time.Duration
}

func NewArticleLoader(fetcher *Fetcher, extractor *ContentExtractor, converter *MarkdownConverter, timeout time.Duration) *ArticleLoader {
	return &ArticleLoader{
		fetcher:   fetcher,
		extractor: extractor,
		converter: converter,
		timeout:   timeout,
	}
}

func (l *ArticleLoader) Run(ctx context.Context, url string) Content {
	start := time.Now()

	data, err := l.fetcher.FetchHTML(ctx, url, l.timeout)
	if err != nil {
		slog.Warn("Unable to fetch article content", "url", url, "error", err)
		return UnavailableContent("fetch failed: " + err.Error())
	}

	articleHTML, err := l.extractor.Run(data, url)
	if err != nil {
		slog.Warn("Readability extraction failed", "url", url, "error", err)
		return UnavailableContent("extraction failed: " + err.Error())
	}

	markdown, err := l.converter.Run(articleHTML)
	if err != nil {
		slog.Warn("Markdown conversion failed", "url", url, "error", err)
		return UnavailableContent("conversion failed: " + err.Error())
	}
	if markdown == "" {
		return UnavailableContent("extracted article is empty")
	}

	slog.Debug("Article content extracted",
		"url", url,
		"markdown_length", len(markdown),
		"duration", time.Since(start))

	return AvailableContent(markdown)
}
