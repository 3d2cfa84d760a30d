package tasks

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/feed2notion/app/database"
	"github.com/lysyi3m/feed2notion/app/feed"
	"github.com/lysyi3m/feed2notion/app/notion"
	"github.com/lysyi3m/feed2notion/app/notion/notiontest"
)

const testDatabaseID = "9c1f6a3e-2b4d-4c8e-9f7a-1d2e3f4a5b6c"

type endToEnd struct {
	notion *notiontest.Server
	pages  *database.NotionPageRepository
}

func newEndToEnd(t *testing.T) *endToEnd {
	t.Helper()

	server := notiontest.NewServer(nil)
	t.Cleanup(server.Close)

	client, err := notion.NewClient(server.Token,
		notion.WithBaseURL(server.URL),
		notion.WithRetryInterval(time.Millisecond),
		notion.WithWriteLimiter(NewThrottle(0)))
	require.NoError(t, err)

	pages := database.NewNotionPageRepository(client, testDatabaseID, database.PageOptions{
		ContentProperty: "Content",
		IncludeSummary:  true,
		WriteBody:       true,
	})
	require.NoError(t, pages.LoadSchema(context.Background()))

	return &endToEnd{notion: server, pages: pages}
}

func (e *endToEnd) runner(options SyncOptions, articleTimeout time.Duration) *Runner {
	if options.FeedTimeout == 0 {
		options.FeedTimeout = 5 * time.Second
	}
	converter := feed.NewMarkdownConverter()
	fetcher := feed.NewFetcher(nil, "feed2notion-test")

	return NewRunner(options,
		fetcher,
		feed.NewParser(),
		feed.NewFilterer(),
		feed.NewNormalizer(converter),
		feed.NewArticleLoader(fetcher, feed.NewContentExtractor(), converter, articleTimeout),
		e.pages,
		NewThrottle(0))
}

func feedConfigs(urls ...string) []*feed.Config {
	configs := make([]*feed.Config, 0, len(urls))
	for _, url := range urls {
		configs = append(configs, &feed.Config{Name: url, URL: url, Settings: feed.ConfigSettings{Enabled: true}})
	}
	return configs
}

func TestRunner_TwoItemFeed(t *testing.T) {
	e := newEndToEnd(t)
	server := serveFeed(t, rssFeed("Example Blog",
		testItem{title: "A", link: "https://example.com/a"},
		testItem{title: "B", link: "https://example.com/b"},
	))
	configs := feedConfigs(server.URL)

	first := e.runner(SyncOptions{AllowUpdates: true}, time.Second).Run(context.Background(), configs)
	require.Len(t, first.Feeds, 1)
	assert.Equal(t, 2, first.Feeds[0].New)
	assert.Equal(t, 0, first.Feeds[0].Updated)
	assert.Equal(t, 0, first.Feeds[0].Skipped)
	assert.Equal(t, 2, first.Total())

	var out bytes.Buffer
	require.NoError(t, first.Report(&out))
	assert.Equal(t, "[Example Blog] new=2 updated=0 skipped=0\n[done] pages upserted: 2\n", out.String())

	creates := e.notion.Calls(notiontest.OpCreate)

	second := e.runner(SyncOptions{AllowUpdates: true}, time.Second).Run(context.Background(), configs)
	assert.Equal(t, 0, second.Feeds[0].New)
	assert.Equal(t, 2, second.Feeds[0].Updated)
	assert.Equal(t, creates, e.notion.Calls(notiontest.OpCreate), "second run must not create pages")

	third := e.runner(SyncOptions{AllowUpdates: false}, time.Second).Run(context.Background(), configs)
	assert.Equal(t, 2, third.Feeds[0].Skipped)
	assert.Equal(t, 0, third.Total())

	assert.Len(t, e.notion.Pages(), 2)
	assert.Len(t, e.notion.PagesByURL("https://example.com/a"), 1)
	assert.Len(t, e.notion.PagesByURL("https://example.com/b"), 1)
}

func TestRunner_UpdatesDisabledLeavesPagesUntouched(t *testing.T) {
	e := newEndToEnd(t)
	e.notion.AddPage("https://example.com/a", "Stored title")

	server := serveFeed(t, rssFeed("Blog", testItem{title: "Fresh title", link: "https://example.com/a"}))

	summary := e.runner(SyncOptions{AllowUpdates: false}, time.Second).Run(context.Background(), feedConfigs(server.URL))

	assert.Equal(t, 1, summary.Feeds[0].Skipped)
	assert.Equal(t, 0, e.notion.Calls(notiontest.OpCreate))
	assert.Equal(t, 0, e.notion.Calls(notiontest.OpUpdate))
	assert.Equal(t, "Stored title", e.notion.PagesByURL("https://example.com/a")[0].Text("Title"))
}

func TestRunner_SharedURLAcrossFeedsWithLaggingIndex(t *testing.T) {
	e := newEndToEnd(t)
	e.notion.SetStaleIndex(true)

	first := serveFeed(t, rssFeed("First", testItem{title: "A", link: "https://example.com/shared"}))
	second := serveFeed(t, rssFeed("Second", testItem{title: "A again", link: "https://example.com/shared"}))

	summary := e.runner(SyncOptions{AllowUpdates: true}, time.Second).Run(context.Background(), feedConfigs(first.URL, second.URL))

	require.Len(t, summary.Feeds, 2)
	assert.Equal(t, 1, summary.Feeds[0].New)
	assert.Equal(t, 1, summary.Feeds[1].Updated)
	assert.Len(t, e.notion.PagesByURL("https://example.com/shared"), 1)
}

func TestRunner_ArticleTimeoutWritesPageWithoutContent(t *testing.T) {
	e := newEndToEnd(t)

	release := make(chan struct{})
	article := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer article.Close()
	defer close(release)

	server := serveFeed(t, rssFeed("Blog", testItem{title: "Slow", link: article.URL + "/post"}))

	summary := e.runner(SyncOptions{AllowUpdates: true, FetchContent: true}, 50*time.Millisecond).
		Run(context.Background(), feedConfigs(server.URL))

	assert.Equal(t, 1, summary.Feeds[0].New)
	assert.Equal(t, 0, summary.Failed())

	pages := e.notion.PagesByURL(article.URL + "/post")
	require.Len(t, pages, 1)
	assert.False(t, pages[0].Has("Content"))
	assert.Equal(t, "Slow", pages[0].Text("Title"))
}

func TestRunner_ArticleContentIsWritten(t *testing.T) {
	e := newEndToEnd(t)

	article := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Post</title></head><body>
			<nav>Home | About</nav>
			<article><h1>Post</h1>
			<p>This is the main content of the article. It has enough text to be picked up as the main body of the page by the extractor.</p>
			<p>A second paragraph adds more words so that the readability scoring is confident about this block of content.</p>
			<p>A third paragraph, with commas, clauses, and plenty of ordinary prose, pushes the article well past the length readability expects from real content.</p>
			<p>Finally, a fourth paragraph closes the article, so the text extracted from the page is long enough to be written to the database.</p>
			</article></body></html>`))
	}))
	defer article.Close()

	server := serveFeed(t, rssFeed("Blog", testItem{title: "Post", link: article.URL + "/post"}))

	summary := e.runner(SyncOptions{AllowUpdates: true, FetchContent: true}, 5*time.Second).
		Run(context.Background(), feedConfigs(server.URL))
	require.Equal(t, 1, summary.Feeds[0].New)

	page := e.notion.PagesByURL(article.URL + "/post")[0]
	assert.Contains(t, page.Text("Content"), "main content of the article")
	assert.NotEmpty(t, e.notion.Blocks(page.ID))
}

func TestRunner_FeedFailureDoesNotStopRun(t *testing.T) {
	e := newEndToEnd(t)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()
	healthy := serveFeed(t, rssFeed("Healthy", testItem{title: "A", link: "https://example.com/a"}))

	summary := e.runner(SyncOptions{AllowUpdates: true}, time.Second).Run(context.Background(), feedConfigs(broken.URL, healthy.URL))

	require.Len(t, summary.Feeds, 2)
	assert.Error(t, summary.Feeds[0].Err)
	assert.Equal(t, 1, summary.Feeds[1].New)

	var out bytes.Buffer
	require.NoError(t, summary.Report(&out))
	assert.Contains(t, out.String(), "[error] "+broken.URL+": failed to fetch feed")
	assert.Contains(t, out.String(), "[Healthy] new=1 updated=0 skipped=0\n")
	assert.Contains(t, out.String(), "[done] pages upserted: 1\n")
}

func TestRunner_StopsWhenCancelled(t *testing.T) {
	e := newEndToEnd(t)
	server := serveFeed(t, rssFeed("Blog", testItem{title: "A", link: "https://example.com/a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := e.runner(SyncOptions{AllowUpdates: true}, time.Second).Run(ctx, feedConfigs(server.URL, server.URL))

	require.Len(t, summary.Feeds, 1)
	assert.ErrorIs(t, summary.Feeds[0].Err, context.Canceled)
	assert.Empty(t, e.notion.Pages())
}

func TestRunSummary_ReportSkipsDisabledFeeds(t *testing.T) {
	summary := RunSummary{Feeds: []FeedSummary{
		{Feed: "off", Disabled: true},
		{Feed: "news", New: 1, Updated: 2, Skipped: 3},
	}}

	var out bytes.Buffer
	require.NoError(t, summary.Report(&out))
	assert.Equal(t, "[news] new=1 updated=2 skipped=3\n[done] pages upserted: 3\n", out.String())
}
