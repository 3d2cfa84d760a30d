package database

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/feed2notion/app/feed"
	"github.com/lysyi3m/feed2notion/app/notion"
	"github.com/lysyi3m/feed2notion/app/notion/notiontest"
)

const testDatabaseID = "9c1f6a3e-2b4d-4c8e-9f7a-1d2e3f4a5b6c"

func newTestRepository(t *testing.T, server *notiontest.Server, writeBody bool) *NotionPageRepository {
	t.Helper()

	client, err := notion.NewClient(server.Token,
		notion.WithBaseURL(server.URL),
		notion.WithRetryInterval(time.Millisecond))
	require.NoError(t, err)

	return NewNotionPageRepository(client, testDatabaseID, PageOptions{
		ContentProperty: "Content",
		IncludeSummary:  true,
		WriteBody:       writeBody,
	})
}

func testRecord(url string) feed.Record {
	published := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return feed.Record{
		Title:     "Hello",
		URL:       url,
		Published: &published,
		Source:    "Example Blog",
		Summary:   "A short summary.",
		Author:    "Jane",
		Tags:      []string{"Tech", "tech", "News"},
		Content:   feed.UnavailableContent("not fetched"),
		Body:      "# Hello\n\nFeed text.",
	}
}

func TestNotionPageRepository_CreateAndFind(t *testing.T) {
	server := notiontest.NewServer(nil)
	defer server.Close()

	repo := newTestRepository(t, server, true)
	ctx := context.Background()
	require.NoError(t, repo.LoadSchema(ctx))

	found, err := repo.FindByURL(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Nil(t, found)

	page, err := repo.CreatePage(ctx, testRecord("https://example.com/a"))
	require.NoError(t, err)

	found, err = repo.FindByURL(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, page.ID, found.ID)

	stored := server.Pages()[0]
	assert.Equal(t, "Hello", stored.Text("Title"))
	assert.Equal(t, "Example Blog", stored.Select("Source"))
	assert.Equal(t, "A short summary.", stored.Text("Summary"))
	assert.Equal(t, "Jane", stored.Text("Author"))
	assert.Equal(t, "2024-05-01T08:00:00Z", stored.Date("Published"))
	assert.Equal(t, []string{"Tech", "tech", "News"}, stored.MultiSelect("Tags"))
	assert.False(t, stored.Has("Content"), "unavailable content must not be written")

	blocks := server.Blocks(page.ID)
	require.Len(t, blocks, 2)
	assert.Equal(t, "heading_1", blocks[0].Type)
}

func TestNotionPageRepository_CreateWithContent(t *testing.T) {
	server := notiontest.NewServer(nil)
	defer server.Close()

	repo := newTestRepository(t, server, true)
	ctx := context.Background()
	require.NoError(t, repo.LoadSchema(ctx))

	record := testRecord("https://example.com/a")
	record.Content = feed.AvailableContent("Full article text.")

	page, err := repo.CreatePage(ctx, record)
	require.NoError(t, err)

	assert.Equal(t, "Full article text.", server.Pages()[0].Text("Content"))

	blocks := server.Blocks(page.ID)
	require.Len(t, blocks, 1)
	assert.Equal(t, "paragraph", blocks[0].Type)
}

func TestNotionPageRepository_LongBodyIsAppended(t *testing.T) {
	server := notiontest.NewServer(nil)
	defer server.Close()

	repo := newTestRepository(t, server, true)

	var paragraphs []string
	for i := range 230 {
		paragraphs = append(paragraphs, fmt.Sprintf("Paragraph %d.", i))
	}
	record := testRecord("https://example.com/long")
	record.Body = strings.Join(paragraphs, "\n\n")

	page, err := repo.CreatePage(context.Background(), record)
	require.NoError(t, err)

	assert.Len(t, server.Blocks(page.ID), 230)
	// 100 with the page, then 50 + 50 + 30.
	assert.Equal(t, 3, server.Calls(notiontest.OpAppendBlocks))
}

func TestNotionPageRepository_SkipsMissingProperties(t *testing.T) {
	server := notiontest.NewServer(map[string]string{
		"Title":  "title",
		"URL":    "url",
		"Source": "rich_text",
	})
	defer server.Close()

	repo := newTestRepository(t, server, false)
	ctx := context.Background()
	require.NoError(t, repo.LoadSchema(ctx))
	assert.False(t, repo.SupportsTags())

	_, err := repo.CreatePage(ctx, testRecord("https://example.com/a"))
	require.NoError(t, err)
	assert.Equal(t, 1, server.Calls(notiontest.OpCreate))

	stored := server.Pages()[0]
	assert.True(t, stored.Has("Title"))
	assert.True(t, stored.Has("URL"))
	assert.False(t, stored.Has("Source"), "mistyped property must be skipped")
	assert.False(t, stored.Has("Tags"))
}

func TestNotionPageRepository_LoadSchemaRequiresURL(t *testing.T) {
	server := notiontest.NewServer(map[string]string{"Title": "title", "URL": "rich_text"})
	defer server.Close()

	err := newTestRepository(t, server, false).LoadSchema(context.Background())
	assert.ErrorIs(t, err, ErrMissingRequiredProperty)
	assert.ErrorContains(t, err, "URL")
}

func TestNotionPageRepository_LoadSchemaUnavailable(t *testing.T) {
	server := notiontest.NewServer(nil)
	defer server.Close()

	server.Fail(notiontest.OpRetrieveDatabase, http.StatusForbidden, "restricted_resource", "no access")

	err := newTestRepository(t, server, false).LoadSchema(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingRequiredProperty)
}

func TestNotionPageRepository_SummaryCanBeLeftOut(t *testing.T) {
	server := notiontest.NewServer(nil)
	defer server.Close()

	client, err := notion.NewClient(server.Token, notion.WithBaseURL(server.URL))
	require.NoError(t, err)

	repo := NewNotionPageRepository(client, testDatabaseID, PageOptions{ContentProperty: "Content"})
	ctx := context.Background()
	require.NoError(t, repo.LoadSchema(ctx))

	_, err = repo.CreatePage(ctx, testRecord("https://example.com/a"))
	require.NoError(t, err)

	stored := server.Pages()[0]
	assert.False(t, stored.Has("Summary"))
	assert.True(t, stored.Has("Source"))
	assert.True(t, stored.Has("Author"))
	assert.Empty(t, server.Blocks(stored.ID))
}

func TestNotionPageRepository_FallsBackWithoutSchema(t *testing.T) {
	server := notiontest.NewServer(map[string]string{
		"Title":   "title",
		"URL":     "url",
		"Summary": "rich_text",
	})
	defer server.Close()

	repo := newTestRepository(t, server, false)
	ctx := context.Background()
	server.Fail(notiontest.OpRetrieveDatabase, http.StatusForbidden, "restricted_resource", "no access")
	require.Error(t, repo.LoadSchema(ctx))

	_, err := repo.CreatePage(ctx, testRecord("https://example.com/a"))
	require.NoError(t, err)

	stored := server.Pages()[0]
	assert.True(t, stored.Has("Summary"))
	assert.False(t, stored.Has("Author"))

	// Rejected properties stay disabled: the second write succeeds at once.
	creates := server.Calls(notiontest.OpCreate)
	_, err = repo.CreatePage(ctx, testRecord("https://example.com/b"))
	require.NoError(t, err)
	assert.Equal(t, creates+1, server.Calls(notiontest.OpCreate))
}

func TestNotionPageRepository_UnnamedValidationErrorKeepsRequired(t *testing.T) {
	server := notiontest.NewServer(nil)
	defer server.Close()

	repo := newTestRepository(t, server, false)
	ctx := context.Background()
	server.Fail(notiontest.OpCreate, http.StatusBadRequest, "validation_error", "body failed validation")

	_, err := repo.CreatePage(ctx, testRecord("https://example.com/a"))
	require.NoError(t, err)

	stored := server.Pages()[0]
	assert.Len(t, stored.Properties, 2)
	assert.True(t, stored.Has("Title"))
	assert.True(t, stored.Has("URL"))
}

func TestNotionPageRepository_RejectedRecordKeepsSchema(t *testing.T) {
	server := notiontest.NewServer(nil)
	defer server.Close()

	repo := newTestRepository(t, server, false)
	ctx := context.Background()
	require.NoError(t, repo.LoadSchema(ctx))

	existing := server.AddPage("https://example.com/a", "Old title")
	server.Fail(notiontest.OpUpdate, http.StatusBadRequest, "validation_error",
		"body.properties.URL.url.length should be <= `2000`, instead was `2412`.")

	err := repo.UpdatePage(ctx, existing.ID, testRecord("https://example.com/a"))
	require.Error(t, err)
	assert.True(t, notion.IsValidationError(err))
	assert.Equal(t, 1, server.Calls(notiontest.OpUpdate))

	server.Fail(notiontest.OpCreate, http.StatusBadRequest, "validation_error",
		"body.properties.Summary.rich_text[0].text.content.length should be <= `2000`.")
	_, err = repo.CreatePage(ctx, testRecord("https://example.com/b"))
	require.Error(t, err)

	_, err = repo.CreatePage(ctx, testRecord("https://example.com/c"))
	require.NoError(t, err)

	stored := server.PagesByURL("https://example.com/c")
	require.Len(t, stored, 1)
	for _, name := range []string{"Published", "Source", "Summary", "Author", "Tags"} {
		assert.True(t, stored[0].Has(name), "expected %s to be written", name)
	}
}

func TestNotionPageRepository_Update(t *testing.T) {
	server := notiontest.NewServer(nil)
	defer server.Close()

	repo := newTestRepository(t, server, true)
	ctx := context.Background()
	require.NoError(t, repo.LoadSchema(ctx))

	existing := server.AddPage("https://example.com/a", "Old title")
	server.AddBlock(existing.ID, notion.MarkdownToBlocks("Old body.")[0])
	server.AddBlock(existing.ID, notion.Block{Type: "child_page"})

	record := testRecord("https://example.com/a")
	record.Title = "New title"
	require.NoError(t, repo.UpdatePage(ctx, existing.ID, record))

	pages := server.PagesByURL("https://example.com/a")
	require.Len(t, pages, 1)
	assert.Equal(t, "New title", pages[0].Text("Title"))
	assert.Equal(t, "Example Blog", pages[0].Select("Source"))

	blocks := server.Blocks(existing.ID)
	require.Len(t, blocks, 3)
	assert.Equal(t, "child_page", blocks[0].Type)
	assert.Equal(t, "heading_1", blocks[1].Type)
	assert.Equal(t, "paragraph", blocks[2].Type)
}

func TestNotionPageRepository_UpdateBodyFailureIsNotFatal(t *testing.T) {
	server := notiontest.NewServer(nil)
	defer server.Close()

	repo := newTestRepository(t, server, true)
	existing := server.AddPage("https://example.com/a", "Old title")
	server.Fail(notiontest.OpListBlocks, http.StatusForbidden, "restricted_resource", "no access")

	err := repo.UpdatePage(context.Background(), existing.ID, testRecord("https://example.com/a"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", server.PagesByURL("https://example.com/a")[0].Text("Title"))
}

func TestNotionPageRepository_UpdateMissingPage(t *testing.T) {
	server := notiontest.NewServer(nil)
	defer server.Close()

	err := newTestRepository(t, server, false).UpdatePage(context.Background(), "missing", testRecord("https://example.com/a"))
	require.Error(t, err)
	assert.True(t, notion.IsNotFound(err))
}

func TestNotionPageRepository_LookupError(t *testing.T) {
	server := notiontest.NewServer(nil)
	defer server.Close()

	server.Fail(notiontest.OpQuery, http.StatusUnauthorized, "unauthorized", "API token is invalid.")

	_, err := newTestRepository(t, server, false).FindByURL(context.Background(), "https://example.com/a")
	assert.ErrorContains(t, err, "failed to look up page by URL")
}
