package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/feed2notion/app/feed"
	"github.com/lysyi3m/feed2notion/app/notion"
)

const (
	maxCreateChildren = 100
	appendChunkSize   = 50
)

// ErrMissingRequiredProperty is returned by LoadSchema when the database
// has no Title or URL property of the expected type.
var ErrMissingRequiredProperty = errors.New("database is missing a required property")

// PageOptions selects what is written besides Title and URL.
type PageOptions struct {
	// ContentProperty names the rich_text property receiving article
	// content. Empty disables it.
	ContentProperty string
	IncludeSummary  bool
	WriteBody       bool
}

// NotionPageRepository stores records as pages of a Notion database.
type NotionPageRepository struct {
	client     *notion.Client
	databaseID string
	schema     *Schema
	builder    *PropertyBuilder
	writeBody  bool
}

func NewNotionPageRepository(client *notion.Client, databaseID string, options PageOptions) *NotionPageRepository {
	schema := NewSchema()

	return &NotionPageRepository{
		client:     client,
		databaseID: databaseID,
		schema:     schema,
		builder:    NewPropertyBuilder(schema, options),
		writeBody:  options.WriteBody,
	}
}

// LoadSchema retrieves the database properties so that only existing ones
// are written. Without it every property is attempted.
func (r *NotionPageRepository) LoadSchema(ctx context.Context) error {
	database, err := r.client.RetrieveDatabase(ctx, r.databaseID)
	if err != nil {
		return err
	}

	r.schema.Load(database)

	for _, required := range []struct{ name, kind string }{{PropertyTitle, "title"}, {PropertyURL, "url"}} {
		if property, ok := database.Properties[required.name]; !ok || property.Type != required.kind {
			return fmt.Errorf("%w: no %s property of type %s", ErrMissingRequiredProperty, required.name, required.kind)
		}
	}

	slog.Debug("Database schema loaded", "database", r.databaseID, "properties", len(database.Properties))
	return nil
}

func (r *NotionPageRepository) SupportsTags() bool {
	return r.builder.SupportsTags()
}

func (r *NotionPageRepository) FindByURL(ctx context.Context, url string) (*Page, error) {
	resp, err := r.client.QueryDatabase(ctx, r.databaseID, notion.QueryRequest{
		Filter: &notion.Filter{
			Property: PropertyURL,
			URL:      &notion.TextCondition{Equals: url},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up page by URL: %w", err)
	}

	if len(resp.Results) == 0 {
		return nil, nil
	}

	// Only the first match is used; further duplicates are left alone.
	return &Page{ID: resp.Results[0].ID, URL: url}, nil
}

func (r *NotionPageRepository) CreatePage(ctx context.Context, record feed.Record) (*Page, error) {
	blocks := r.bodyBlocks(record)
	withBody := len(blocks) > 0

	for {
		req := notion.CreatePageRequest{
			Parent:     notion.Parent{DatabaseID: r.databaseID},
			Properties: r.builder.Build(record),
		}
		if withBody {
			req.Children = blocks[:min(len(blocks), maxCreateChildren)]
		}

		page, err := r.client.CreatePage(ctx, req)
		if err == nil {
			if withBody && len(blocks) > maxCreateChildren {
				r.appendBlocks(ctx, page.ID, blocks[maxCreateChildren:])
			}
			return &Page{ID: page.ID, URL: record.URL}, nil
		}

		if !notion.IsValidationError(err) {
			return nil, err
		}

		if r.disableMentioned(err) {
			continue
		}
		if withBody {
			slog.Warn("Page body rejected, creating page without it", "url", record.URL, "error", err)
			withBody = false
			continue
		}
		if r.disableOptional(err) {
			continue
		}
		return nil, err
	}
}

func (r *NotionPageRepository) UpdatePage(ctx context.Context, pageID string, record feed.Record) error {
	for {
		_, err := r.client.UpdatePage(ctx, pageID, notion.UpdatePageRequest{
			Properties: r.builder.Build(record),
		})
		if err == nil {
			break
		}
		if notion.IsValidationError(err) && (r.disableMentioned(err) || r.disableOptional(err)) {
			continue
		}
		return err
	}

	if blocks := r.bodyBlocks(record); len(blocks) > 0 {
		if err := r.replaceBody(ctx, pageID, blocks); err != nil {
			slog.Warn("Failed to replace page body", "page", pageID, "url", record.URL, "error", err)
		}
	}

	return nil
}

// disableMentioned disables the optional property a validation error names.
// With a loaded schema the rejection is about the record's values, so
// nothing is disabled.
func (r *NotionPageRepository) disableMentioned(err error) bool {
	if r.schema.Known() {
		return false
	}
	for _, name := range r.builder.OptionalNames() {
		if !r.schema.Disabled(name) && notion.MentionsProperty(err, name) {
			r.schema.Disable(name, err.Error())
			return true
		}
	}
	return false
}

// disableOptional falls back to writing only Title and URL while the schema
// is unknown. It reports whether anything was left to disable.
func (r *NotionPageRepository) disableOptional(err error) bool {
	if r.schema.Known() {
		return false
	}
	changed := false
	for _, name := range r.builder.OptionalNames() {
		if !r.schema.Disabled(name) {
			r.schema.Disable(name, "write rejected: "+err.Error())
			changed = true
		}
	}
	return changed
}

func (r *NotionPageRepository) bodyBlocks(record feed.Record) []notion.Block {
	if !r.writeBody {
		return nil
	}

	markdown := record.Body
	if record.Content.Available() {
		markdown = record.Content.Markdown
	}

	return notion.MarkdownToBlocks(markdown)
}

// replaceBody deletes the page's own blocks and writes new ones. Child pages
// and databases are kept.
func (r *NotionPageRepository) replaceBody(ctx context.Context, pageID string, blocks []notion.Block) error {
	var existing []notion.Block
	cursor := ""
	for {
		list, err := r.client.ListBlockChildren(ctx, pageID, cursor)
		if err != nil {
			return err
		}
		existing = append(existing, list.Results...)
		if !list.HasMore || list.NextCursor == "" {
			break
		}
		cursor = list.NextCursor
	}

	var errs []error
	for _, block := range existing {
		if block.Type == "child_page" || block.Type == "child_database" {
			continue
		}
		if err := r.client.DeleteBlock(ctx, block.ID); err != nil && !notion.IsNotFound(err) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to clear page body: %w", errors.Join(errs...))
	}

	r.appendBlocks(ctx, pageID, blocks)
	return nil
}

func (r *NotionPageRepository) appendBlocks(ctx context.Context, pageID string, blocks []notion.Block) {
	for start := 0; start < len(blocks); start += appendChunkSize {
		end := min(start+appendChunkSize, len(blocks))
		if err := r.client.AppendBlockChildren(ctx, pageID, blocks[start:end]); err != nil {
			slog.Warn("Failed to append page blocks", "page", pageID, "blocks", end-start, "error", err)
			return
		}
	}
}
