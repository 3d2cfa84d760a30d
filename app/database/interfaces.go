package database

import (
	"context"

	"github.com/lysyi3m/feed2notion/app/feed"
)

// Page is a record stored in the remote database.
type Page struct {
	ID  string
	URL string
}

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_page_repository.go -package=mocks

// PageRepository stores records as pages keyed by URL.
type PageRepository interface {
	// FindByURL returns the page whose URL equals url, or nil when none exists.
	FindByURL(ctx context.Context, url string) (*Page, error)
	CreatePage(ctx context.Context, record feed.Record) (*Page, error)
	// UpdatePage overwrites every mapped property of the page.
	UpdatePage(ctx context.Context, pageID string, record feed.Record) error
	SupportsTags() bool
}
