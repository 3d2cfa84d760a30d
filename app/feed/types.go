package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title   string
	Link    string
	FeedURL string // URL the feed was fetched from
}

type Item struct {
	Title       string
	Link        string
	Description string
	Content     string
	Published   string // raw date string as found in the feed
	PublishedAt *time.Time
	UpdatedAt   *time.Time
	Authors     []string // Multiple authors in format "email (name)" or "name"
	Categories  []string

	IsFiltered   bool
	FilterReason string
}

// Record is the canonical form of an item as written to the database.
type Record struct {
	Title     string
	URL       string
	Published *time.Time
	Source    string
	Summary   string
	Author    string
	Tags      []string
	Content   Content
	Body      string // Markdown rendered as page blocks; feed HTML when Content is unavailable
}

// Content carries the extracted article Markdown or the reason it is unavailable.
type Content struct {
	Markdown string
	Reason   string
}

func AvailableContent(markdown string) Content {
	return Content{Markdown: markdown}
}

func UnavailableContent(reason string) Content {
	return Content{Reason: reason}
}

func (c Content) Available() bool {
	return c.Markdown != ""
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension) or the URL itself
	URL      string         `yaml:"url"`
	Source   string         `yaml:"source"` // overrides the source label derived from the feed
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled        bool  `yaml:"enabled"`
	MaxItems       int   `yaml:"max_items"`       // 0 means global default
	ExtractContent *bool `yaml:"extract_content"` // nil means global default
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
