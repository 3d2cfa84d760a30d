package cfg

import "time"

type Cfg struct {
	// Notion configuration
	NotionAPIKey     string
	NotionDatabaseID string
	NotionAPIURL     string
	NotionTimeout    time.Duration

	// Feed configuration
	FeedURLs    []string
	FeedsDir    string
	MaxItems    int
	FeedTimeout time.Duration

	// Sync behaviour
	AllowUpdates     bool
	FetchFullContent bool
	ContentProperty  string
	ArticleTimeout   time.Duration
	IncludeSummary   bool
	WritePageBody    bool
	RequestDelay     time.Duration

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
