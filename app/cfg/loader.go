package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

// ErrInvalidConfig marks configuration problems that must abort the run.
var ErrInvalidConfig = errors.New("invalid configuration")

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Notion configuration
	NotionAPIKey     string `long:"notion-api-key" env:"NOTION_API_KEY" description:"Notion integration token (required)"`
	NotionDatabaseID string `long:"notion-database-id" env:"NOTION_DATABASE_ID" description:"Target Notion database ID (required)"`
	NotionAPIURL     string `long:"notion-api-url" env:"NOTION_API_URL" default:"https://api.notion.com" description:"Notion API base URL"`
	NotionTimeout    int    `long:"notion-timeout" env:"NOTION_TIMEOUT" default:"30" description:"Notion API request timeout in seconds"`

	// Feed configuration
	Feeds       string `long:"feeds" env:"RSS_FEEDS" description:"Comma-separated list of feed URLs"`
	FeedsDir    string `long:"feeds-dir" env:"FEEDS_DIR" description:"Directory containing per-feed YAML files"`
	MaxItems    int    `long:"max-items" env:"MAX_ITEMS_PER_FEED" default:"30" description:"Maximum number of items processed per feed"`
	FeedTimeout int    `long:"feed-timeout" env:"FEED_FETCH_TIMEOUT" default:"30" description:"Feed fetch timeout in seconds"`

	// Sync behaviour
	AllowUpdates     string  `long:"allow-updates" env:"ALLOW_UPDATES" default:"true" description:"Overwrite pages that already exist (true/false)"`
	FetchFullContent string  `long:"fetch-full-content" env:"FETCH_FULL_CONTENT" default:"true" description:"Fetch and extract the linked article (true/false)"`
	ContentProperty  string  `long:"content-property" env:"CONTENT_PROPERTY" default:"Content" description:"Name of the database property receiving article content"`
	ArticleTimeout   float64 `long:"article-timeout" env:"ARTICLE_FETCH_TIMEOUT" default:"10" description:"Article fetch timeout in seconds"`
	IncludeSummary   string  `long:"include-summary" env:"INCLUDE_SUMMARY" default:"true" description:"Write the item summary property (true/false)"`
	WritePageBody    string  `long:"write-page-body" env:"WRITE_PAGE_BODY" default:"true" description:"Write article content as page blocks (true/false)"`
	RequestDelay     int     `long:"request-delay" env:"REQUEST_DELAY_MS" default:"350" description:"Minimum delay in milliseconds between feed fetches and between Notion writes"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"feed2notion/1.0" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses the process arguments and environment. It returns nil, nil
// when help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.HelpFlag|flags.PassDoubleDash)
	unsetBlankEnv(parser.Groups())

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				fmt.Fprintln(os.Stdout, flagsErr.Message)
				return nil, nil
			}
		}
		return nil, fmt.Errorf("%w: failed to parse configuration: %v", ErrInvalidConfig, err)
	}

	cfg := &Cfg{
		NotionAPIKey:     strings.TrimSpace(raw.NotionAPIKey),
		NotionDatabaseID: strings.TrimSpace(raw.NotionDatabaseID),
		NotionAPIURL:     strings.TrimRight(strings.TrimSpace(raw.NotionAPIURL), "/"),
		NotionTimeout:    time.Duration(raw.NotionTimeout) * time.Second,
		FeedURLs:         splitList(raw.Feeds),
		FeedsDir:         strings.TrimSpace(raw.FeedsDir),
		MaxItems:         raw.MaxItems,
		FeedTimeout:      time.Duration(raw.FeedTimeout) * time.Second,
		AllowUpdates:     parseBool(raw.AllowUpdates),
		FetchFullContent: parseBool(raw.FetchFullContent),
		ContentProperty:  cmp.Or(strings.TrimSpace(raw.ContentProperty), "Content"),
		ArticleTimeout:   time.Duration(raw.ArticleTimeout * float64(time.Second)),
		IncludeSummary:   parseBool(raw.IncludeSummary),
		WritePageBody:    parseBool(raw.WritePageBody),
		RequestDelay:     time.Duration(raw.RequestDelay) * time.Millisecond,
		UserAgent:        strings.TrimSpace(raw.UserAgent),
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// unsetBlankEnv removes option variables that are set but blank, so they
// fall back to their defaults like unset ones.
func unsetBlankEnv(groups []*flags.Group) {
	for _, group := range groups {
		for _, option := range group.Options() {
			key := option.EnvKeyWithNamespace()
			if key == "" {
				continue
			}
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) == "" {
				os.Unsetenv(key)
			}
		}
		unsetBlankEnv(group.Groups())
	}
}

func validate(cfg *Cfg) error {
	var problems []error

	if cfg.NotionAPIKey == "" {
		problems = append(problems, errors.New("NOTION_API_KEY is required"))
	}

	if cfg.NotionDatabaseID == "" {
		problems = append(problems, errors.New("NOTION_DATABASE_ID is required"))
	} else if id, err := uuid.Parse(cfg.NotionDatabaseID); err != nil {
		problems = append(problems, fmt.Errorf("NOTION_DATABASE_ID %q is not a valid ID: %w", cfg.NotionDatabaseID, err))
	} else {
		cfg.NotionDatabaseID = id.String()
	}

	if len(cfg.FeedURLs) == 0 && cfg.FeedsDir == "" {
		problems = append(problems, errors.New("RSS_FEEDS or FEEDS_DIR is required"))
	}

	positiveFields := map[string]int64{
		"MAX_ITEMS_PER_FEED":    int64(cfg.MaxItems),
		"FEED_FETCH_TIMEOUT":    int64(cfg.FeedTimeout),
		"NOTION_TIMEOUT":        int64(cfg.NotionTimeout),
		"ARTICLE_FETCH_TIMEOUT": int64(cfg.ArticleTimeout),
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			problems = append(problems, fmt.Errorf("%s must be positive", fieldName))
		}
	}

	if cfg.RequestDelay < 0 {
		problems = append(problems, errors.New("REQUEST_DELAY_MS must be non-negative"))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
	}

	return nil
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(part); value != "" {
			values = append(values, value)
		}
	}
	return values
}

// parseBool accepts 1/true/yes/on in any case; everything else is false.
func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
