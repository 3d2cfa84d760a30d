package feed

import (
	"cmp"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleLength   = 200
	maxSourceLength  = 90
	maxSummaryLength = 200
	maxTagLength     = 100
)

type Normalizer struct {
	converter *MarkdownConverter
}

func NewNormalizer(converter *MarkdownConverter) *Normalizer {
	return &Normalizer{converter: converter}
}

// Run maps a feed item to a Record. It returns false when the item has no
// usable URL and must be skipped. Missing optional fields never fail an item.
func (n *Normalizer) Run(item Item, source string, withTags bool) (Record, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return Record{}, false
	}

	record := Record{
		Title:     truncate(cmp.Or(strings.TrimSpace(item.Title), link), maxTitleLength),
		URL:       link,
		Published: item.PublishedAt,
		Source:    source,
		Summary:   summarize(PlainText(item.Description), maxSummaryLength),
		Content:   UnavailableContent("not fetched"),
	}

	if record.Published == nil {
		record.Published = item.UpdatedAt
	}

	if len(item.Authors) > 0 {
		record.Author = item.Authors[0]
	}

	if withTags {
		record.Tags = UniqueTags(item.Categories)
	}

	record.Body = n.feedBody(item, record.Title, link)

	return record, true
}

// feedBody renders the HTML shipped with the feed, content first, then
// the description. A link to the article is the last resort.
func (n *Normalizer) feedBody(item Item, title, link string) string {
	for _, candidate := range []string{item.Content, item.Description} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		markdown, err := n.converter.Run(candidate)
		if err != nil {
			slog.Debug("Failed to convert feed HTML", "url", link, "error", err)
			continue
		}
		if markdown != "" {
			return markdown
		}
	}

	return fmt.Sprintf("# %s\n\n[Read full article](%s)", title, link)
}

// SourceName picks the label written to the Source property: the override,
// the feed title, then the host of the feed URL.
func SourceName(metadata *Metadata, override string) string {
	var title, feedURL, link string
	if metadata != nil {
		title, feedURL, link = metadata.Title, metadata.FeedURL, metadata.Link
	}

	name := cmp.Or(strings.TrimSpace(override), title, hostOf(feedURL), hostOf(link), "RSS")

	// Select option names may not contain commas.
	name = strings.ReplaceAll(name, ",", " ")

	return truncate(strings.Join(strings.Fields(name), " "), maxSourceLength)
}

// UniqueTags removes exact duplicates while keeping first-seen order.
// Comparison is case-sensitive on trimmed, NFC-normalized values; empty
// categories are dropped.
func UniqueTags(categories []string) []string {
	seen := make(map[string]struct{}, len(categories))
	tags := make([]string, 0, len(categories))

	for _, category := range categories {
		tag := norm.NFC.String(strings.TrimSpace(strings.ReplaceAll(category, ",", " ")))
		tag = truncate(tag, maxTagLength)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	return tags
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// summarize shortens text to limit runes, cutting at a word boundary.
func summarize(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := string(runes[:limit-3])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}

	return cut + "..."
}
