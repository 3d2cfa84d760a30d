package feed

import (
	"fmt"
	"strings"
)

var filterFields = map[string]func(Item) string{
	"title":       func(item Item) string { return item.Title },
	"description": func(item Item) string { return item.Description },
	"content":     func(item Item) string { return item.Content },
	"authors":     func(item Item) string { return strings.Join(item.Authors, " ") },
	"link":        func(item Item) string { return item.Link },
	"categories":  func(item Item) string { return strings.Join(item.Categories, " ") },
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run marks the items excluded by the feed's filters. Items are returned
// in their original order; excluded ones carry IsFiltered and a reason.
func (f *Filterer) Run(items []Item, feedConfig *Config) []Item {
	if feedConfig == nil || len(feedConfig.Filters) == 0 {
		return items
	}

	marked := make([]Item, len(items))
	for i, item := range items {
		item.IsFiltered, item.FilterReason = f.check(item, feedConfig.Filters)
		marked[i] = item
	}

	return marked
}

// check applies excludes before includes; matching is a case-insensitive
// substring test.
func (f *Filterer) check(item Item, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		field, ok := filterFields[filter.Field]
		if !ok {
			continue
		}
		value := strings.ToLower(field(item))

		if pattern, hit := firstMatch(value, filter.Excludes); hit {
			return true, fmt.Sprintf("excluded by %s filter: contains '%s'", filter.Field, pattern)
		}

		if len(filter.Includes) > 0 {
			if _, hit := firstMatch(value, filter.Includes); !hit {
				return true, fmt.Sprintf("excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func firstMatch(value string, patterns []string) (string, bool) {
	for _, pattern := range patterns {
		if strings.Contains(value, strings.ToLower(pattern)) {
			return pattern, true
		}
	}
	return "", false
}
