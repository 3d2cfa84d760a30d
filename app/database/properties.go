package database

import (
	"github.com/lysyi3m/feed2notion/app/feed"
	"github.com/lysyi3m/feed2notion/app/notion"
)

// Property names of the target database. Content is configurable.
const (
	PropertyTitle     = "Title"
	PropertyURL       = "URL"
	PropertyPublished = "Published"
	PropertySource    = "Source"
	PropertySummary   = "Summary"
	PropertyAuthor    = "Author"
	PropertyTags      = "Tags"
)

type optionalProperty struct {
	name  string
	kind  string
	value func(record feed.Record) (notion.PropertyValue, bool)
}

// PropertyBuilder maps a record onto the database properties the schema
// accepts. Title and URL are always written.
type PropertyBuilder struct {
	schema   *Schema
	optional []optionalProperty
}

func NewPropertyBuilder(schema *Schema, options PageOptions) *PropertyBuilder {
	optional := []optionalProperty{
		{PropertyPublished, "date", func(r feed.Record) (notion.PropertyValue, bool) {
			return notion.DateValue(r.Published), true
		}},
		{PropertySource, "select", func(r feed.Record) (notion.PropertyValue, bool) {
			return notion.SelectValue(r.Source), true
		}},
	}

	if options.IncludeSummary {
		optional = append(optional, optionalProperty{PropertySummary, "rich_text", func(r feed.Record) (notion.PropertyValue, bool) {
			return notion.RichTextValue(r.Summary), true
		}})
	}

	optional = append(optional,
		optionalProperty{PropertyAuthor, "rich_text", func(r feed.Record) (notion.PropertyValue, bool) {
			return notion.RichTextValue(r.Author), true
		}},
		optionalProperty{PropertyTags, "multi_select", func(r feed.Record) (notion.PropertyValue, bool) {
			return notion.MultiSelectValue(r.Tags), true
		}},
	)

	if options.ContentProperty != "" {
		optional = append(optional, optionalProperty{options.ContentProperty, "rich_text", func(r feed.Record) (notion.PropertyValue, bool) {
			// Unavailable content leaves the stored value untouched.
			if !r.Content.Available() {
				return nil, false
			}
			return notion.RichTextValue(r.Content.Markdown), true
		}})
	}

	return &PropertyBuilder{schema: schema, optional: optional}
}

func (b *PropertyBuilder) Build(record feed.Record) notion.Properties {
	properties := notion.Properties{
		PropertyTitle: notion.TitleValue(record.Title),
		PropertyURL:   notion.URLValue(record.URL),
	}

	for _, property := range b.optional {
		if !b.schema.Supports(property.name, property.kind) {
			continue
		}
		if value, ok := property.value(record); ok {
			properties[property.name] = value
		}
	}

	return properties
}

// OptionalNames lists the properties that may be dropped from a payload.
func (b *PropertyBuilder) OptionalNames() []string {
	names := make([]string, 0, len(b.optional))
	for _, property := range b.optional {
		names = append(names, property.name)
	}
	return names
}

func (b *PropertyBuilder) SupportsTags() bool {
	return b.schema.Supports(PropertyTags, "multi_select")
}
