package notion

import (
	"time"
)

// RichTextChunks splits text into text objects within Notion's length
// limits. Text beyond the item limit is dropped. The result is never nil so
// it encodes as an empty array and clears the property.
func RichTextChunks(text string) []RichText {
	chunks := make([]RichText, 0, 1)
	runes := []rune(text)

	for start := 0; start < len(runes) && len(chunks) < maxRichTextItems; start += maxTextLength {
		end := min(start+maxTextLength, len(runes))
		chunks = append(chunks, RichText{
			Type: "text",
			Text: &Text{Content: string(runes[start:end])},
		})
	}

	return chunks
}

func TitleValue(text string) PropertyValue {
	return PropertyValue{"title": RichTextChunks(text)}
}

func RichTextValue(text string) PropertyValue {
	return PropertyValue{"rich_text": RichTextChunks(text)}
}

func URLValue(url string) PropertyValue {
	if url == "" {
		return PropertyValue{"url": nil}
	}
	return PropertyValue{"url": url}
}

func DateValue(t *time.Time) PropertyValue {
	if t == nil {
		return PropertyValue{"date": nil}
	}
	return PropertyValue{"date": Date{Start: t.Format(time.RFC3339)}}
}

func SelectValue(name string) PropertyValue {
	if name == "" {
		return PropertyValue{"select": nil}
	}
	return PropertyValue{"select": SelectOption{Name: name}}
}

func MultiSelectValue(names []string) PropertyValue {
	options := make([]SelectOption, 0, len(names))
	for _, name := range names {
		options = append(options, SelectOption{Name: name})
	}
	return PropertyValue{"multi_select": options}
}
