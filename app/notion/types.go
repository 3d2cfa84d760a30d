package notion

// Wire types for the subset of the Notion API used by the sync.

const (
	maxTextLength    = 1900 // Notion rejects text objects over 2000 characters
	maxRichTextItems = 100
)

type Text struct {
	Content string `json:"content"`
}

type RichText struct {
	Type      string `json:"type,omitempty"`
	Text      *Text  `json:"text,omitempty"`
	PlainText string `json:"plain_text,omitempty"`
}

type SelectOption struct {
	Name string `json:"name"`
}

type Date struct {
	Start string `json:"start"`
}

// PropertyValue is a single property in a create or update payload, for
// example {"url": "https://..."}. A nil value clears the property.
type PropertyValue map[string]any

type Properties map[string]PropertyValue

type Parent struct {
	DatabaseID string `json:"database_id"`
}

type CreatePageRequest struct {
	Parent     Parent     `json:"parent"`
	Properties Properties `json:"properties"`
	Children   []Block    `json:"children,omitempty"`
}

type UpdatePageRequest struct {
	Properties Properties `json:"properties"`
}

// PageProperty is the read side of a page property. Only the fields the
// sync compares are decoded.
type PageProperty struct {
	ID   string  `json:"id"`
	Type string  `json:"type"`
	URL  *string `json:"url,omitempty"`
}

type Page struct {
	Object     string                  `json:"object"`
	ID         string                  `json:"id"`
	Archived   bool                    `json:"archived"`
	Properties map[string]PageProperty `json:"properties"`
}

type Filter struct {
	Property string         `json:"property"`
	URL      *TextCondition `json:"url,omitempty"`
}

type TextCondition struct {
	Equals string `json:"equals"`
}

type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
}

type QueryResponse struct {
	Object     string `json:"object"`
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type PropertySchema struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type Database struct {
	Object     string                    `json:"object"`
	ID         string                    `json:"id"`
	Title      []RichText                `json:"title"`
	Properties map[string]PropertySchema `json:"properties"`
}

type RichTextBlock struct {
	RichText []RichText `json:"rich_text"`
}

type CodeBlock struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language"`
}

type Block struct {
	Object           string         `json:"object,omitempty"`
	ID               string         `json:"id,omitempty"`
	Type             string         `json:"type"`
	Paragraph        *RichTextBlock `json:"paragraph,omitempty"`
	Heading1         *RichTextBlock `json:"heading_1,omitempty"`
	Heading2         *RichTextBlock `json:"heading_2,omitempty"`
	Heading3         *RichTextBlock `json:"heading_3,omitempty"`
	BulletedListItem *RichTextBlock `json:"bulleted_list_item,omitempty"`
	NumberedListItem *RichTextBlock `json:"numbered_list_item,omitempty"`
	Quote            *RichTextBlock `json:"quote,omitempty"`
	Code             *CodeBlock     `json:"code,omitempty"`
}

type BlockList struct {
	Object     string  `json:"object"`
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

type AppendBlockChildrenRequest struct {
	Children []Block `json:"children"`
}
