package feed

import (
	"fmt"
	"html"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

type MarkdownConverter struct {
	converter *md.Converter
}

func NewMarkdownConverter() *MarkdownConverter {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
	})
	converter.AddRules(md.Rule{
		Filter: []string{"img", "picture", "svg"},
		Replacement: func(_ string, _ *goquery.Selection, _ *md.Options) *string {
			return md.String("")
		},
	})

	return &MarkdownConverter{converter: converter}
}

// Run cleans the HTML fragment and converts it to Markdown.
func (c *MarkdownConverter) Run(htmlData string) (string, error) {
	if strings.TrimSpace(htmlData) == "" {
		return "", fmt.Errorf("HTML data is empty")
	}

	markdown, err := c.converter.ConvertString(CleanHTML(htmlData))
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	return strings.TrimSpace(markdown), nil
}

// CleanHTML drops scripts, styles and iframes and replaces inline data-URL
// images by their alt text. The input is returned unchanged when it cannot
// be parsed.
func CleanHTML(htmlData string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlData))
	if err != nil {
		return htmlData
	}

	doc.Find("script, style, noscript, iframe").Remove()

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if !strings.HasPrefix(strings.TrimSpace(src), "data:") {
			return
		}
		if alt := strings.TrimSpace(img.AttrOr("alt", "")); alt != "" {
			img.ReplaceWithHtml(html.EscapeString("[Image: " + alt + "]"))
			return
		}
		img.Remove()
	})

	cleaned, err := doc.Find("body").Html()
	if err != nil {
		return htmlData
	}

	return cleaned
}

var textPolicy = bluemonday.StrictPolicy()

// PlainText strips all markup from an HTML fragment and collapses whitespace.
func PlainText(htmlData string) string {
	if htmlData == "" {
		return ""
	}

	// Separate adjacent elements so their text does not run together.
	spaced := strings.ReplaceAll(htmlData, "<", " <")
	text := html.UnescapeString(textPolicy.Sanitize(spaced))

	return strings.Join(strings.Fields(text), " ")
}
