package notion

import (
	"regexp"
	"strings"
)

var (
	headingPattern  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletPattern   = regexp.MustCompile(`^[-*+]\s+`)
	numberedPattern = regexp.MustCompile(`^\d+[.)]\s+`)
)

// codeLanguages are the Notion code block languages a fence may name.
// Anything else is written as plain text.
var codeLanguages = map[string]string{
	"bash": "bash", "sh": "shell", "shell": "shell", "c": "c", "c++": "c++", "cpp": "c++",
	"c#": "c#", "csharp": "c#", "css": "css", "diff": "diff", "docker": "docker",
	"dockerfile": "docker", "go": "go", "golang": "go", "graphql": "graphql", "html": "html",
	"java": "java", "javascript": "javascript", "js": "javascript", "json": "json",
	"kotlin": "kotlin", "lua": "lua", "makefile": "makefile", "markdown": "markdown",
	"md": "markdown", "php": "php", "python": "python", "py": "python", "ruby": "ruby",
	"rb": "ruby", "rust": "rust", "rs": "rust", "scala": "scala", "sql": "sql",
	"swift": "swift", "typescript": "typescript", "ts": "typescript", "xml": "xml",
	"yaml": "yaml", "yml": "yaml",
}

func richTextBlock(blockType, text string) Block {
	content := &RichTextBlock{RichText: RichTextChunks(text)}
	block := Block{Object: "block", Type: blockType}

	switch blockType {
	case "heading_1":
		block.Heading1 = content
	case "heading_2":
		block.Heading2 = content
	case "heading_3":
		block.Heading3 = content
	case "bulleted_list_item":
		block.BulletedListItem = content
	case "numbered_list_item":
		block.NumberedListItem = content
	case "quote":
		block.Quote = content
	default:
		block.Type = "paragraph"
		block.Paragraph = content
	}

	return block
}

func codeBlock(text, language string) Block {
	lang, ok := codeLanguages[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		lang = "plain text"
	}

	return Block{
		Object: "block",
		Type:   "code",
		Code:   &CodeBlock{RichText: RichTextChunks(text), Language: lang},
	}
}

// MarkdownToBlocks renders Markdown as a flat list of page blocks.
// Headings deeper than three levels become heading_3; inline markup is
// kept as literal text.
func MarkdownToBlocks(markdown string) []Block {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}

	var (
		blocks       []Block
		paragraph    []string
		code         []string
		inCode       bool
		codeLanguage string
	)

	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(paragraph, " "))
		paragraph = paragraph[:0]
		if text != "" {
			blocks = append(blocks, richTextBlock("paragraph", text))
		}
	}

	flushCode := func() {
		text := strings.TrimRight(strings.Join(code, "\n"), "\n")
		code = nil
		inCode = false
		if text != "" {
			blocks = append(blocks, codeBlock(text, codeLanguage))
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimRight(line, "\r")
		stripped := strings.TrimSpace(line)

		if inCode {
			if strings.HasPrefix(stripped, "```") {
				flushCode()
			} else {
				code = append(code, line)
			}
			continue
		}

		switch {
		case stripped == "":
			flushParagraph()

		case strings.HasPrefix(stripped, "```"):
			flushParagraph()
			inCode = true
			codeLanguage = strings.Trim(stripped, "` ")

		case headingPattern.MatchString(stripped):
			flushParagraph()
			match := headingPattern.FindStringSubmatch(stripped)
			level := min(len(match[1]), 3)
			if text := strings.TrimSpace(match[2]); text != "" {
				blocks = append(blocks, richTextBlock("heading_"+string(rune('0'+level)), text))
			}

		case bulletPattern.MatchString(stripped):
			flushParagraph()
			if text := strings.TrimSpace(bulletPattern.ReplaceAllString(stripped, "")); text != "" {
				blocks = append(blocks, richTextBlock("bulleted_list_item", text))
			}

		case numberedPattern.MatchString(stripped):
			flushParagraph()
			if text := strings.TrimSpace(numberedPattern.ReplaceAllString(stripped, "")); text != "" {
				blocks = append(blocks, richTextBlock("numbered_list_item", text))
			}

		case strings.HasPrefix(stripped, ">"):
			flushParagraph()
			if text := strings.TrimSpace(strings.TrimLeft(stripped, ">")); text != "" {
				blocks = append(blocks, richTextBlock("quote", text))
			}

		default:
			paragraph = append(paragraph, stripped)
		}
	}

	if inCode {
		flushCode()
	}
	flushParagraph()

	if len(blocks) == 0 {
		blocks = append(blocks, richTextBlock("paragraph", strings.TrimSpace(markdown)))
	}

	return blocks
}
