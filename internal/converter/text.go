package converter

import (
	"context"
	"os"
	"strings"

	"github.com/adrg/frontmatter"
)

// TextConverter passes Markdown and plain text files through unchanged
type TextConverter struct{}

// NewTextConverter creates a new TextConverter
func NewTextConverter() *TextConverter {
	return &TextConverter{}
}

// IsAvailable always returns true
func (c *TextConverter) IsAvailable() bool {
	return true
}

// Supports checks if the converter supports the given input
func (c *TextConverter) Supports(input string) bool {
	return !IsURL(input) && IsMarkdownFile(extOf(input))
}

// Convert reads the file as-is
func (c *TextConverter) Convert(_ context.Context, input string) (*Document, error) {
	// #nosec G304 - path is validated by the registry
	data, err := os.ReadFile(input)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &FileNotFoundError{Path: input}
		}
		return nil, &ConversionError{OriginalError: err, Path: input, Hint: "failed to read file"}
	}

	content := strings.ToValidUTF8(string(data), "\uFFFD")
	return &Document{
		Markdown: content,
		Title:    textTitle(content),
		Source:   input,
	}, nil
}

type frontMatter struct {
	Title string `yaml:"title" toml:"title" json:"title"`
}

// textTitle prefers a front matter title over the first heading
func textTitle(content string) string {
	var meta frontMatter
	body, err := frontmatter.Parse(strings.NewReader(content), &meta)
	if err != nil {
		return firstHeading(content)
	}
	if title := strings.TrimSpace(meta.Title); title != "" {
		return title
	}
	return firstHeading(string(body))
}

// firstHeading returns the text of the first ATX heading, if any
func firstHeading(markdown string) string {
	inFence := false
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || !strings.HasPrefix(trimmed, "#") {
			continue
		}
		level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
		rest := trimmed[level:]
		if level > 6 || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
			continue
		}
		title := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#"))
		if title != "" {
			return title
		}
	}
	return ""
}
