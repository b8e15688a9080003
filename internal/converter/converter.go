package converter

import (
	"context"
	"path/filepath"
	"strings"
)

// Document is the Markdown rendition of one input
type Document struct {
	Markdown string
	Title    string
	// Source is the path or URL the document was produced from
	Source string
}

// DocumentConverter defines the interface for document conversion
type DocumentConverter interface {
	// Convert converts a document to markdown
	Convert(ctx context.Context, input string) (*Document, error)
	// Supports checks if the converter supports the given input
	Supports(input string) bool
	// IsAvailable checks if the converter is available
	IsAvailable() bool
}

// IsURL reports whether input is an http(s) URL
func IsURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

var (
	textExtensions = map[string]bool{
		".md":       true,
		".markdown": true,
		".txt":      true,
	}
	htmlExtensions = map[string]bool{
		".html":  true,
		".htm":   true,
		".xhtml": true,
	}
	markitdownExtensions = map[string]bool{
		".docx": true,
		".doc":  true,
		".pptx": true,
		".ppt":  true,
		".xlsx": true,
		".xls":  true,
		".epub": true,
		".png":  true,
		".jpg":  true,
		".jpeg": true,
		".csv":  true,
		".json": true,
		".xml":  true,
		".zip":  true,
		".msg":  true,
	}
)

// IsSupportedExtension checks if the extension is supported
func IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	return ext == ".pdf" || textExtensions[ext] || htmlExtensions[ext] || markitdownExtensions[ext]
}

// IsMarkdownFile checks if the extension is a native markdown/text format
func IsMarkdownFile(ext string) bool {
	return textExtensions[strings.ToLower(ext)]
}

// IsHTMLFile checks if the extension is an HTML document
func IsHTMLFile(ext string) bool {
	return htmlExtensions[strings.ToLower(ext)]
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
