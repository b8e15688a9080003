package converter

import (
	"context"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFConverter extracts text from PDF files using pure Go.
// Only the embedded text layer is read; scanned pages yield nothing.
type PDFConverter struct{}

// NewPDFConverter creates a new PDFConverter
func NewPDFConverter() *PDFConverter {
	return &PDFConverter{}
}

// IsAvailable always returns true - pure Go has no external deps
func (c *PDFConverter) IsAvailable() bool {
	return true
}

// Supports checks if the converter supports the given input
func (c *PDFConverter) Supports(input string) bool {
	return !IsURL(input) && extOf(input) == ".pdf"
}

// Convert extracts text from a PDF file
func (c *PDFConverter) Convert(ctx context.Context, input string) (*Document, error) {
	if _, err := os.Stat(input); err != nil {
		return nil, &FileNotFoundError{Path: input}
	}

	f, reader, err := pdf.Open(input)
	if err != nil {
		return nil, &ConversionError{
			OriginalError: err,
			Path:          input,
			Hint:          "failed to open PDF",
		}
	}
	defer func() { _ = f.Close() }()

	fonts := make(map[string]*pdf.Font)
	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := p.Font(name)
				fonts[name] = &font
			}
		}

		text, err := p.GetPlainText(fonts)
		if err != nil {
			return nil, &ConversionError{
				OriginalError: err,
				Path:          input,
				Hint:          "failed to extract text from PDF page",
			}
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	if len(pages) == 0 {
		return nil, &ConversionError{
			Path: input,
			Hint: "PDF has no text layer",
		}
	}

	return &Document{
		Markdown: strings.Join(pages, "\n\n"),
		Title:    pdfTitle(reader),
		Source:   input,
	}, nil
}

func pdfTitle(reader *pdf.Reader) string {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}
