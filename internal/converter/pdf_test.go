package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPDF writes a minimal PDF with one page per entry in pages and an
// Info dictionary carrying title. Cross-reference offsets are computed so
// strict parsers accept the file.
func writeTestPDF(t *testing.T, dir, name, title string, pages ...string) string {
	t.Helper()

	var objects []string
	pageCount := len(pages)
	// 1 catalog, 2 pages tree, 3 font, 4 info, then a page and content per page
	kids := make([]string, pageCount)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pageCount),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Title (%s) >>", title),
	)
	for i, text := range pages {
		stream := fmt.Sprintf("BT\n/F1 12 Tf\n50 700 Td\n(%s) Tj\nET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>", 6+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestPDFConverter_Supports(t *testing.T) {
	converter := NewPDFConverter()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"PDF file", "/tmp/report.pdf", true},
		{"Uppercase PDF", "/tmp/REPORT.PDF", true},
		{"URL", "https://example.com/report.pdf", false},
		{"Text input", "some text", false},
		{"Non-PDF file", "/tmp/report.docx", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, converter.Supports(tt.input))
		})
	}
}

func TestPDFConverter_IsAvailable(t *testing.T) {
	assert.True(t, NewPDFConverter().IsAvailable())
}

func TestPDFConverter_Convert_PDF(t *testing.T) {
	pdfPath := writeTestPDF(t, t.TempDir(), "hello.pdf", "Quarterly Report", "Hello World")

	doc, err := NewPDFConverter().Convert(context.Background(), pdfPath)
	require.NoError(t, err)
	assert.Contains(t, doc.Markdown, "Hello World")
	assert.Equal(t, "Quarterly Report", doc.Title)
	assert.Equal(t, pdfPath, doc.Source)
}

func TestPDFConverter_Convert_MultiPagePDF(t *testing.T) {
	pdfPath := writeTestPDF(t, t.TempDir(), "multi.pdf", "Multi", "Page One Content", "Page Two Content")

	doc, err := NewPDFConverter().Convert(context.Background(), pdfPath)
	require.NoError(t, err)

	first := strings.Index(doc.Markdown, "Page One Content")
	second := strings.Index(doc.Markdown, "Page Two Content")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first, "pages keep document order")
	assert.Contains(t, doc.Markdown[first:second], "\n\n", "pages are separated by a blank line")
}

func TestPDFConverter_Convert_NonExistentFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.pdf")

	_, err := NewPDFConverter().Convert(context.Background(), missing)
	require.Error(t, err)

	var notFound *FileNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, missing, notFound.MissingResource())
}

func TestPDFConverter_Convert_InvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.pdf")
	require.NoError(t, os.WriteFile(path, []byte("This is not a PDF"), 0o644))

	_, err := NewPDFConverter().Convert(context.Background(), path)
	require.Error(t, err)

	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, path, convErr.Path)
}
