package converter

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Release Notes - Docbridge</title>
</head>
<body>
    <nav>
        <a href="/">Home</a>
        <a href="/about">About</a>
    </nav>
    <div class="ad-banner">Advertisement</div>
    <main>
        <article>
            <h1>Release Notes</h1>
            <h2>Version 2.0</h2>
            <section>
                <h3>Highlights</h3>
                <p>The converter now extracts <strong>titles</strong> from every supported format, including
                PDF metadata, HTML documents and the first heading of Markdown files.</p>
                <p>Chunking respects heading boundaries and merges small sibling sections so that each
                chunk carries enough context for retrieval without exceeding the token budget.</p>
            </section>
            <section>
                <h3>Fixes</h3>
                <p>Audio transcription now validates its arguments before touching the filesystem, and
                every failure is reported through the same framed result as a success.</p>
            </section>
        </article>
    </main>
    <footer>Copyright 2024</footer>
</body>
</html>`

type fakeRenderer struct {
	html   string
	err    error
	calls  int
	closed bool
}

func (r *fakeRenderer) Render(_ context.Context, _ string) (string, error) {
	r.calls++
	return r.html, r.err
}

func (r *fakeRenderer) Close() error {
	r.closed = true
	return nil
}

func TestHTMLConverter_Supports(t *testing.T) {
	converter := NewHTMLConverter(nil)

	tests := []struct {
		input    string
		expected bool
	}{
		{"test.html", true},
		{"test.htm", true},
		{"TEST.HTML", true},
		{"page.xhtml", true},
		{"https://example.com/page.html", true},
		{"http://example.com/page", true},
		{"test.pdf", false},
		{"test.txt", false},
		{"plain text", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, converter.Supports(tt.input))
		})
	}
}

func TestHTMLConverter_Convert_StaticHTML(t *testing.T) {
	htmlFile := filepath.Join(t.TempDir(), "notes.html")
	require.NoError(t, os.WriteFile(htmlFile, []byte(articleHTML), 0o644))

	doc, err := NewHTMLConverter(nil).Convert(context.Background(), htmlFile)
	require.NoError(t, err)

	assert.Contains(t, doc.Markdown, "Highlights")
	assert.Contains(t, doc.Markdown, "**titles**", "inline markup is rendered as markdown")
	assert.Contains(t, doc.Markdown, "token budget")
	assert.NotContains(t, doc.Markdown, "Advertisement")
	assert.NotContains(t, doc.Markdown, "Copyright 2024")
	assert.NotEmpty(t, doc.Title)
	assert.Equal(t, htmlFile, doc.Source)
}

func TestHTMLConverter_Convert_NonExistentFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.html")

	_, err := NewHTMLConverter(nil).Convert(context.Background(), missing)

	var notFound *FileNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestHTMLConverter_ConvertHTML_EmptyPage(t *testing.T) {
	pageURL, _ := url.Parse("https://example.com/app")

	_, err := NewHTMLConverter(nil).ConvertHTML(context.Background(), []byte(`<html><body><div id="app"></div></body></html>`), pageURL)
	require.Error(t, err)

	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Contains(t, convErr.Error(), "no readable content")
}

func TestHTMLConverter_ConvertHTML_BrowserFallback(t *testing.T) {
	pageURL, _ := url.Parse("https://example.com/app")
	renderer := &fakeRenderer{html: articleHTML}
	converter := NewHTMLConverter(renderer)

	doc, err := converter.ConvertHTML(context.Background(), []byte(`<html><body><div id="app"></div></body></html>`), pageURL)
	require.NoError(t, err)
	assert.Equal(t, 1, renderer.calls)
	assert.Contains(t, doc.Markdown, "Highlights")

	require.NoError(t, converter.Close())
	assert.True(t, renderer.closed)
}

func TestHTMLConverter_ConvertHTML_SkipsBrowserForStaticContent(t *testing.T) {
	pageURL, _ := url.Parse("https://example.com/notes")
	renderer := &fakeRenderer{err: errors.New("should not be called")}

	doc, err := NewHTMLConverter(renderer).ConvertHTML(context.Background(), []byte(articleHTML), pageURL)
	require.NoError(t, err)
	assert.Zero(t, renderer.calls)
	assert.Equal(t, "https://example.com/notes", doc.Source)
}

func TestHTMLConverter_ConvertHTML_BrowserFailureFallsBackToPage(t *testing.T) {
	pageURL, _ := url.Parse("https://example.com/short")
	renderer := &fakeRenderer{err: errors.New("chromium missing")}

	doc, err := NewHTMLConverter(renderer).ConvertHTML(context.Background(), []byte(`<html><body><p>Hi</p></body></html>`), pageURL)
	require.NoError(t, err)
	assert.Contains(t, doc.Markdown, "Hi")
}

func TestPlaywrightRenderer_CloseWithoutStart(t *testing.T) {
	r := NewPlaywrightRenderer(0)
	assert.NoError(t, r.Close())
}
