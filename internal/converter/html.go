package converter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"codeberg.org/readeck/go-readability/v2"
	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/playwright-community/playwright-go"
)

// Renderer loads a page in a browser and returns the resulting HTML
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
	Close() error
}

// HTMLConverter turns HTML into Markdown. go-readability picks the main
// content and html-to-markdown renders it. A Renderer, when set, is tried
// for pages whose static HTML has no readable content.
type HTMLConverter struct {
	renderer Renderer
	markdown *md.Converter
}

// NewHTMLConverter creates a new HTMLConverter. Pass a nil renderer to
// disable the browser fallback.
func NewHTMLConverter(renderer Renderer) *HTMLConverter {
	return &HTMLConverter{
		renderer: renderer,
		markdown: md.NewConverter("", true, nil),
	}
}

// IsAvailable always returns true; the browser fallback is optional
func (c *HTMLConverter) IsAvailable() bool {
	return true
}

// Supports checks if the converter supports the given input
func (c *HTMLConverter) Supports(input string) bool {
	if IsURL(input) {
		return true
	}
	return IsHTMLFile(extOf(input))
}

// Close releases the browser, if one was started
func (c *HTMLConverter) Close() error {
	if c.renderer == nil {
		return nil
	}
	return c.renderer.Close()
}

// Convert converts a local HTML file
func (c *HTMLConverter) Convert(ctx context.Context, input string) (*Document, error) {
	resolvedPath, err := filepath.Abs(input)
	if err != nil {
		return nil, &FileNotFoundError{Path: input}
	}

	// #nosec G304 - path is validated by the registry
	htmlBytes, err := os.ReadFile(resolvedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &FileNotFoundError{Path: input}
		}
		return nil, &ConversionError{
			OriginalError: err,
			Path:          input,
			Hint:          "failed to read HTML file",
		}
	}

	pageURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(resolvedPath)}
	doc, err := c.ConvertHTML(ctx, htmlBytes, pageURL)
	if err != nil {
		return nil, err
	}
	doc.Source = input
	return doc, nil
}

// ConvertHTML converts an HTML body fetched from pageURL
func (c *HTMLConverter) ConvertHTML(ctx context.Context, body []byte, pageURL *url.URL) (*Document, error) {
	if doc := c.extract(body, pageURL); doc != nil {
		return doc, nil
	}

	if c.renderer != nil {
		slog.DebugContext(ctx, "no readable content in static HTML, rendering with browser", "url", pageURL.String())
		rendered, err := c.renderer.Render(ctx, pageURL.String())
		if err != nil {
			slog.WarnContext(ctx, "browser render failed", "url", pageURL.String(), "error", err)
		} else if doc := c.extract([]byte(rendered), pageURL); doc != nil {
			return doc, nil
		}
	}

	// Readability found nothing; fall back to the whole page
	markdown, err := c.markdown.ConvertString(string(body))
	if err != nil {
		return nil, &ConversionError{
			OriginalError: err,
			Path:          pageURL.String(),
			Hint:          "failed to convert HTML to markdown",
		}
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, &ConversionError{
			Path: pageURL.String(),
			Hint: "no readable content found in page",
		}
	}
	return &Document{
		Markdown: markdown,
		Title:    firstHeading(markdown),
		Source:   pageURL.String(),
	}, nil
}

// extract returns nil when readability finds no main content
func (c *HTMLConverter) extract(body []byte, pageURL *url.URL) *Document {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil || article.Node == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := article.RenderHTML(&buf); err != nil {
		return nil
	}
	markdown, err := c.markdown.ConvertString(buf.String())
	if err != nil {
		return nil
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil
	}

	title := strings.TrimSpace(article.Title())
	if title == "" {
		title = firstHeading(markdown)
	}
	return &Document{
		Markdown: markdown,
		Title:    title,
		Source:   pageURL.String(),
	}
}

// PlaywrightRenderer renders pages in headless Chromium. The browser is
// started on first use.
type PlaywrightRenderer struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	timeout float64
}

// NewPlaywrightRenderer creates a renderer with a navigation timeout in
// milliseconds
func NewPlaywrightRenderer(timeoutMs float64) *PlaywrightRenderer {
	if timeoutMs <= 0 {
		timeoutMs = 30000
	}
	return &PlaywrightRenderer{timeout: timeoutMs}
}

func (r *PlaywrightRenderer) start() error {
	if r.browser != nil {
		return nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return &BinaryNotFoundError{
			Binary: "playwright",
			Hint:   "go run github.com/playwright-community/playwright-go/cmd/playwright install chromium",
		}
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		if stopErr := pw.Stop(); stopErr != nil {
			slog.Debug("error stopping playwright", "error", stopErr)
		}
		return &ConversionError{
			OriginalError: err,
			Hint:          "failed to launch chromium browser",
		}
	}

	r.pw = pw
	r.browser = browser
	return nil
}

// Render navigates to pageURL and returns the page HTML
func (r *PlaywrightRenderer) Render(_ context.Context, pageURL string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.start(); err != nil {
		return "", err
	}

	page, err := r.browser.NewPage()
	if err != nil {
		return "", &ConversionError{
			OriginalError: err,
			Hint:          "failed to create new page",
		}
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Debug("error closing page", "error", closeErr)
		}
	}()

	if _, err := page.Goto(pageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(r.timeout),
	}); err != nil {
		return "", &ConversionError{
			OriginalError: err,
			Hint:          fmt.Sprintf("failed to navigate to %s", pageURL),
		}
	}

	html, err := page.Content()
	if err != nil {
		return "", &ConversionError{
			OriginalError: err,
			Hint:          "failed to get page content",
		}
	}
	return html, nil
}

// Close cleans up the playwright browser and instance
func (r *PlaywrightRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			firstErr = err
		}
		r.browser = nil
	}
	if r.pw != nil {
		if err := r.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.pw = nil
	}
	return firstErr
}
