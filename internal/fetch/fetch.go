// Package fetch retrieves remote documents for conversion.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Resource is a fetched response body
type Resource struct {
	Body        []byte
	ContentType string
	FinalURL    *url.URL
	Filename    string
}

// IsHTML reports whether the resource should be treated as an HTML page
func (r *Resource) IsHTML() bool {
	mediaType, _, _ := mime.ParseMediaType(r.ContentType)
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return true
	case "":
		ext := strings.ToLower(path.Ext(r.FinalURL.Path))
		return ext == "" || ext == ".html" || ext == ".htm"
	}
	return false
}

// Fetcher downloads http(s) resources with size limits and retry
type Fetcher struct {
	client  *http.Client
	maxSize int64
	retry   RetryConfig
	fs      afero.Fs
	logger  *slog.Logger
}

// New creates a Fetcher with a client built from opts
func New(opts Options) *Fetcher {
	return NewWithClient(NewHTTPClient(opts), opts.MaxContentSize)
}

// NewWithClient creates a Fetcher around an existing client
func NewWithClient(client *http.Client, maxSize int64) *Fetcher {
	if maxSize <= 0 {
		maxSize = DefaultOptions().MaxContentSize
	}
	return &Fetcher{
		client:  client,
		maxSize: maxSize,
		retry:   DefaultRetryConfig,
		fs:      afero.NewOsFs(),
		logger:  slog.Default(),
	}
}

// WithRetry sets the retry policy
func (f *Fetcher) WithRetry(cfg RetryConfig) *Fetcher {
	f.retry = cfg
	return f
}

// WithFs sets the filesystem Save writes to
func (f *Fetcher) WithFs(fs afero.Fs) *Fetcher {
	f.fs = fs
	return f
}

// WithLogger sets a custom logger
func (f *Fetcher) WithLogger(logger *slog.Logger) *Fetcher {
	f.logger = logger
	return f
}

// ParseURL accepts absolute http(s) URLs only
func ParseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &ValidationError{Field: "url", Value: rawURL, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ValidationError{Field: "url", Value: rawURL, Reason: fmt.Sprintf("unsupported URL scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return nil, &ValidationError{Field: "url", Value: rawURL, Reason: "missing host"}
	}
	return u, nil
}

// Fetch retrieves rawURL. Transport failures and 5xx responses are retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Resource, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	var res *Resource
	err = Retry(ctx, f.retry, func(attempt int) error {
		if attempt > 1 {
			f.logger.DebugContext(ctx, "retrying fetch", "url", u.String(), "attempt", attempt)
		}
		var fetchErr error
		res, fetchErr = f.fetchOnce(ctx, u)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, u *url.URL) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &ValidationError{Field: "url", Value: u.String(), Reason: err.Error()}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{URL: u.String(), Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Debug("error closing response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: u.String(), Status: resp.StatusCode}
	}
	if resp.ContentLength > f.maxSize {
		return nil, tooLarge(u, f.maxSize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, &NetworkError{URL: u.String(), Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxSize {
		return nil, tooLarge(u, f.maxSize)
	}

	finalURL := u
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}
	return &Resource{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL,
		Filename:    filenameFor(resp.Header.Get("Content-Disposition"), finalURL),
	}, nil
}

func tooLarge(u *url.URL, limit int64) error {
	return &ValidationError{
		Field:  "content",
		Value:  u.String(),
		Reason: fmt.Sprintf("response exceeds %d bytes", limit),
	}
}

// Save writes a fetched resource into dir under a unique name and returns
// the written path. The extension comes from the URL path or the content
// type.
func (f *Fetcher) Save(ctx context.Context, res *Resource, dir string) (string, error) {
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	target := filepath.Join(dir, "download_"+uuid.NewString()+extensionFor(res))
	if err := afero.WriteFile(f.fs, target, res.Body, 0o600); err != nil {
		return "", fmt.Errorf("write download: %w", err)
	}
	f.logger.DebugContext(ctx, "downloaded resource", "url", res.FinalURL.String(), "path", target, "bytes", len(res.Body))
	return target, nil
}

var preferredExtensions = map[string]string{
	"application/pdf": ".pdf",
	"text/html":       ".html",
	"text/plain":      ".txt",
	"text/markdown":   ".md",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
}

func extensionFor(res *Resource) string {
	if ext := path.Ext(res.Filename); ext != "" {
		return strings.ToLower(ext)
	}
	mediaType, _, err := mime.ParseMediaType(res.ContentType)
	if err != nil {
		return ""
	}
	if ext, ok := preferredExtensions[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func filenameFor(disposition string, u *url.URL) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := path.Base(params["filename"]); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	name := path.Base(strings.TrimRight(u.Path, "/"))
	if name == "." || name == "/" || name == "" {
		return u.Hostname()
	}
	return name
}
