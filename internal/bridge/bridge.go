// Package bridge runs one conversion request end to end: it parses the
// positional arguments, delegates to the converter, writes the artifact and
// turns the outcome into a protocol.Result.
package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"runtime/debug"

	"github.com/kfreiman/docbridge/internal/chunk"
	"github.com/kfreiman/docbridge/internal/converter"
	"github.com/kfreiman/docbridge/internal/fetch"
	"github.com/kfreiman/docbridge/internal/protocol"
	"github.com/kfreiman/docbridge/internal/storage"
	"github.com/kfreiman/docbridge/internal/transcribe"
)

// PageConverter converts an HTML body fetched from pageURL
type PageConverter interface {
	ConvertHTML(ctx context.Context, body []byte, pageURL *url.URL) (*converter.Document, error)
}

// ResourceFetcher retrieves remote inputs
type ResourceFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Resource, error)
	Save(ctx context.Context, res *fetch.Resource, dir string) (string, error)
}

// Artifact is what a successful operation produced
type Artifact struct {
	Markdown string
	Text     string
	Title    string
	Output   string
	Chunks   int
}

// Bridge holds the collaborators of one invocation
type Bridge struct {
	documents   converter.DocumentConverter
	pages       PageConverter
	fetcher     ResourceFetcher
	transcriber transcribe.Backend
	store       *storage.ArtifactStore
	tokenizer   chunk.Tokenizer
	maxTokens   int
	tempDir     string
	out         io.Writer
	logger      *slog.Logger
}

// Option configures a Bridge
type Option func(*Bridge)

// WithPageConverter sets the converter for fetched HTML pages
func WithPageConverter(p PageConverter) Option {
	return func(b *Bridge) { b.pages = p }
}

// WithFetcher enables http(s) inputs
func WithFetcher(f ResourceFetcher) Option {
	return func(b *Bridge) { b.fetcher = f }
}

// WithTranscriber sets the audio backend
func WithTranscriber(t transcribe.Backend) Option {
	return func(b *Bridge) { b.transcriber = t }
}

// WithStore sets where artifacts are written
func WithStore(s *storage.ArtifactStore) Option {
	return func(b *Bridge) { b.store = s }
}

// WithTokenizer overrides the chunk tokenizer
func WithTokenizer(t chunk.Tokenizer) Option {
	return func(b *Bridge) { b.tokenizer = t }
}

// WithMaxTokens sets the chunk budget used when none is passed
func WithMaxTokens(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.maxTokens = n
		}
	}
}

// WithTempDir sets the directory downloads are staged in
func WithTempDir(dir string) Option {
	return func(b *Bridge) { b.tempDir = dir }
}

// WithDiagnostics sets the writer for human-readable progress. It is
// normally stdout, ahead of the frame.
func WithDiagnostics(w io.Writer) Option {
	return func(b *Bridge) { b.out = w }
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// New creates a Bridge around documents, the converter for local inputs
func New(documents converter.DocumentConverter, opts ...Option) *Bridge {
	b := &Bridge{
		documents: documents,
		tokenizer: chunk.NewWordTokenizer(),
		maxTokens: chunk.DefaultMaxTokens,
		out:       io.Discard,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.store == nil {
		b.store = storage.NewArtifactStore(nil, b.logger)
	}
	return b
}

// Invoke runs variant with args and returns the result to emit together
// with its failure Kind. It never panics.
func (b *Bridge) Invoke(ctx context.Context, variant Variant, args []string) (result protocol.Result, kind protocol.Kind) {
	var input string
	if len(args) > 0 {
		input = args[0]
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "bridge invocation panicked",
				"variant", variant,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			result, kind = protocol.Failed(input, fmt.Errorf("internal error: %v", r))
		}
	}()

	inv, err := ParseArgs(variant, args, b.maxTokens)
	if err != nil {
		b.logger.DebugContext(ctx, "invalid arguments", "variant", variant, "args", len(args), "error", err)
		return protocol.Failed(input, err)
	}

	art, err := b.Run(ctx, inv)
	if err != nil {
		b.logger.ErrorContext(ctx, "conversion failed",
			"variant", variant,
			"input", inv.Input,
			"kind", protocol.Classify(err),
			"error", err,
		)
		return protocol.Failed(inv.Input, err)
	}
	return NewResult(inv, art), protocol.KindNone
}

// Run dispatches a parsed invocation to its operation
func (b *Bridge) Run(ctx context.Context, inv Invocation) (Artifact, error) {
	switch inv.Variant {
	case VariantConvert, VariantConvertSimple:
		return b.Convert(ctx, inv.Input, inv.Output)
	case VariantConvertURL:
		return b.ConvertURL(ctx, inv.Input, inv.Output)
	case VariantChunk:
		return b.Chunk(ctx, inv.Input, inv.Output, inv.MaxTokens)
	case VariantTranscribe:
		return b.Transcribe(ctx, inv.Input, inv.Output)
	default:
		return Artifact{}, &protocol.UsageError{Usage: inv.Variant.Usage(), Reason: fmt.Sprintf("Unknown variant %q", string(inv.Variant))}
	}
}

// NewResult builds the success result for inv. Each variant reports only
// the fields it owns.
func NewResult(inv Invocation, art Artifact) protocol.Result {
	r := protocol.Succeeded(inv.Input, art.Markdown)
	switch inv.Variant {
	case VariantConvertSimple:
	case VariantConvertURL:
		r.Title = art.Title
		r.Output = art.Output
	case VariantChunk:
		r.Text = art.Text
		r.Chunks = art.Chunks
		r.Output = art.Output
	default:
		r.Output = art.Output
	}
	return r
}
