package converter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Registry routes an input to the first backend that supports it
type Registry struct {
	converters []DocumentConverter
	logger     *slog.Logger
}

// NewRegistry creates a Registry over converters, tried in order
func NewRegistry(converters ...DocumentConverter) *Registry {
	return &Registry{
		converters: converters,
		logger:     slog.Default(),
	}
}

// WithLogger sets a custom logger for the registry
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// IsAvailable reports whether at least one backend is available
func (r *Registry) IsAvailable() bool {
	for _, c := range r.converters {
		if c.IsAvailable() {
			return true
		}
	}
	return false
}

// Supports checks if any backend supports the input
func (r *Registry) Supports(input string) bool {
	return r.find(input) != nil
}

// Convert validates the local path and delegates to the matching backend
func (r *Registry) Convert(ctx context.Context, input string) (*Document, error) {
	if err := ValidatePath(input); err != nil {
		return nil, err
	}

	resolvedPath, err := filepath.Abs(input)
	if err != nil {
		return nil, &FileNotFoundError{Path: input}
	}
	stat, err := os.Stat(resolvedPath)
	if err != nil || stat.IsDir() {
		return nil, &FileNotFoundError{Path: input}
	}

	c := r.find(resolvedPath)
	if c == nil {
		return nil, &UnsupportedFormatError{Path: input, Ext: extOf(input)}
	}

	r.logger.DebugContext(ctx, "converting document",
		"path", resolvedPath,
		"converter", converterName(c),
	)
	return c.Convert(ctx, resolvedPath)
}

func (r *Registry) find(input string) DocumentConverter {
	for _, c := range r.converters {
		if c.Supports(input) {
			return c
		}
	}
	return nil
}

// ValidatePath rejects paths no filesystem call can represent. Relative
// paths, including ones with ".." segments, are resolved as given.
func ValidatePath(path string) error {
	if strings.Contains(path, "\x00") {
		return &PathValidationError{Path: path, Reason: "null bytes not allowed"}
	}
	return nil
}

// ValidateContainedPath is ValidatePath plus a ban on ".." segments, for
// paths that arrive from remote callers rather than the command line
func ValidateContainedPath(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return &PathValidationError{Path: path, Reason: "path traversal not allowed"}
		}
	}
	return nil
}

func converterName(c DocumentConverter) string {
	switch c.(type) {
	case *TextConverter:
		return "text"
	case *PDFConverter:
		return "pdf"
	case *HTMLConverter:
		return "html"
	case *MarkitdownConverter:
		return "markitdown"
	default:
		return "custom"
	}
}
