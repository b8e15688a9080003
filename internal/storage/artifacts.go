// Package storage writes conversion artifacts to disk.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// StorageError represents a storage-related failure
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	msg := fmt.Sprintf("storage error during %s", e.Operation)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path: %s)", e.Path)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ArtifactExt is the extension given to artifacts written into a directory
const ArtifactExt = ".md"

// ContentHash returns the hex-encoded SHA-256 of content
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// ArtifactStore writes Markdown, chunk files and transcripts. Writes carry
// no timestamps, so writing the same content twice leaves the file untouched.
type ArtifactStore struct {
	fs     FileSystem
	logger *slog.Logger
}

// NewArtifactStore creates a store. A nil fs means the OS filesystem.
func NewArtifactStore(fs FileSystem, logger *slog.Logger) *ArtifactStore {
	if fs == nil {
		fs = NewOSFileSystem()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ArtifactStore{fs: fs, logger: logger}
}

// Resolve returns the file an artifact for target ends up in. A target that
// is an existing directory, or ends in a path separator, gets <stem>.md.
func (s *ArtifactStore) Resolve(target, stem string) string {
	if strings.HasSuffix(target, "/") || strings.HasSuffix(target, string(filepath.Separator)) {
		return filepath.Join(target, stem+ArtifactExt)
	}
	if info, err := s.fs.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, stem+ArtifactExt)
	}
	return target
}

// Write stores content at the resolved target and returns the final path
func (s *ArtifactStore) Write(ctx context.Context, target, stem string, content []byte) (string, error) {
	if strings.TrimSpace(target) == "" {
		return "", &StorageError{Operation: "resolve artifact path", Err: fmt.Errorf("empty output path")}
	}
	path := s.Resolve(target, stem)

	if existing, err := s.fs.ReadFile(path); err == nil && bytes.Equal(existing, content) {
		s.logger.DebugContext(ctx, "artifact unchanged", "path", path, "sha256", ContentHash(content))
		return path, nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return "", &StorageError{Operation: "create directory", Path: dir, Err: err}
		}
	}

	tmp := path + ".tmp"
	if err := s.fs.WriteFile(tmp, content, 0o644); err != nil {
		return "", &StorageError{Operation: "write artifact", Path: tmp, Err: err}
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		if rmErr := s.fs.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.DebugContext(ctx, "error removing temp artifact", "path", tmp, "error", rmErr)
		}
		return "", &StorageError{Operation: "rename artifact", Path: path, Err: err}
	}

	s.logger.InfoContext(ctx, "artifact written",
		"path", path,
		"bytes", len(content),
		"sha256", ContentHash(content),
	)
	return path, nil
}
