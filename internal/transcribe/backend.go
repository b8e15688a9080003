// Package transcribe turns audio files into timestamped transcripts.
package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kfreiman/docbridge/internal/converter"
)

// Segment represents a portion of transcribed audio.
type Segment struct {
	StartSec float64
	EndSec   float64
	Text     string
}

// Transcript bundles the segments.
type Transcript struct {
	Language string
	Segments []Segment
	Duration time.Duration
}

// Backend is a pluggable transcription backend.
type Backend interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}

// Backend names accepted by NewBackend
const (
	BackendWhisper = "whisper"
	BackendOpenAI  = "openai"
)

// Options selects and configures a backend
type Options struct {
	Backend string

	WhisperPath  string
	WhisperModel string
	FFmpegPath   string
	Runner       converter.CommandRunner

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	HTTPClient    *http.Client
}

// NewBackend builds the backend named in opts
func NewBackend(opts Options) (Backend, error) {
	switch opts.Backend {
	case "", BackendWhisper:
		return NewWhisperCLIBackend(opts.WhisperPath, opts.FFmpegPath, opts.WhisperModel, opts.Runner), nil
	case BackendOpenAI:
		return NewOpenAIBackend(opts.HTTPClient, opts.OpenAIBaseURL, opts.OpenAIAPIKey, opts.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown transcription backend %q (want %s or %s)", opts.Backend, BackendWhisper, BackendOpenAI)
	}
}

// MissingCredentialError is returned when a hosted backend has no API key
type MissingCredentialError struct {
	Variable string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s is not set", e.Variable)
}

// MissingDependency reports the missing environment variable.
func (e *MissingCredentialError) MissingDependency() string {
	return e.Variable
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".webm": true,
	".mp4":  true,
}

// IsAudioFile reports whether path has an extension whisper can decode
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}
