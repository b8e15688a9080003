package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/kfreiman/docbridge/internal/converter"
)

const (
	whisperInstallHint = "pip install -U openai-whisper"
	ffmpegInstallHint  = "apt-get install ffmpeg (Debian/Ubuntu), brew install ffmpeg (macOS) or choco install ffmpeg (Windows)"
)

// WhisperCLIBackend runs the openai-whisper command line tool. whisper
// decodes audio through ffmpeg, so both must be installed.
type WhisperCLIBackend struct {
	whisperPath string
	ffmpegPath  string
	model       string
	runner      converter.CommandRunner
	fs          afero.Fs
	logger      *slog.Logger
}

// NewWhisperCLIBackend creates a backend. Empty paths are looked up in PATH.
func NewWhisperCLIBackend(whisperPath, ffmpegPath, model string, runner converter.CommandRunner) *WhisperCLIBackend {
	if whisperPath == "" {
		whisperPath = converter.FindBinary("whisper")
	}
	if ffmpegPath == "" {
		ffmpegPath = converter.FindBinary("ffmpeg")
	}
	if model == "" {
		model = "turbo"
	}
	if runner == nil {
		runner = converter.ExecRunner{}
	}
	return &WhisperCLIBackend{
		whisperPath: whisperPath,
		ffmpegPath:  ffmpegPath,
		model:       model,
		runner:      runner,
		fs:          afero.NewOsFs(),
		logger:      slog.Default(),
	}
}

// WithFs sets the filesystem used for the audio check and whisper output
func (w *WhisperCLIBackend) WithFs(fs afero.Fs) *WhisperCLIBackend {
	w.fs = fs
	return w
}

type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe runs whisper on audioPath and parses its JSON output
func (w *WhisperCLIBackend) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	if stat, err := w.fs.Stat(audioPath); err != nil || stat.IsDir() {
		return Transcript{}, &converter.FileNotFoundError{Path: audioPath}
	}
	if w.ffmpegPath == "" {
		return Transcript{}, &converter.BinaryNotFoundError{Binary: "ffmpeg", Hint: ffmpegInstallHint}
	}
	if w.whisperPath == "" {
		return Transcript{}, &converter.BinaryNotFoundError{Binary: "whisper", Hint: whisperInstallHint}
	}

	outDir, err := afero.TempDir(w.fs, "", "docbridge-whisper-")
	if err != nil {
		return Transcript{}, fmt.Errorf("create whisper output dir: %w", err)
	}
	defer func() {
		if rmErr := w.fs.RemoveAll(outDir); rmErr != nil {
			w.logger.Debug("error removing whisper output dir", "dir", outDir, "error", rmErr)
		}
	}()

	w.logger.DebugContext(ctx, "running whisper", "audio", audioPath, "model", w.model)
	_, stderr, err := w.runner.Run(ctx, w.whisperPath, audioPath,
		"--model", w.model,
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Transcript{}, &converter.ConversionError{
				OriginalError: ctx.Err(),
				Stderr:        string(stderr),
				Path:          audioPath,
				Hint:          "transcription timed out",
			}
		}
		if strings.Contains(string(stderr), "ffmpeg") && strings.Contains(string(stderr), "No such file") {
			return Transcript{}, &converter.BinaryNotFoundError{Binary: "ffmpeg", Hint: ffmpegInstallHint}
		}
		return Transcript{}, &converter.ConversionError{
			OriginalError: err,
			Stderr:        string(stderr),
			Path:          audioPath,
			Hint:          "whisper transcription failed",
		}
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := afero.ReadFile(w.fs, filepath.Join(outDir, stem+".json"))
	if err != nil {
		return Transcript{}, &converter.ConversionError{
			OriginalError: err,
			Stderr:        string(stderr),
			Path:          audioPath,
			Hint:          "whisper produced no transcript",
		}
	}

	var parsed whisperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Transcript{}, &converter.ConversionError{
			OriginalError: err,
			Path:          audioPath,
			Hint:          "failed to parse whisper output",
		}
	}

	tr := Transcript{Language: parsed.Language}
	for _, s := range parsed.Segments {
		tr.Segments = append(tr.Segments, Segment{StartSec: s.Start, EndSec: s.End, Text: strings.TrimSpace(s.Text)})
	}
	if len(tr.Segments) == 0 && strings.TrimSpace(parsed.Text) != "" {
		tr.Segments = []Segment{{Text: strings.TrimSpace(parsed.Text)}}
	}
	if n := len(tr.Segments); n > 0 {
		tr.Duration = time.Duration(tr.Segments[n-1].EndSec * float64(time.Second))
	}
	return tr, nil
}
