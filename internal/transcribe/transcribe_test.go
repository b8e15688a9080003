package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfreiman/docbridge/internal/converter"
	"github.com/kfreiman/docbridge/internal/fetch"
)

func TestMarkdown(t *testing.T) {
	tr := Transcript{Segments: []Segment{
		{StartSec: 0, EndSec: 4.2, Text: " Hello there. "},
		{StartSec: 4.2, EndSec: 9, Text: ""},
		{StartSec: 9, EndSec: 12.5, Text: "General Kenobi."},
	}}

	md := Markdown(tr)
	assert.Equal(t, "[time: 0.00-4.20]  Hello there.\n\n[time: 9.00-12.50]  General Kenobi.", md)
	assert.Equal(t, 2, CountTimestamped(md))
	assert.Equal(t, "[time: 0.00-4.20]  Hello there.", FirstTimestamped(md))
}

func TestCountTimestamped_NoSegments(t *testing.T) {
	assert.Zero(t, CountTimestamped(""))
	assert.Zero(t, CountTimestamped("plain text\nwithout stamps"))
	assert.Empty(t, FirstTimestamped("plain"))
}

type whisperRunner struct {
	fs     afero.Fs
	output string
	stderr string
	err    error
	args   []string
}

func (r *whisperRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.args = append([]string{name}, args...)
	if r.err != nil {
		return nil, []byte(r.stderr), r.err
	}
	var outDir string
	for i, a := range args {
		if a == "--output_dir" {
			outDir = args[i+1]
		}
	}
	stem := "meeting"
	if r.output != "" {
		if err := afero.WriteFile(r.fs, filepath.Join(outDir, stem+".json"), []byte(r.output), 0o644); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func TestWhisperCLIBackend_Transcribe(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/audio/meeting.mp3", []byte("ID3"), 0o644))

	out, err := json.Marshal(map[string]any{
		"text":     "Hello there. General Kenobi.",
		"language": "en",
		"segments": []map[string]any{
			{"start": 0.0, "end": 2.5, "text": " Hello there."},
			{"start": 2.5, "end": 5.0, "text": " General Kenobi."},
		},
	})
	require.NoError(t, err)

	runner := &whisperRunner{fs: fs, output: string(out)}
	backend := NewWhisperCLIBackend("/usr/bin/whisper", "/usr/bin/ffmpeg", "", runner).WithFs(fs)

	tr, err := backend.Transcribe(context.Background(), "/audio/meeting.mp3")
	require.NoError(t, err)

	assert.Equal(t, "en", tr.Language)
	assert.Equal(t, 5*time.Second, tr.Duration)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, Segment{StartSec: 0, EndSec: 2.5, Text: "Hello there."}, tr.Segments[0])

	assert.Equal(t, "/usr/bin/whisper", runner.args[0])
	assert.Equal(t, "/audio/meeting.mp3", runner.args[1])
	assert.Contains(t, runner.args, "turbo")
	assert.Contains(t, runner.args, "json")
}

func TestWhisperCLIBackend_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/audio/meeting.mp3", []byte("ID3"), 0o644))

	t.Run("missing audio", func(t *testing.T) {
		backend := NewWhisperCLIBackend("/usr/bin/whisper", "/usr/bin/ffmpeg", "base", &whisperRunner{fs: fs}).WithFs(fs)
		_, err := backend.Transcribe(context.Background(), "/audio/nope.mp3")

		var notFound *converter.FileNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("missing ffmpeg", func(t *testing.T) {
		backend := &WhisperCLIBackend{whisperPath: "/usr/bin/whisper", runner: &whisperRunner{fs: fs}, fs: fs}
		_, err := backend.Transcribe(context.Background(), "/audio/meeting.mp3")

		var binErr *converter.BinaryNotFoundError
		require.ErrorAs(t, err, &binErr)
		assert.Equal(t, "ffmpeg", binErr.MissingDependency())
	})

	t.Run("missing whisper", func(t *testing.T) {
		backend := &WhisperCLIBackend{ffmpegPath: "/usr/bin/ffmpeg", runner: &whisperRunner{fs: fs}, fs: fs}
		_, err := backend.Transcribe(context.Background(), "/audio/meeting.mp3")

		var binErr *converter.BinaryNotFoundError
		require.ErrorAs(t, err, &binErr)
		assert.Equal(t, "whisper", binErr.MissingDependency())
	})

	t.Run("process failure", func(t *testing.T) {
		runner := &whisperRunner{fs: fs, err: errors.New("exit status 1"), stderr: "RuntimeError: CUDA out of memory"}
		backend := NewWhisperCLIBackend("/usr/bin/whisper", "/usr/bin/ffmpeg", "base", runner).WithFs(fs)
		_, err := backend.Transcribe(context.Background(), "/audio/meeting.mp3")

		var convErr *converter.ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.Contains(t, convErr.Stderr, "CUDA")
	})

	t.Run("no output file", func(t *testing.T) {
		backend := NewWhisperCLIBackend("/usr/bin/whisper", "/usr/bin/ffmpeg", "base", &whisperRunner{fs: fs}).WithFs(fs)
		_, err := backend.Transcribe(context.Background(), "/audio/meeting.mp3")
		assert.ErrorContains(t, err, "no transcript")
	})
}

func TestOpenAIBackend_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "clip.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"hi all","language":"english","duration":3.5,"segments":[{"start":0,"end":3.5,"text":" hi all"}]}`)
	}))
	defer server.Close()

	audio := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0o644))

	backend := NewOpenAIBackend(fetch.NewHTTPClient(fetch.DefaultOptions()), server.URL+"/v1/", "sk-test", "")
	tr, err := backend.Transcribe(context.Background(), audio)
	require.NoError(t, err)

	assert.Equal(t, "english", tr.Language)
	assert.Equal(t, 3500*time.Millisecond, tr.Duration)
	assert.Equal(t, []Segment{{StartSec: 0, EndSec: 3.5, Text: "hi all"}}, tr.Segments)
}

func TestOpenAIBackend_TextOnlyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"text":"just text","duration":2}`)
	}))
	defer server.Close()

	audio := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0o644))

	tr, err := NewOpenAIBackend(nil, server.URL, "sk-test", "").Transcribe(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, []Segment{{StartSec: 0, EndSec: 2, Text: "just text"}}, tr.Segments)
}

func TestOpenAIBackend_Errors(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0o644))

	t.Run("missing api key", func(t *testing.T) {
		_, err := NewOpenAIBackend(nil, "", "", "").Transcribe(context.Background(), audio)

		var credErr *MissingCredentialError
		require.ErrorAs(t, err, &credErr)
		assert.Equal(t, "OPENAI_API_KEY", credErr.MissingDependency())
	})

	t.Run("missing audio", func(t *testing.T) {
		_, err := NewOpenAIBackend(nil, "", "sk", "").Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.wav"))

		var notFound *converter.FileNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid file format"}`, http.StatusBadRequest)
		}))
		defer server.Close()

		_, err := NewOpenAIBackend(nil, server.URL, "sk", "").Transcribe(context.Background(), audio)

		var netErr *fetch.NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Equal(t, http.StatusBadRequest, netErr.Status)
		assert.Contains(t, err.Error(), "invalid file format")
	})
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(Options{Backend: BackendWhisper})
	require.NoError(t, err)
	assert.IsType(t, &WhisperCLIBackend{}, b)

	b, err = NewBackend(Options{Backend: BackendOpenAI, OpenAIAPIKey: "sk"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIBackend{}, b)

	_, err = NewBackend(Options{Backend: "vosk"})
	assert.Error(t, err)
}

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile("/a/talk.MP3"))
	assert.True(t, IsAudioFile("clip.wav"))
	assert.False(t, IsAudioFile("notes.md"))
	assert.False(t, IsAudioFile("noext"))
}
