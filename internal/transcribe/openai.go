package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kfreiman/docbridge/internal/converter"
	"github.com/kfreiman/docbridge/internal/fetch"
)

// OpenAIBackend calls an OpenAI-compatible audio.transcriptions endpoint
type OpenAIBackend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewOpenAIBackend creates a backend. The client should come from
// fetch.NewHTTPClient so TLS settings stay scoped.
func NewOpenAIBackend(client *http.Client, baseURL, apiKey, model string) *OpenAIBackend {
	if client == nil {
		opts := fetch.DefaultOptions()
		opts.Timeout = 60 * time.Minute
		client = fetch.NewHTTPClient(opts)
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAIBackend{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

type openAIResp struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads audioPath and requests segment timings
func (o *OpenAIBackend) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	if o.apiKey == "" {
		return Transcript{}, &MissingCredentialError{Variable: "OPENAI_API_KEY"}
	}

	// #nosec G304 - audio path is a caller-supplied positional argument
	f, err := os.Open(audioPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Transcript{}, &converter.FileNotFoundError{Path: audioPath}
		}
		return Transcript{}, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, value := range map[string]string{
		"model":                     o.model,
		"response_format":           "verbose_json",
		"timestamp_granularities[]": "segment",
	} {
		if err := mw.WriteField(field, value); err != nil {
			return Transcript{}, err
		}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return Transcript{}, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return Transcript{}, err
	}
	if err := mw.Close(); err != nil {
		return Transcript{}, err
	}

	endpoint := o.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return Transcript{}, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.client.Do(req)
	if err != nil {
		return Transcript{}, &fetch.NetworkError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Transcript{}, &fetch.NetworkError{
			URL:    endpoint,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(b))),
		}
	}

	var or openAIResp
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return Transcript{}, fmt.Errorf("decode transcription response: %w", err)
	}

	tr := Transcript{
		Language: or.Language,
		Duration: time.Duration(or.Duration * float64(time.Second)),
	}
	for _, s := range or.Segments {
		tr.Segments = append(tr.Segments, Segment{StartSec: s.Start, EndSec: s.End, Text: strings.TrimSpace(s.Text)})
	}
	if len(tr.Segments) == 0 && strings.TrimSpace(or.Text) != "" {
		// Servers without segment support still return the full text
		tr.Segments = []Segment{{StartSec: 0, EndSec: or.Duration, Text: strings.TrimSpace(or.Text)}}
	}
	return tr, nil
}
