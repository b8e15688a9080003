// Package protocol defines the line-oriented contract between a calling
// process and one bridge invocation.
//
// A bridge writes exactly one frame to standard output:
//
//	JSON_RESULT_START
//	{"status":"success","markdown":"...","file":"..."}
//	JSON_RESULT_END
//
// Anything printed before or after the frame is diagnostic text and must be
// ignored by the caller.
package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	// StartMarker opens the frame on a line of its own.
	StartMarker = "JSON_RESULT_START"
	// EndMarker closes the frame on a line of its own.
	EndMarker = "JSON_RESULT_END"
)

// Status is the outcome of an invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the single structured outcome of one invocation.
type Result struct {
	Status   Status `json:"status"`
	Markdown string `json:"markdown"`
	Text     string `json:"text,omitempty"`
	File     string `json:"file"`
	Title    string `json:"title,omitempty"`
	Output   string `json:"output,omitempty"`
	Chunks   int    `json:"chunks,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Succeeded reports whether the result carries a successful outcome.
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Validate checks the status/error pairing every frame must satisfy.
func (r Result) Validate() error {
	switch r.Status {
	case StatusSuccess:
		if r.Error != "" {
			return &FrameError{Reason: "success result carries an error"}
		}
	case StatusFailed:
		if strings.TrimSpace(r.Error) == "" {
			return &FrameError{Reason: "failed result has no error message"}
		}
	default:
		return &FrameError{Reason: fmt.Sprintf("unknown status %q", r.Status)}
	}
	return nil
}

// ExitCode maps the result to the process exit code.
func (r Result) ExitCode(kind Kind) int {
	if r.Succeeded() {
		return ExitOK
	}
	if kind == KindUsage {
		return ExitUsage
	}
	return ExitFailure
}

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Encode renders the frame for r. The JSON document is always a single line.
func Encode(r Result) ([]byte, error) {
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	var frame bytes.Buffer
	frame.Grow(len(StartMarker) + len(EndMarker) + payload.Len() + 2)
	frame.WriteString(StartMarker)
	frame.WriteByte('\n')
	frame.Write(payload.Bytes()) // Encoder terminates with '\n'
	frame.WriteString(EndMarker)
	frame.WriteByte('\n')
	return frame.Bytes(), nil
}

// Emit writes the frame for r to w in a single Write call so no other output
// on the same stream can land between the markers.
func Emit(w io.Writer, r Result) error {
	frame, err := Encode(r)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Extract locates the first frame in output and decodes its payload.
// Lines outside the markers are ignored.
func Extract(output []byte) (*Result, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), len(output)+1)

	var (
		inFrame bool
		payload strings.Builder
	)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if !inFrame {
			if line == StartMarker {
				inFrame = true
			}
			continue
		}
		if line == EndMarker {
			return decodePayload(payload.String())
		}
		payload.WriteString(line)
		payload.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, &FrameError{Reason: "read output", Err: err}
	}

	if inFrame {
		return nil, &FrameError{Reason: "missing " + EndMarker}
	}
	return nil, &FrameError{Reason: "missing " + StartMarker}
}

func decodePayload(payload string) (*Result, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, &FrameError{Reason: "empty frame"}
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	var r Result
	if err := dec.Decode(&r); err != nil {
		return nil, &FrameError{Reason: "decode payload", Err: err}
	}
	if dec.More() {
		return nil, &FrameError{Reason: "frame holds more than one JSON document"}
	}
	return &r, nil
}

// FrameError reports output that does not honor the framing contract.
type FrameError struct {
	Reason string
	Err    error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid bridge frame: %s: %v", e.Reason, e.Err)
	}
	return "invalid bridge frame: " + e.Reason
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
