package converter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner runs an external command and returns its captured output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run executes name with args. Output is captured, never inherited.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	// #nosec G204 - binary path comes from configuration or PATH lookup
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

const markitdownInstallHint = "pip install 'markitdown[all]' or visit https://github.com/microsoft/markitdown"

// MarkitdownConverter implements DocumentConverter using the markitdown binary
type MarkitdownConverter struct {
	binaryPath string
	runner     CommandRunner
}

// NewMarkitdownConverter creates a new MarkitdownConverter. An empty
// binaryPath is looked up in PATH and common install locations. A missing
// binary is not an error until Convert is called.
func NewMarkitdownConverter(binaryPath string, runner CommandRunner) *MarkitdownConverter {
	if binaryPath == "" {
		binaryPath = FindBinary("markitdown")
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &MarkitdownConverter{
		binaryPath: binaryPath,
		runner:     runner,
	}
}

// IsAvailable checks if the markitdown binary is available
func (c *MarkitdownConverter) IsAvailable() bool {
	return c.binaryPath != ""
}

// Supports checks if this converter supports the given input
func (c *MarkitdownConverter) Supports(input string) bool {
	return !IsURL(input) && markitdownExtensions[extOf(input)]
}

// Convert runs markitdown on a local file
func (c *MarkitdownConverter) Convert(ctx context.Context, input string) (*Document, error) {
	if !c.IsAvailable() {
		return nil, &BinaryNotFoundError{Binary: "markitdown", Hint: markitdownInstallHint}
	}
	if _, err := os.Stat(input); err != nil {
		return nil, &FileNotFoundError{Path: input}
	}

	stdout, stderr, err := c.runner.Run(ctx, c.binaryPath, input)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, &BinaryNotFoundError{Binary: "markitdown", Hint: markitdownInstallHint}
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &ConversionError{
				OriginalError: ctx.Err(),
				Stderr:        string(stderr),
				Path:          input,
				Hint:          "conversion timed out",
			}
		}
		return nil, &ConversionError{
			OriginalError: err,
			Stderr:        string(stderr),
			Path:          input,
			Hint:          "markitdown conversion failed",
		}
	}

	markdown := strings.TrimSpace(string(stdout))
	if markdown == "" {
		return nil, &ConversionError{
			Stderr: string(stderr),
			Path:   input,
			Hint:   "markitdown produced no output",
		}
	}
	return &Document{
		Markdown: markdown,
		Title:    firstHeading(markdown),
		Source:   input,
	}, nil
}

// FindBinary locates name in PATH or common installation paths. It returns
// an empty string when the binary is not installed.
func FindBinary(name string) string {
	if path, err := exec.LookPath(name); err == nil {
		return path
	}

	for _, dir := range []string{
		"/usr/local/bin",
		"/usr/bin",
		"/opt/homebrew/bin",
		"/opt/bin",
	} {
		path := dir + "/" + name
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
