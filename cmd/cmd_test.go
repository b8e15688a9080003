package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfreiman/docbridge/internal/bridge"
	"github.com/kfreiman/docbridge/internal/config"
	"github.com/kfreiman/docbridge/internal/protocol"
)

func TestRunVariant_Convert(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(input, []byte("# Notes\n\nSome text.\n"), 0o644))
	outDir := filepath.Join(dir, "out") + string(filepath.Separator)

	var stdout bytes.Buffer
	code := runVariant(context.Background(), bridge.VariantConvert, []string{input, outDir}, &stdout)
	assert.Equal(t, protocol.ExitOK, code)

	assert.True(t, strings.HasPrefix(stdout.String(), "Converting: notes.md\n"))
	result, err := protocol.Extract(stdout.Bytes())
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusSuccess, result.Status)
	assert.Equal(t, "notes.md", result.File)
	assert.Contains(t, result.Markdown, "Some text.")
	assert.Equal(t, filepath.Join(dir, "out", "notes.md"), result.Output)
	assert.FileExists(t, result.Output)
}

func TestRunVariant_Failures(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.pdf")

	tests := []struct {
		name     string
		variant  bridge.Variant
		args     []string
		wantCode int
		wantErr  string
	}{
		{name: "no arguments", variant: bridge.VariantConvert, wantCode: protocol.ExitUsage, wantErr: "No file path provided"},
		{name: "chunk without output", variant: bridge.VariantChunk, args: []string{"guide.md"}, wantCode: protocol.ExitUsage, wantErr: "No output path provided"},
		{name: "missing file", variant: bridge.VariantConvert, args: []string{missing}, wantCode: protocol.ExitFailure, wantErr: "File not found: " + missing},
		{name: "unknown variant", variant: bridge.Variant("ocr"), args: []string{"a.png"}, wantCode: protocol.ExitUsage, wantErr: "Unknown variant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			code := runVariant(context.Background(), tt.variant, tt.args, &stdout)
			assert.Equal(t, tt.wantCode, code)

			result, err := protocol.Extract(stdout.Bytes())
			require.NoError(t, err)
			assert.Equal(t, protocol.StatusFailed, result.Status)
			assert.Contains(t, result.Error, tt.wantErr)
		})
	}
}

func TestRunVariant_InvalidConfig(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")

	var stdout bytes.Buffer
	code := runVariant(context.Background(), bridge.VariantConvert, []string{"a.md"}, &stdout)
	assert.Equal(t, protocol.ExitFailure, code)

	result, err := protocol.Extract(stdout.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "a.md", result.File)
	assert.Contains(t, result.Error, "load config")
}

func TestCreateLogger(t *testing.T) {
	logger := createLogger(config.Config{LogFormat: "json", LogLevel: "warn"})
	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, -4))
	assert.True(t, logger.Handler().Enabled(ctx, 8))
}

func TestTranscribeOptions(t *testing.T) {
	cfg := config.Config{
		HTTPTimeout:        30 * time.Second,
		InvocationTimeout:  10 * time.Minute,
		MaxRedirects:       3,
		UserAgent:          "docbridge-test",
		InsecureSkipVerify: true,
		MaxContentSize:     1 << 20,
	}

	fetchOpts := fetchOptions(cfg)
	assert.Equal(t, 30*time.Second, fetchOpts.Timeout)

	opts := transcribeOptions(cfg)
	assert.Equal(t, 10*time.Minute, opts.Timeout)
	assert.Equal(t, 3, opts.MaxRedirects)
	assert.Equal(t, "docbridge-test", opts.UserAgent)
	assert.True(t, opts.InsecureSkipVerify)
	assert.Equal(t, int64(1<<20), opts.MaxContentSize)
}

func TestWantsHelp(t *testing.T) {
	assert.True(t, wantsHelp([]string{"--help"}))
	assert.True(t, wantsHelp([]string{"-h"}))
	assert.False(t, wantsHelp(nil))
	assert.False(t, wantsHelp([]string{"report.pdf", "--help"}))
	assert.False(t, wantsHelp([]string{"-help"}))
}

func TestVariantHelp(t *testing.T) {
	for _, v := range bridge.Variants {
		t.Run(string(v), func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs([]string{string(v), "--help"})
			t.Cleanup(func() {
				rootCmd.SetOut(nil)
				rootCmd.SetArgs(nil)
			})

			require.NoError(t, rootCmd.Execute())
			assert.Contains(t, out.String(), "Usage:")
			assert.Contains(t, out.String(), variantShort[v])
			assert.NotContains(t, out.String(), protocol.StartMarker)
		})
	}
}

func TestVariantCommands(t *testing.T) {
	for _, v := range bridge.Variants {
		cmd, _, err := rootCmd.Find([]string{string(v)})
		require.NoError(t, err, v)
		assert.Equal(t, string(v), cmd.Name())
		assert.True(t, cmd.DisableFlagParsing)
	}

	_, _, err := rootCmd.Find([]string{"batch"})
	assert.NoError(t, err)
	_, _, err = rootCmd.Find([]string{"mcp-server"})
	assert.NoError(t, err)
}
