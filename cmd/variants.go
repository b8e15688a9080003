package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kfreiman/docbridge/internal/bridge"
	"github.com/kfreiman/docbridge/internal/config"
	"github.com/kfreiman/docbridge/internal/converter"
	"github.com/kfreiman/docbridge/internal/fetch"
	"github.com/kfreiman/docbridge/internal/protocol"
	"github.com/kfreiman/docbridge/internal/storage"
	"github.com/kfreiman/docbridge/internal/transcribe"
)

var variantShort = map[bridge.Variant]string{
	bridge.VariantConvert:       "Convert a local document to Markdown",
	bridge.VariantConvertSimple: "Convert a local document, reporting only the Markdown",
	bridge.VariantConvertURL:    "Convert a web page, remote document or local path to Markdown",
	bridge.VariantChunk:         "Convert a document and write token-bounded chunks",
	bridge.VariantTranscribe:    "Transcribe an audio file to timestamped Markdown",
}

// newVariantCmd builds the subcommand for v. Flag parsing is disabled so
// every argument stays positional and arity problems are reported in the
// result frame rather than by cobra.
func newVariantCmd(v bridge.Variant) *cobra.Command {
	return &cobra.Command{
		Use:                strings.TrimPrefix(v.Usage(), "docbridge "),
		Short:              variantShort[v],
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		Run: func(cmd *cobra.Command, args []string) {
			if wantsHelp(args) {
				_ = cmd.Help()
				return
			}
			os.Exit(runVariant(cmd.Context(), v, args, os.Stdout))
		},
	}
}

// wantsHelp reports whether args ask for usage. Only the leading argument
// counts, so a document literally named --help can still follow a path.
func wantsHelp(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "-h", "--help":
		return true
	}
	return false
}

// runVariant performs one invocation, writes the frame to stdout and
// returns the process exit code
func runVariant(ctx context.Context, v bridge.Variant, args []string, stdout io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var input string
	if len(args) > 0 {
		input = args[0]
	}

	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		result, kind := protocol.Failed(input, err)
		return emit(ctx, logger, stdout, result, kind)
	}

	b, closeFn := newBridge(ctx, cfg, logger, stdout)
	defer closeFn()

	result, kind := b.Invoke(ctx, v, args)
	return emit(ctx, logger, stdout, result, kind)
}

func emit(ctx context.Context, logger *slog.Logger, stdout io.Writer, result protocol.Result, kind protocol.Kind) int {
	if err := protocol.Emit(stdout, result); err != nil {
		logger.ErrorContext(ctx, "failed to write result frame", "error", err)
		return protocol.ExitFailure
	}
	return result.ExitCode(kind)
}

// newBridge assembles the converters and backends described by cfg. The
// returned function releases the browser, if one was started.
func newBridge(ctx context.Context, cfg config.Config, logger *slog.Logger, diagnostics io.Writer) (*bridge.Bridge, func()) {
	var renderer converter.Renderer
	if cfg.BrowserFallback {
		renderer = converter.NewPlaywrightRenderer(float64(cfg.HTTPTimeout.Milliseconds()))
	}
	html := converter.NewHTMLConverter(renderer)

	registry := converter.NewRegistry(
		converter.NewTextConverter(),
		converter.NewPDFConverter(),
		html,
		converter.NewMarkitdownConverter(cfg.MarkitdownPath, converter.ExecRunner{}),
	).WithLogger(logger)

	if cfg.InsecureSkipVerify {
		logger.WarnContext(ctx, "TLS certificate verification disabled for outbound requests")
	}
	fetcher := fetch.New(fetchOptions(cfg)).WithLogger(logger)

	opts := []bridge.Option{
		bridge.WithPageConverter(html),
		bridge.WithFetcher(fetcher),
		bridge.WithStore(storage.NewArtifactStore(storage.NewOSFileSystem(), logger)),
		bridge.WithMaxTokens(cfg.MaxTokens),
		bridge.WithDiagnostics(diagnostics),
		bridge.WithLogger(logger),
	}

	transcriber, err := transcribe.NewBackend(transcribe.Options{
		Backend:       cfg.TranscribeBackend,
		WhisperPath:   cfg.WhisperPath,
		WhisperModel:  cfg.WhisperModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		HTTPClient:    fetch.NewHTTPClient(transcribeOptions(cfg)),
	})
	if err != nil {
		logger.WarnContext(ctx, "transcription disabled", "error", err)
	} else {
		opts = append(opts, bridge.WithTranscriber(transcriber))
	}

	closeFn := func() {
		if err := html.Close(); err != nil {
			logger.DebugContext(ctx, "error closing browser", "error", err)
		}
	}
	return bridge.New(registry, opts...), closeFn
}

func fetchOptions(cfg config.Config) fetch.Options {
	return fetch.Options{
		Timeout:            cfg.HTTPTimeout,
		MaxRedirects:       cfg.MaxRedirects,
		UserAgent:          cfg.UserAgent,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		MaxContentSize:     cfg.MaxContentSize,
	}
}

// transcribeOptions shapes the client for transcription uploads. Audio
// requests run as long as the invocation itself, not a page fetch.
func transcribeOptions(cfg config.Config) fetch.Options {
	opts := fetchOptions(cfg)
	opts.Timeout = cfg.InvocationTimeout
	return opts
}

func init() {
	for _, v := range bridge.Variants {
		rootCmd.AddCommand(newVariantCmd(v))
	}
}
