package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kfreiman/docbridge/internal/chunk"
	"github.com/kfreiman/docbridge/internal/converter"
	"github.com/kfreiman/docbridge/internal/protocol"
	"github.com/kfreiman/docbridge/internal/transcribe"
)

const (
	rule            = "============================================================"
	previewChunks   = 3
	transcriptShown = 800
)

// Convert turns a local file into Markdown and writes it to output when
// one is given
func (b *Bridge) Convert(ctx context.Context, input, output string) (Artifact, error) {
	fmt.Fprintf(b.out, "Converting: %s\n", protocol.BaseName(input))

	doc, err := b.documents.Convert(ctx, input)
	if err != nil {
		return Artifact{}, err
	}
	return b.finish(ctx, input, output, doc)
}

// ConvertURL is Convert for http(s) URLs as well as local paths. The
// artifact carries the document title when one is found.
func (b *Bridge) ConvertURL(ctx context.Context, input, output string) (Artifact, error) {
	fmt.Fprintf(b.out, "Converting: %s\n", input)

	doc, err := b.document(ctx, input)
	if err != nil {
		return Artifact{}, err
	}
	if doc.Title != "" {
		fmt.Fprintf(b.out, "Title: %s\n", doc.Title)
	}
	return b.finish(ctx, input, output, doc)
}

func (b *Bridge) finish(ctx context.Context, input, output string, doc *converter.Document) (Artifact, error) {
	markdown := strings.TrimSpace(doc.Markdown)
	if markdown == "" {
		return Artifact{}, &converter.ConversionError{Path: input, Hint: "converter produced no markdown"}
	}

	art := Artifact{Markdown: markdown, Title: doc.Title}
	if output != "" {
		path, err := b.store.Write(ctx, output, stem(input), []byte(markdown))
		if err != nil {
			return Artifact{}, err
		}
		art.Output = path
		fmt.Fprintf(b.out, "Markdown saved to: %s\n", path)
	}
	return art, nil
}

// document converts input, fetching it first when it is a URL
func (b *Bridge) document(ctx context.Context, input string) (*converter.Document, error) {
	if !converter.IsURL(input) {
		return b.documents.Convert(ctx, input)
	}
	if b.fetcher == nil {
		return nil, &converter.ConversionError{Path: input, Hint: "URL inputs are not enabled"}
	}

	res, err := b.fetcher.Fetch(ctx, input)
	if err != nil {
		return nil, err
	}
	if res.IsHTML() && b.pages != nil {
		doc, err := b.pages.ConvertHTML(ctx, res.Body, res.FinalURL)
		if err != nil {
			return nil, err
		}
		doc.Source = res.FinalURL.String()
		return doc, nil
	}

	dir, err := os.MkdirTemp(b.tempDir, "docbridge-")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			b.logger.DebugContext(ctx, "error removing staging dir", "dir", dir, "error", rmErr)
		}
	}()

	path, err := b.fetcher.Save(ctx, res, dir)
	if err != nil {
		return nil, err
	}
	doc, err := b.documents.Convert(ctx, path)
	if err != nil {
		return nil, err
	}
	doc.Source = res.FinalURL.String()
	return doc, nil
}

// Chunk converts input, splits it into token-bounded chunks and writes the
// chunk file to output. Statistics go to the diagnostic writer.
func (b *Bridge) Chunk(ctx context.Context, input, output string, maxTokens int) (Artifact, error) {
	if maxTokens <= 0 {
		maxTokens = b.maxTokens
	}

	fmt.Fprintf(b.out, "%s\nHybrid Chunking\n%s\n", rule, rule)
	fmt.Fprintf(b.out, "\nInput: %s\nOutput: %s\nMax tokens per chunk: %d\n", input, output, maxTokens)

	fmt.Fprintln(b.out, "   Step 1: Converting document...")
	doc, err := b.document(ctx, input)
	if err != nil {
		return Artifact{}, err
	}

	fmt.Fprintf(b.out, "   Step 2: Creating chunker (max %d tokens)...\n", maxTokens)
	chunker := &chunk.HybridChunker{Tokenizer: b.tokenizer, MaxTokens: maxTokens, MergePeers: true}

	fmt.Fprintln(b.out, "   Step 3: Generating chunks...")
	chunks := chunker.Chunk(doc.Markdown)
	if len(chunks) == 0 {
		return Artifact{}, &converter.ConversionError{Path: input, Hint: "document produced no chunks"}
	}

	stats := chunk.Analyze(chunks, b.tokenizer, maxTokens)
	stats.Report(b.out, chunks, previewChunks)

	text := chunk.Render(chunks)
	path, err := b.store.Write(ctx, output, stem(input), []byte(text))
	if err != nil {
		return Artifact{}, err
	}
	fmt.Fprintf(b.out, "\nChunks saved to: %s\n", path)

	return Artifact{
		Markdown: strings.TrimSpace(doc.Markdown),
		Text:     text,
		Title:    doc.Title,
		Output:   path,
		Chunks:   len(chunks),
	}, nil
}

// Transcribe turns an audio file into a timestamped transcript and writes
// it to output
func (b *Bridge) Transcribe(ctx context.Context, audio, output string) (Artifact, error) {
	fmt.Fprintf(b.out, "Transcribing: %s\n", protocol.BaseName(audio))

	if err := converter.ValidatePath(audio); err != nil {
		return Artifact{}, err
	}
	if info, err := os.Stat(audio); err != nil || info.IsDir() {
		return Artifact{}, &converter.FileNotFoundError{Path: audio}
	}
	if b.transcriber == nil {
		return Artifact{}, errors.New("no transcription backend configured")
	}

	tr, err := b.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return Artifact{}, err
	}
	transcript := transcribe.Markdown(tr)
	if transcript == "" {
		return Artifact{}, &converter.ConversionError{Path: audio, Hint: "transcription produced no text"}
	}

	fmt.Fprintf(b.out, "\n%s\nTRANSCRIPT OUTPUT\n%s\n", rule, rule)
	fmt.Fprintln(b.out, truncateRunes(transcript, transcriptShown))
	if utf8.RuneCountInString(transcript) > transcriptShown {
		fmt.Fprintln(b.out, "\n... (truncated for display)")
	}

	path, err := b.store.Write(ctx, output, stem(audio), []byte(transcript))
	if err != nil {
		return Artifact{}, err
	}
	fmt.Fprintf(b.out, "\nFull transcript saved to: %s\n", path)
	fmt.Fprintf(b.out, "Total length: %d characters\n", utf8.RuneCountInString(transcript))
	if n := transcribe.CountTimestamped(transcript); n > 0 {
		fmt.Fprintf(b.out, "Found %d timestamped segments\n", n)
		fmt.Fprintf(b.out, "Example: %s\n", truncateRunes(transcribe.FirstTimestamped(transcript), 80))
	}

	return Artifact{Markdown: transcript, Output: path}, nil
}

// stem names the artifact written into a directory target
func stem(input string) string {
	name := protocol.BaseName(input)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." {
		return "document"
	}
	return name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
