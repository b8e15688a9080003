package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/kfreiman/docbridge/internal/protocol"
)

// Item is the outcome for one batch input
type Item struct {
	Input  string
	Output string
	Result *protocol.Result
	Err    error
}

// Succeeded reports whether the input converted
func (i Item) Succeeded() bool {
	return i.Err == nil && i.Result != nil && i.Result.Succeeded()
}

// Message returns the failure text for a failed item
func (i Item) Message() string {
	if i.Err != nil {
		return i.Err.Error()
	}
	if i.Result != nil {
		return i.Result.Error
	}
	return ""
}

// BatchResult holds the outcome of a batch run, items in input order
type BatchResult struct {
	RunID     string
	Items     []Item
	Converted int
	Failed    int
}

// Total returns the number of inputs processed
func (r BatchResult) Total() int {
	return r.Converted + r.Failed
}

// HasFailures reports whether any input failed
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// BatchOptions configures Batch
type BatchOptions struct {
	Variant string
	// OutDir receives one artifact per input. Variants that require an
	// output path need it.
	OutDir string
	// MaxTokens is passed to the chunk variant when positive
	MaxTokens int
	Workers   int
	// Progress receives per-file status lines and the summary
	Progress io.Writer
	Logger   *slog.Logger
}

// Batch runs one bridge process per input with at most opts.Workers in
// flight. A failed input never stops the batch; only cancellation does.
func Batch(ctx context.Context, inv Invoker, inputs []string, opts BatchOptions) (BatchResult, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	result := BatchResult{RunID: uuid.NewString(), Items: make([]Item, len(inputs))}
	outputs := outputPaths(inputs, opts.OutDir)
	logger := opts.Logger.With("run_id", result.RunID, "variant", opts.Variant)
	logger.InfoContext(ctx, "batch started", "inputs", len(inputs), "workers", opts.Workers)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, input := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			item := Item{Input: input, Output: outputs[i]}
			item.Result, item.Err = inv.Run(gctx, opts.Variant, batchArgs(opts, item)...)

			mu.Lock()
			defer mu.Unlock()
			result.Items[i] = item
			name := filepath.Base(input)
			if item.Succeeded() {
				result.Converted++
				fmt.Fprintf(opts.Progress, "converted: %s\n", name)
			} else {
				result.Failed++
				fmt.Fprintf(opts.Progress, "failed:    %s (%s)\n", name, firstLine(item.Message()))
				logger.WarnContext(gctx, "batch item failed", "input", input, "error", item.Message())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	fmt.Fprintf(opts.Progress, "\nBatch summary: %d converted, %d failed (total: %d)\n",
		result.Converted, result.Failed, result.Total())
	logger.InfoContext(ctx, "batch finished", "converted", result.Converted, "failed", result.Failed)
	return result, nil
}

func batchArgs(opts BatchOptions, item Item) []string {
	args := []string{item.Input}
	if item.Output != "" {
		args = append(args, item.Output)
	}
	if opts.Variant == "chunk" && opts.MaxTokens > 0 {
		args = append(args, fmt.Sprint(opts.MaxTokens))
	}
	return args
}

// outputPaths names one artifact per input inside outDir, mirroring each
// input's directory below the inputs' common parent. Inputs in the same
// directory that share a stem keep their extension so they do not
// overwrite each other.
func outputPaths(inputs []string, outDir string) []string {
	out := make([]string, len(inputs))
	if outDir == "" {
		return out
	}
	root := commonDir(inputs)
	rel := make([]string, len(inputs))
	seen := make(map[string]int, len(inputs))
	for i, in := range inputs {
		dir, err := filepath.Rel(root, filepath.Dir(in))
		if err != nil {
			dir = "."
		}
		rel[i] = dir
		seen[filepath.Join(dir, stemOf(in))]++
	}
	for i, in := range inputs {
		name := stemOf(in)
		if seen[filepath.Join(rel[i], name)] > 1 {
			name = filepath.Base(in)
		}
		out[i] = filepath.Join(outDir, rel[i], name+".md")
	}
	return out
}

// commonDir returns the deepest directory containing every path
func commonDir(paths []string) string {
	if len(paths) == 0 {
		return "."
	}
	root := filepath.Dir(paths[0])
	for _, p := range paths[1:] {
		dir := filepath.Dir(p)
		for !within(root, dir) {
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}
	return root
}

func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// Walk lists the regular, non-hidden files under root that keep accepts,
// in lexical order
func Walk(fs afero.Fs, root string, keep func(path string) bool) ([]string, error) {
	var files []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() && (keep == nil || keep(path)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}
