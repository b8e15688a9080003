package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kfreiman/docbridge/internal/bridge"
	"github.com/kfreiman/docbridge/internal/client"
	"github.com/kfreiman/docbridge/internal/converter"
	"github.com/kfreiman/docbridge/internal/transcribe"
)

var batchFlags struct {
	workers   int
	maxTokens int
	noCache   bool
}

// batchCmd converts every matching file under a directory, one bridge
// process per file
var batchCmd = &cobra.Command{
	Use:   "batch <variant> <dir> <outdir>",
	Short: "Run a variant over every supported file in a directory",
	Long: `Run a variant over every supported file under <dir>, writing one
artifact per input into <outdir>. Each file is handled by its own docbridge
process; a failure never stops the rest of the batch.

Audio files are picked up by the transcribe variant, documents by the others.
Hidden files and directories are skipped.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		variant := bridge.Variant(args[0])
		if !isKnownVariant(variant) {
			return fmt.Errorf("unknown variant %q", args[0])
		}
		if variant == bridge.VariantConvertURL {
			return errors.New("batch does not fetch URLs; use convert over local files")
		}

		cfg, logger, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("workers") {
			cfg = cfg.WithWorkers(batchFlags.workers)
		}

		keep := func(path string) bool {
			if variant == bridge.VariantTranscribe {
				return transcribe.IsAudioFile(path)
			}
			return converter.IsSupportedExtension(filepath.Ext(path))
		}
		inputs, err := client.Walk(afero.NewOsFs(), args[1], keep)
		if err != nil {
			return fmt.Errorf("scan %s: %w", args[1], err)
		}
		if len(inputs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No supported files found in %s\n", args[1])
			return nil
		}

		runner, err := client.NewRunner("", cfg.InvocationTimeout)
		if err != nil {
			return err
		}
		var inv client.Invoker = runner.WithLogger(logger)
		if !batchFlags.noCache {
			inv = client.NewCachedInvoker(inv, client.NewCache()).WithLogger(logger)
		}

		result, err := client.Batch(ctx, inv, inputs, client.BatchOptions{
			Variant:   string(variant),
			OutDir:    args[2],
			MaxTokens: batchFlags.maxTokens,
			Workers:   cfg.Workers,
			Progress:  cmd.OutOrStdout(),
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		if result.HasFailures() {
			return fmt.Errorf("%d of %d inputs failed", result.Failed, result.Total())
		}
		return nil
	},
}

func isKnownVariant(v bridge.Variant) bool {
	for _, known := range bridge.Variants {
		if v == known {
			return true
		}
	}
	return false
}

func init() {
	batchCmd.Flags().IntVarP(&batchFlags.workers, "workers", "w", 4, "concurrent bridge processes (default from DOCBRIDGE_WORKERS)")
	batchCmd.Flags().IntVar(&batchFlags.maxTokens, "max-tokens", 0, "token budget per chunk for the chunk variant")
	batchCmd.Flags().BoolVar(&batchFlags.noCache, "no-cache", false, "always spawn a process, even for repeated inputs")
	rootCmd.AddCommand(batchCmd)
}
