package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kfreiman/docbridge/internal/client"
	"github.com/kfreiman/docbridge/internal/mcp"
)

// mcpServerCmd represents the mcp-server command
var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start an MCP server",
	Long: `Start an MCP server over streamable HTTP. Every tool call runs one
docbridge process, so a crashing converter never takes the server down.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, logger, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		runner, err := client.NewRunner("", cfg.InvocationTimeout)
		if err != nil {
			logger.ErrorContext(ctx, "failed to locate docbridge executable", "error", err)
			return err
		}
		invoker := client.NewLimitedInvoker(runner.WithLogger(logger), cfg.Workers)

		logger.InfoContext(ctx, "mcp server starting",
			"port", cfg.Port,
			"workers", cfg.Workers,
			"invocation_timeout", cfg.InvocationTimeout,
			"executable", runner.Executable,
		)

		srv, err := mcp.NewServer(invoker, mcp.Options{Port: cfg.Port, Executable: runner.Executable}, logger)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create MCP server", "error", err)
			return err
		}

		if err := srv.ListenAndServe(ctx); err != nil {
			logger.ErrorContext(ctx, "MCP server stopped", "error", err)
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpServerCmd)
}
