// Package cmd wires the docbridge command line: one subcommand per bridge
// variant plus the batch and mcp-server front ends.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docbridge",
	Short: "Convert documents, web pages and audio to Markdown",
	Long: `docbridge converts documents, web pages and audio to Markdown.

Each variant subcommand handles one input and prints a single result frame
on stdout between JSON_RESULT_START and JSON_RESULT_END lines. Diagnostics
may precede the frame; logs go to stderr.

Exit codes: 0 success, 1 conversion failure, 2 usage error.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
