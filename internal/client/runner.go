// Package client drives bridge processes from the calling side: it spawns
// one process per request, extracts the framed result and fans batches out
// over a bounded worker pool.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kfreiman/docbridge/internal/protocol"
)

// tailSize bounds how much process output an InvocationError carries
const tailSize = 2048

// Invoker runs one bridge request and returns its framed result
type Invoker interface {
	Run(ctx context.Context, variant string, args ...string) (*protocol.Result, error)
}

// Executor starts a process and returns its interleaved stdout and stderr
type Executor interface {
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec
type osExecutor struct{}

func (osExecutor) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 - the executable is our own binary and args are positional inputs
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// InvocationError reports a bridge process whose output could not be used
type InvocationError struct {
	Variant string
	Args    []string
	ExitErr error
	Tail    string
	Err     error
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("bridge %s failed", e.Variant)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.ExitErr != nil {
		msg += fmt.Sprintf(" (process: %v)", e.ExitErr)
	}
	if e.Tail != "" {
		msg += "\noutput tail:\n" + e.Tail
	}
	return msg
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Runner spawns one bridge process per request
type Runner struct {
	Executable string
	Timeout    time.Duration
	exec       Executor
	logger     *slog.Logger
}

// NewRunner creates a Runner. An empty executable means the running binary.
func NewRunner(executable string, timeout time.Duration) (*Runner, error) {
	if executable == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate bridge executable: %w", err)
		}
		executable = self
	}
	return &Runner{
		Executable: executable,
		Timeout:    timeout,
		exec:       osExecutor{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// WithExecutor replaces the process executor
func (r *Runner) WithExecutor(e Executor) *Runner {
	r.exec = e
	return r
}

// WithLogger sets a custom logger
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	r.logger = logger
	return r
}

// Run executes `<executable> <variant> <args...>`, extracts the frame and
// validates it. A process that exits non-zero after emitting a valid failed
// frame returns that result and no error.
func (r *Runner) Run(ctx context.Context, variant string, args ...string) (*protocol.Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	argv := append([]string{variant}, args...)
	output, runErr := r.exec.CombinedOutput(ctx, r.Executable, argv...)

	r.logger.DebugContext(ctx, "bridge process finished",
		"variant", variant,
		"args", args,
		"duration", time.Since(start),
		"output_bytes", len(output),
		"error", runErr,
	)

	result, err := protocol.Extract(output)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, &InvocationError{Variant: variant, Args: args, ExitErr: runErr, Tail: tail(output), Err: err}
	}
	if err := result.Validate(); err != nil {
		return nil, &InvocationError{Variant: variant, Args: args, ExitErr: runErr, Tail: tail(output), Err: err}
	}
	if runErr != nil && result.Succeeded() {
		return nil, &InvocationError{
			Variant: variant,
			Args:    args,
			ExitErr: runErr,
			Err:     errors.New("process exited with an error after reporting success"),
		}
	}
	return result, nil
}

func tail(output []byte) string {
	s := strings.TrimSpace(string(output))
	if len(s) <= tailSize {
		return s
	}
	return "..." + s[len(s)-tailSize:]
}
