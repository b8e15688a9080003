package client

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/kfreiman/docbridge/internal/protocol"
)

// LimitedInvoker caps how many bridge processes run at once across
// independent callers, such as concurrent MCP tool calls
type LimitedInvoker struct {
	next Invoker
	sem  *semaphore.Weighted
}

// NewLimitedInvoker wraps next so at most n requests run concurrently
func NewLimitedInvoker(next Invoker, n int) *LimitedInvoker {
	if n < 1 {
		n = 1
	}
	return &LimitedInvoker{next: next, sem: semaphore.NewWeighted(int64(n))}
}

// Run waits for a free slot and delegates to the wrapped invoker
func (l *LimitedInvoker) Run(ctx context.Context, variant string, args ...string) (*protocol.Result, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)
	return l.next.Run(ctx, variant, args...)
}
