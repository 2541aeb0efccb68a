// Package runner executes benchmark queries against the engines under test
// and captures raw plan artifacts. Parsing stays elsewhere; a runner only
// moves SQL in and artifact bytes out.
package runner

import (
	"context"
	"time"
)

// Options customises query execution.
type Options struct {
	Timeout time.Duration
}

// Runner drives one engine. Execute times a plain run of the statement;
// Explain captures the engine's plan artifact for it.
type Runner interface {
	// Execute runs the statement and returns the observed wall-clock time.
	Execute(ctx context.Context, sql string) (time.Duration, error)
	// Explain returns the raw plan artifact for the statement.
	Explain(ctx context.Context, sql string) ([]byte, error)
}

func withTimeout(ctx context.Context, opts Options) (context.Context, context.CancelFunc) {
	if opts.Timeout > 0 {
		return context.WithTimeout(ctx, opts.Timeout)
	}
	return ctx, func() {}
}
