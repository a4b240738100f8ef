package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// RetryConfig is the shared resilience policy for every external-model
// call. Transient failures (rate limiting, timeouts, malformed
// responses) are retried with exponential backoff; fatal auth/quota
// failures short-circuit without consuming the budget.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt; it doubles
	// after each subsequent failure.
	InitialBackoff time.Duration
}

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 500 * time.Millisecond
)

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	return c
}

// withRetry runs fn under the retry policy. On exhaustion the last
// underlying error is wrapped in AnalysisUnavailableError so the caller
// can record the stage as failed instead of aborting the run.
func withRetry[T any](ctx context.Context, cfg RetryConfig, stage string, fn func(context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	backoff := cfg.InitialBackoff

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if models.IsFatal(err) {
			slog.Error("Fatal model error, aborting without retry.", "stage", stage, "error", err)
			return zero, err
		}

		lastErr = err
		if attempt == cfg.MaxAttempts {
			break
		}
		slog.Warn("Model call failed, will retry.",
			"stage", stage,
			"attempt", attempt,
			"maxAttempts", cfg.MaxAttempts,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Warn("Context cancelled during backoff. Aborting retries.", "stage", stage, "error", ctx.Err())
			return zero, &models.AnalysisUnavailableError{Stage: stage, Err: ctx.Err()}
		}
	}
	slog.Error("Model call failed after all retries.", "stage", stage, "error", lastErr)
	return zero, &models.AnalysisUnavailableError{Stage: stage, Err: lastErr}
}
