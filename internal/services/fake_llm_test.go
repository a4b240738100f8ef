package services

import (
	"context"

	"github.com/Geethss/Student-perfomance-Analyser/internal/llm"
)

// fakeClient scripts model responses for tests.
type fakeClient struct {
	generateFn func(ctx context.Context, stage llm.Stage, req llm.Request) (string, error)
}

func (f *fakeClient) Generate(ctx context.Context, stage llm.Stage, req llm.Request) (string, error) {
	return f.generateFn(ctx, stage, req)
}

func (f *fakeClient) Close() error { return nil }

// fastRetry keeps test backoff negligible.
var fastRetry = RetryConfig{MaxAttempts: 3, InitialBackoff: 1}
