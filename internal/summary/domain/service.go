package domain

import (
	"context"
	"errors"
	"time"
)

// Sink receives streamed summary text in order. Returning an error stops
// generation.
type Sink func(chunk string) error

type Service interface {
	Generate(ctx context.Context, reportID string, sink Sink) (ExecutiveSummary, error)
	Latest(ctx context.Context, reportID string) (ExecutiveSummary, error)
}

var (
	ErrNotFound    = errors.New("summary_not_found")
	ErrRateLimited = errors.New("summary_rate_limited")
	ErrInProgress  = errors.New("summary_in_progress")
)

// RateLimitError reports a rejected generation and when to retry.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
