package llm

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("llm_not_configured")
	ErrEmptyResponse = errors.New("llm_empty_response")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Messages  []Message
	MaxTokens int
}

// Completion is the assembled result of a streamed response.
type Completion struct {
	Model        string
	Content      string
	FinishReason string
}

// Provider streams chat completions. onChunk receives each content delta
// in order; an error from onChunk aborts the stream.
type Provider interface {
	Model() string
	Stream(ctx context.Context, req CompletionRequest, onChunk func(string) error) (Completion, error)
}

type NoOpProvider struct{}

func (NoOpProvider) Model() string { return "" }

func (NoOpProvider) Stream(context.Context, CompletionRequest, func(string) error) (Completion, error) {
	return Completion{}, ErrNotConfigured
}
