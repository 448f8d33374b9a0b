package output

import (
	"context"

	"support-desk/internal/domain"
)

// CompletionClient interface - Output port
// Defines what the application needs from an external language model that
// exposes an OpenAI-style chat completion API.
type CompletionClient interface {
	// ChatCompletion sends a non-streaming chat completion request and returns
	// the generated content with token usage.
	// Transport failures wrap domain.ErrLLMUnavailable or domain.ErrLLMTimeout,
	// rejected requests wrap domain.ErrInvalidRequest.
	ChatCompletion(ctx context.Context, request domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error)
}
