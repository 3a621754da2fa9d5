// Package llm wraps generative completion services behind a single
// Provider interface. Providers are synchronous per attempt; retry policy
// belongs to the caller.
package llm

import (
	"context"
	"time"
)

// Provider defines the interface for generative completion services
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs one completion attempt. The request timeout bounds the
	// attempt; callers own retries.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is one synchronous completion attempt.
type CompletionRequest struct {
	// System is the system prompt (optional).
	System string

	// Prompt is the user message.
	Prompt string

	// Model overrides the configured model when non-empty.
	Model string

	// Temperature for sampling. Verification runs at 0.
	Temperature float32

	// MaxTokens limits the response length.
	MaxTokens int

	// Timeout bounds this single attempt.
	Timeout time.Duration
}

// CompletionResponse contains the raw model output.
type CompletionResponse struct {
	// Text is the response content.
	Text string

	// Model is the model that generated the response.
	Model string

	// TokensUsed tracks token consumption.
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests, seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}
