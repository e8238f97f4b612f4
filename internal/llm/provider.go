// Package llm is the narrow capability boundary around the language model.
// The model is an untrusted text generator: callers submit a prompt and get
// raw completion text back; all structure and validation live above this
// package.
package llm

import "context"

// Provider defines the interface for language-model capabilities
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete submits a prompt and returns the raw completion
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CompletionRequest is a single prompt/completion exchange
type CompletionRequest struct {
	// System sets the model's role (optional)
	System string

	// Prompt is the user-turn content
	Prompt string

	// Model overrides the provider's configured model (optional)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls sampling; verification wants it low
	Temperature float32
}

// Completion is the provider's raw response
type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai" or "" (disabled)
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom or OpenAI-compatible endpoints
	BaseURL string

	// Timeout for API requests, in seconds
	Timeout int

	// MaxTokens default for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		Timeout:   20,
		MaxTokens: 1500,
	}
}
