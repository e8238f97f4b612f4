// Package grounding submits verification queries to the language-model
// capability and enforces the timeout and retry policy around it.
package grounding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/jmallek/copycheck/internal/llm"
	"github.com/jmallek/copycheck/internal/model"
)

const groundingMaxAttempts = 2

// groundSleepFunc is the sleep function used between retries (injectable for tests)
var groundSleepFunc = time.Sleep

// Query is an immutable, single-use verification request
type Query struct {
	AdCopy   string
	Claims   []model.Claim
	Evidence model.EvidenceSet
	Tone     bool
}

// Client wraps the LLM provider with verification-specific prompt
// construction, a hard per-request timeout, and the retry policy:
// RATE_LIMITED and SERVICE_ERROR are retried once with backoff; TIMEOUT and
// CONTEXT_OVERFLOW are surfaced immediately (overflow is the orchestrator's
// cue to shrink the evidence set).
type Client struct {
	provider  llm.Provider
	maxTokens int
}

// NewClient creates a grounding client over the given provider
func NewClient(provider llm.Provider, cfg model.LLMConfig) *Client {
	return &Client{
		provider:  provider,
		maxTokens: cfg.MaxTokens,
	}
}

// Verify submits the query and returns the raw completion text. On failure
// it returns a *model.ModelError.
func (c *Client) Verify(ctx context.Context, q Query) (string, error) {
	prompt := BuildPrompt(q)

	var lastErr *model.ModelError
	for attempt := 1; attempt <= groundingMaxAttempts; attempt++ {
		comp, err := c.provider.Complete(ctx, llm.CompletionRequest{
			System:      systemPrompt,
			Prompt:      prompt,
			MaxTokens:   c.maxTokens,
			Temperature: 0.1,
		})
		if err == nil {
			return comp.Text, nil
		}

		lastErr = ClassifyError(err)

		if attempt < groundingMaxAttempts && isRetryable(lastErr.Kind) && ctx.Err() == nil {
			groundSleepFunc(time.Duration(attempt) * 250 * time.Millisecond)
			continue
		}
		break
	}

	return "", lastErr
}

// isRetryable reports whether the error kind may succeed on a second
// attempt with the same payload
func isRetryable(kind model.ModelErrorKind) bool {
	return kind == model.ModelRateLimited || kind == model.ModelServiceError
}

// ClassifyError maps a raw provider failure onto the ModelError taxonomy
func ClassifyError(err error) *model.ModelError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &model.ModelError{Kind: model.ModelTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &model.ModelError{Kind: model.ModelTimeout, Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return &model.ModelError{Kind: model.ModelRateLimited, Err: err}
		case isContextOverflow(apiErr):
			return &model.ModelError{Kind: model.ModelContextOverflow, Err: err}
		default:
			return &model.ModelError{Kind: model.ModelServiceError, Err: err}
		}
	}

	return &model.ModelError{Kind: model.ModelServiceError, Err: err}
}

// isContextOverflow detects the provider's context-window rejection
func isContextOverflow(apiErr *openai.APIError) bool {
	if code, ok := apiErr.Code.(string); ok && code == "context_length_exceeded" {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "context length") || strings.Contains(msg, "maximum context")
}

// String renders the query for debugging
func (q Query) String() string {
	return fmt.Sprintf("query{claims: %d, evidence: %d segments / %d chars}",
		len(q.Claims), len(q.Evidence.Segments), q.Evidence.Size())
}
