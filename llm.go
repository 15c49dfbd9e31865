package main

import (
	"context"
	"fmt"
	"strings"
)

// ProviderErrorKind classifies a failed model call
type ProviderErrorKind string

const (
	ProviderAuth            ProviderErrorKind = "AUTH"
	ProviderRateLimit       ProviderErrorKind = "RATE_LIMIT"
	ProviderTimeout         ProviderErrorKind = "TIMEOUT"
	ProviderInvalidResponse ProviderErrorKind = "INVALID_RESPONSE"
)

// ProviderError wraps a failed model call with its classification
type ProviderError struct {
	Kind  ProviderErrorKind
	Model string
	Err   error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: model %s call failed", e.Kind, e.Model)
	}
	return fmt.Sprintf("%s: model %s: %v", e.Kind, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ChatMessage is one turn of model input history
type ChatMessage struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// CompletionRequest is the uniform request shape across providers
type CompletionRequest struct {
	SystemPrompt string
	History      []ChatMessage
	ModelID      string
	Temperature  float64
	MaxTokens    int64
}

// Completion is the uniform result of a single model call
type Completion struct {
	Text  string
	Usage TokenUsage
}

// Backend executes a single model completion, normalizing heterogeneous
// provider wire formats into one contract. Implementations perform no
// retries; there is also no per-call deadline beyond the provider client's
// own timeout. Both are deliberate gaps for a benchmarking tool: retry and
// timeout policy, if any, belongs to the caller.
type Backend interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	// CompleteStream invokes onFragment for each text fragment as it
	// arrives and returns the accumulated completion with final usage.
	CompleteStream(ctx context.Context, req CompletionRequest, onFragment func(string)) (*Completion, error)
}

// ProviderSet dispatches each call to the provider that owns the model id.
// Selection is a tagged dispatch on the model identifier prefix: "claude"
// models go to Anthropic, "gemini" models to Google.
type ProviderSet struct {
	anthropic Backend // nil when no Anthropic key is configured
	gemini    Backend // nil when no Google key is configured
}

// NewProviderSet builds a dispatcher from the session's provider keys.
// Either key may be empty; calls to that provider's models then fail
// with an AUTH error.
func NewProviderSet(anthropicKey, googleKey string) *ProviderSet {
	p := &ProviderSet{}
	if anthropicKey != "" {
		p.anthropic = NewAnthropicBackend(anthropicKey)
	}
	if googleKey != "" {
		p.gemini = NewGeminiBackend(googleKey)
	}
	return p
}

func (p *ProviderSet) backendFor(modelID string) (Backend, error) {
	switch {
	case strings.HasPrefix(modelID, "claude"):
		if p.anthropic == nil {
			return nil, &ProviderError{Kind: ProviderAuth, Model: modelID, Err: fmt.Errorf("anthropic API key not configured")}
		}
		return p.anthropic, nil
	case strings.HasPrefix(modelID, "gemini"):
		if p.gemini == nil {
			return nil, &ProviderError{Kind: ProviderAuth, Model: modelID, Err: fmt.Errorf("google API key not configured")}
		}
		return p.gemini, nil
	default:
		return nil, fmt.Errorf("unsupported model %q: must start with 'claude' or 'gemini'", modelID)
	}
}

// Complete dispatches a non-streaming call to the owning provider
func (p *ProviderSet) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	backend, err := p.backendFor(req.ModelID)
	if err != nil {
		return nil, err
	}
	return backend.Complete(ctx, req)
}

// CompleteStream dispatches a streaming call to the owning provider
func (p *ProviderSet) CompleteStream(ctx context.Context, req CompletionRequest, onFragment func(string)) (*Completion, error) {
	backend, err := p.backendFor(req.ModelID)
	if err != nil {
		return nil, err
	}
	return backend.CompleteStream(ctx, req, onFragment)
}

// AvailableModels maps model ids to display names for the UI
var AvailableModels = map[string]string{
	"claude-sonnet-4-5":      "Claude Sonnet 4.5",
	"claude-opus-4-5":        "Claude Opus 4.5",
	"gemini-3-flash-preview": "Gemini 3 Flash",
	"gemini-3-pro-preview":   "Gemini 3 Pro",
}
