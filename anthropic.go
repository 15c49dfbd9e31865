package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend is the Anthropic variant of the Backend contract,
// built on the official SDK.
type AnthropicBackend struct {
	client anthropic.Client
}

// NewAnthropicBackend creates a backend for the given API key. Extra
// request options (e.g. a base URL override) are passed through to the SDK.
func NewAnthropicBackend(apiKey string, opts ...option.RequestOption) *AnthropicBackend {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicBackend{client: anthropic.NewClient(opts...)}
}

func (b *AnthropicBackend) buildParams(req CompletionRequest) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	var messages []anthropic.MessageParam
	for _, m := range req.History {
		block := anthropic.NewTextBlock(m.Text)
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.ModelID),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	return params
}

// Complete executes a single non-streaming message call
func (b *AnthropicBackend) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	resp, err := b.client.Messages.New(ctx, b.buildParams(req))
	if err != nil {
		return nil, classifyAnthropicError(req.ModelID, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	return &Completion{
		Text: text.String(),
		Usage: TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

// CompleteStream executes a streaming message call, invoking onFragment
// for each text delta as it arrives
func (b *AnthropicBackend) CompleteStream(ctx context.Context, req CompletionRequest, onFragment func(string)) (*Completion, error) {
	stream := b.client.Messages.NewStreaming(ctx, b.buildParams(req))

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, &ProviderError{Kind: ProviderInvalidResponse, Model: req.ModelID, Err: err}
		}

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				onFragment(delta.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, classifyAnthropicError(req.ModelID, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	return &Completion{
		Text: text.String(),
		Usage: TokenUsage{
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		},
	}, nil
}

// classifyAnthropicError maps SDK errors onto the provider error taxonomy
func classifyAnthropicError(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: ProviderTimeout, Model: model, Err: err}
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &ProviderError{Kind: ProviderAuth, Model: model, Err: err}
		case http.StatusTooManyRequests:
			return &ProviderError{Kind: ProviderRateLimit, Model: model, Err: err}
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return &ProviderError{Kind: ProviderTimeout, Model: model, Err: err}
		}
	}

	return &ProviderError{Kind: ProviderInvalidResponse, Model: model, Err: err}
}
