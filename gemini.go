package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// GeminiBackend is the Google variant of the Backend contract, speaking
// the Generative Language REST API directly.
type GeminiBackend struct {
	apiKey string
	client *http.Client
}

// NewGeminiBackend creates a backend for the given API key
func NewGeminiBackend(apiKey string) *GeminiBackend {
	return &GeminiBackend{
		apiKey: apiKey,
		client: &http.Client{Timeout: ModelCallTimeout},
	}
}

// Gemini wire format

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int64   `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (b *GeminiBackend) buildRequest(req CompletionRequest) *geminiRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	var contents []geminiContent
	for _, m := range req.History {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Text}},
		})
	}

	out := &geminiRequest{
		Contents: contents,
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if req.SystemPrompt != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	return out
}

func (b *GeminiBackend) post(ctx context.Context, endpoint string, payload *geminiRequest) (*http.Response, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", b.apiKey)

	return b.client.Do(req)
}

// Complete executes a single non-streaming generateContent call
func (b *GeminiBackend) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", GeminiAPIBaseURL, req.ModelID)

	resp, err := b.post(ctx, endpoint, b.buildRequest(req))
	if err != nil {
		return nil, classifyGeminiTransportError(req.ModelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, classifyGeminiStatus(req.ModelID, resp.StatusCode, string(bodyBytes))
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Kind: ProviderInvalidResponse, Model: req.ModelID, Err: err}
	}

	var apiResponse geminiResponse
	if err := json.Unmarshal(bodyBytes, &apiResponse); err != nil {
		return nil, &ProviderError{Kind: ProviderInvalidResponse, Model: req.ModelID, Err: err}
	}

	text, ok := geminiChunkText(&apiResponse)
	if !ok {
		return nil, &ProviderError{Kind: ProviderInvalidResponse, Model: req.ModelID, Err: fmt.Errorf("no candidates in response")}
	}

	completion := &Completion{Text: text}
	if apiResponse.UsageMetadata != nil {
		completion.Usage = TokenUsage{
			InputTokens:  apiResponse.UsageMetadata.PromptTokenCount,
			OutputTokens: apiResponse.UsageMetadata.CandidatesTokenCount,
		}
	}
	return completion, nil
}

// CompleteStream executes a streamGenerateContent call with SSE transport,
// invoking onFragment per chunk. Usage counters come from the final chunk's
// usageMetadata when the API reports them.
func (b *GeminiBackend) CompleteStream(ctx context.Context, req CompletionRequest, onFragment func(string)) (*Completion, error) {
	endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", GeminiAPIBaseURL, req.ModelID)

	resp, err := b.post(ctx, endpoint, b.buildRequest(req))
	if err != nil {
		return nil, classifyGeminiTransportError(req.ModelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, classifyGeminiStatus(req.ModelID, resp.StatusCode, string(bodyBytes))
	}

	var full strings.Builder
	var usage TokenUsage

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, &ProviderError{Kind: ProviderInvalidResponse, Model: req.ModelID, Err: err}
		}

		if text, ok := geminiChunkText(&chunk); ok && text != "" {
			full.WriteString(text)
			onFragment(text)
		}
		if chunk.UsageMetadata != nil {
			usage = TokenUsage{
				InputTokens:  chunk.UsageMetadata.PromptTokenCount,
				OutputTokens: chunk.UsageMetadata.CandidatesTokenCount,
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, classifyGeminiTransportError(req.ModelID, err)
	}

	return &Completion{Text: full.String(), Usage: usage}, nil
}

// geminiChunkText flattens the first candidate's parts into one string
func geminiChunkText(resp *geminiResponse) (string, bool) {
	if len(resp.Candidates) == 0 {
		return "", false
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), true
}

// classifyGeminiStatus maps HTTP status codes onto the provider error taxonomy
func classifyGeminiStatus(model string, status int, body string) error {
	err := fmt.Errorf("API returned status %d: %s", status, body)
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		// Gemini reports invalid keys as 400 as well as 401/403
		return &ProviderError{Kind: ProviderAuth, Model: model, Err: err}
	case http.StatusTooManyRequests:
		return &ProviderError{Kind: ProviderRateLimit, Model: model, Err: err}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &ProviderError{Kind: ProviderTimeout, Model: model, Err: err}
	default:
		return &ProviderError{Kind: ProviderInvalidResponse, Model: model, Err: err}
	}
}

// classifyGeminiTransportError maps client-side failures (timeouts,
// connection errors) onto the taxonomy
func classifyGeminiTransportError(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: ProviderTimeout, Model: model, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &ProviderError{Kind: ProviderTimeout, Model: model, Err: err}
	}
	return &ProviderError{Kind: ProviderInvalidResponse, Model: model, Err: err}
}
