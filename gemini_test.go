package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiComplete(t *testing.T) {
	var captured geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-3-flash-preview:generateContent") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("Expected API key header, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Analysis "}, {"text": "complete."}]}}],
			"usageMetadata": {"promptTokenCount": 120, "candidatesTokenCount": 45}
		}`)
	}))
	defer server.Close()

	originalURL := GeminiAPIBaseURL
	GeminiAPIBaseURL = server.URL
	defer func() { GeminiAPIBaseURL = originalURL }()

	backend := NewGeminiBackend("test-key")
	completion, err := backend.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "You are a legal analyst.",
		History:      []ChatMessage{{Role: "user", Text: "Review this."}},
		ModelID:      "gemini-3-flash-preview",
		Temperature:  0.7,
		MaxTokens:    1024,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if completion.Text != "Analysis complete." {
		t.Errorf("Expected joined candidate parts, got %q", completion.Text)
	}
	if completion.Usage != (TokenUsage{InputTokens: 120, OutputTokens: 45}) {
		t.Errorf("Unexpected usage %+v", completion.Usage)
	}

	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "You are a legal analyst." {
		t.Error("System prompt not forwarded as systemInstruction")
	}
	if len(captured.Contents) != 1 || captured.Contents[0].Role != "user" {
		t.Errorf("Unexpected contents %+v", captured.Contents)
	}
	if captured.GenerationConfig == nil || captured.GenerationConfig.MaxOutputTokens != 1024 {
		t.Error("Generation config not forwarded")
	}
}

func TestGeminiAssistantHistoryMapsToModelRole(t *testing.T) {
	var captured geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		fmt.Fprint(w, `{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`)
	}))
	defer server.Close()

	originalURL := GeminiAPIBaseURL
	GeminiAPIBaseURL = server.URL
	defer func() { GeminiAPIBaseURL = originalURL }()

	backend := NewGeminiBackend("test-key")
	_, err := backend.Complete(context.Background(), CompletionRequest{
		History: []ChatMessage{
			{Role: "user", Text: "first"},
			{Role: "assistant", Text: "second"},
		},
		ModelID: "gemini-3-flash-preview",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if len(captured.Contents) != 2 {
		t.Fatalf("Expected 2 contents, got %d", len(captured.Contents))
	}
	if captured.Contents[0].Role != "user" || captured.Contents[1].Role != "model" {
		t.Errorf("Role mapping wrong: %s / %s", captured.Contents[0].Role, captured.Contents[1].Role)
	}
}

func TestGeminiStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   ProviderErrorKind
	}{
		{http.StatusBadRequest, ProviderAuth}, // Gemini reports bad keys as 400
		{http.StatusUnauthorized, ProviderAuth},
		{http.StatusForbidden, ProviderAuth},
		{http.StatusTooManyRequests, ProviderRateLimit},
		{http.StatusRequestTimeout, ProviderTimeout},
		{http.StatusGatewayTimeout, ProviderTimeout},
		{http.StatusInternalServerError, ProviderInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error": {"message": "nope"}}`)
			}))
			defer server.Close()

			originalURL := GeminiAPIBaseURL
			GeminiAPIBaseURL = server.URL
			defer func() { GeminiAPIBaseURL = originalURL }()

			backend := NewGeminiBackend("test-key")
			_, err := backend.Complete(context.Background(), CompletionRequest{ModelID: "gemini-3-flash-preview"})
			if err == nil {
				t.Fatal("Expected error")
			}

			var provErr *ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("Expected ProviderError, got %T", err)
			}
			if provErr.Kind != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, provErr.Kind)
			}
			if provErr.Model != "gemini-3-flash-preview" {
				t.Errorf("Expected model on error, got %q", provErr.Model)
			}
		})
	}
}

func TestGeminiCompleteNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates": []}`)
	}))
	defer server.Close()

	originalURL := GeminiAPIBaseURL
	GeminiAPIBaseURL = server.URL
	defer func() { GeminiAPIBaseURL = originalURL }()

	backend := NewGeminiBackend("test-key")
	_, err := backend.Complete(context.Background(), CompletionRequest{ModelID: "gemini-3-flash-preview"})

	var provErr *ProviderError
	if !errors.As(err, &provErr) || provErr.Kind != ProviderInvalidResponse {
		t.Errorf("Expected INVALID_RESPONSE, got %v", err)
	}
}

func TestGeminiCompleteStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Error("Expected alt=sse query parameter")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\": [{\"content\": {\"parts\": [{\"text\": \"The \"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\": [{\"content\": {\"parts\": [{\"text\": \"agreement \"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\": [{\"content\": {\"parts\": [{\"text\": \"is sound.\"}]}}], \"usageMetadata\": {\"promptTokenCount\": 80, \"candidatesTokenCount\": 30}}\n\n")
	}))
	defer server.Close()

	originalURL := GeminiAPIBaseURL
	GeminiAPIBaseURL = server.URL
	defer func() { GeminiAPIBaseURL = originalURL }()

	backend := NewGeminiBackend("test-key")
	var fragments []string
	completion, err := backend.CompleteStream(context.Background(), CompletionRequest{
		ModelID: "gemini-3-flash-preview",
	}, func(fragment string) {
		fragments = append(fragments, fragment)
	})
	if err != nil {
		t.Fatalf("CompleteStream failed: %v", err)
	}

	if completion.Text != "The agreement is sound." {
		t.Errorf("Unexpected accumulated text %q", completion.Text)
	}
	if len(fragments) != 3 {
		t.Errorf("Expected 3 fragments, got %d", len(fragments))
	}
	if strings.Join(fragments, "") != completion.Text {
		t.Error("Fragments must reassemble to the accumulated text")
	}
	if completion.Usage != (TokenUsage{InputTokens: 80, OutputTokens: 30}) {
		t.Errorf("Expected usage from the final chunk, got %+v", completion.Usage)
	}
}

func TestGeminiCompleteStreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "quota"}}`)
	}))
	defer server.Close()

	originalURL := GeminiAPIBaseURL
	GeminiAPIBaseURL = server.URL
	defer func() { GeminiAPIBaseURL = originalURL }()

	backend := NewGeminiBackend("test-key")
	_, err := backend.CompleteStream(context.Background(), CompletionRequest{ModelID: "gemini-3-flash-preview"}, func(string) {})

	var provErr *ProviderError
	if !errors.As(err, &provErr) || provErr.Kind != ProviderRateLimit {
		t.Errorf("Expected RATE_LIMIT, got %v", err)
	}
}
