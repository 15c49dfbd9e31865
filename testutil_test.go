package main

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// fakeBackend is a scripted Backend. respond receives the 1-based call
// number and decides the result; when nil, every call succeeds with a
// numbered response and fixed usage.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []CompletionRequest
	respond func(call int, req CompletionRequest) (*Completion, error)

	// fragments are replayed through onFragment before CompleteStream
	// resolves
	fragments []string
}

func (b *fakeBackend) record(req CompletionRequest) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, req)
	return len(b.calls)
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *fakeBackend) callAt(i int) CompletionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[i]
}

func (b *fakeBackend) defaultCompletion(call int) *Completion {
	return &Completion{
		Text:  fmt.Sprintf("response %d", call),
		Usage: TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

func (b *fakeBackend) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	call := b.record(req)
	if b.respond != nil {
		return b.respond(call, req)
	}
	return b.defaultCompletion(call), nil
}

func (b *fakeBackend) CompleteStream(ctx context.Context, req CompletionRequest, onFragment func(string)) (*Completion, error) {
	call := b.record(req)
	for _, fragment := range b.fragments {
		onFragment(fragment)
	}
	if b.respond != nil {
		return b.respond(call, req)
	}
	return b.defaultCompletion(call), nil
}

// scriptedEvaluator returns a canned verdict per round without any model
// call
type scriptedEvaluator struct {
	mu        sync.Mutex
	reachedAt map[int]bool // round -> verdict
	usage     TokenUsage
	calls     int
}

func (e *scriptedEvaluator) Evaluate(ctx context.Context, round int, doerText, reviewerText string) (ConsensusVerdict, TokenUsage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return ConsensusVerdict{
		Round:     round,
		Reached:   e.reachedAt[round],
		Reasoning: "scripted verdict",
	}, e.usage
}

func (e *scriptedEvaluator) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// testDebateConfig is a valid two-round configuration for orchestrator tests
func testDebateConfig() DebateConfig {
	return DebateConfig{
		DoerModel:            "claude-sonnet-4-5",
		ReviewerModel:        "gemini-3-pro-preview",
		MaxRounds:            2,
		ExchangesPerRound:    2,
		DocumentText:         "MUTUAL NONDISCLOSURE AGREEMENT between Acme Corp and Beta LLC.",
		WorkflowInstructions: "Review the agreement clause by clause.",
	}
}

// runDebate executes a debate synchronously and returns the result
// alongside every emitted event
func runDebate(t *testing.T, cfg DebateConfig, backend Backend, evaluator ConsensusEvaluator) (*DebateResult, error, []Event) {
	t.Helper()

	orchestrator, err := NewDebateOrchestrator(cfg, backend, evaluator)
	if err != nil {
		t.Fatalf("NewDebateOrchestrator failed: %v", err)
	}

	events := make(chan Event, 256)
	result, runErr := orchestrator.Run(context.Background(), events)
	close(events)

	var collected []Event
	for event := range events {
		collected = append(collected, event)
	}
	return result, runErr, collected
}

// eventsOfType filters an event slice by type
func eventsOfType(events []Event, typ EventType) []Event {
	var out []Event
	for _, event := range events {
		if event.Type == typ {
			out = append(out, event)
		}
	}
	return out
}

// eventTypes projects an event slice onto its type sequence
func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, event := range events {
		out[i] = event.Type
	}
	return out
}
