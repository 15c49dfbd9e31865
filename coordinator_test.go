package main

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func runBenchmarkForTest(t *testing.T, backend Backend, std StandardRun, cfg DebateConfig, evaluator ConsensusEvaluator) (*BenchmarkOutcome, []Event) {
	t.Helper()

	orchestrator, err := NewDebateOrchestrator(cfg, backend, evaluator)
	if err != nil {
		t.Fatalf("NewDebateOrchestrator failed: %v", err)
	}

	out := make(chan Event, 512)
	outcome := RunBenchmark(context.Background(), backend, std, orchestrator, out)
	close(out)

	var events []Event
	for event := range out {
		events = append(events, event)
	}
	return outcome, events
}

func eventsOfPipeline(events []Event, pipeline string) []Event {
	var filtered []Event
	for _, event := range events {
		if event.Pipeline == pipeline {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func TestBenchmarkRunsBothPipelines(t *testing.T) {
	backend := &fakeBackend{fragments: []string{"chunk"}}
	evaluator := &scriptedEvaluator{reachedAt: map[int]bool{1: true}}

	cfg := testDebateConfig()
	cfg.MaxRounds = 1
	outcome, events := runBenchmarkForTest(t, backend, testStandardRun(), cfg, evaluator)

	if outcome.StandardErr != nil {
		t.Errorf("Standard pipeline failed: %v", outcome.StandardErr)
	}
	if outcome.DebateErr != nil {
		t.Errorf("Debate pipeline failed: %v", outcome.DebateErr)
	}
	if !outcome.ReadyForReview() {
		t.Error("Both pipelines succeeded; review must be allowed")
	}
	if outcome.Debate == nil || outcome.Debate.SynthesisText == "" {
		t.Error("Expected a debate result with synthesis text")
	}
	if outcome.StandardText == "" {
		t.Error("Expected standard pipeline text")
	}

	// Every event carries a pipeline tag and each side terminated once
	for i, event := range events {
		if event.Pipeline != PipelineStandard && event.Pipeline != PipelineDebate {
			t.Errorf("Event %d has no pipeline tag: %+v", i, event)
		}
	}
	standardDone := eventsOfType(eventsOfPipeline(events, PipelineStandard), EventDone)
	debateDone := eventsOfType(eventsOfPipeline(events, PipelineDebate), EventDone)
	if len(standardDone) != 1 || len(debateDone) != 1 {
		t.Errorf("Expected one done event per pipeline, got standard=%d debate=%d", len(standardDone), len(debateDone))
	}
}

func TestBenchmarkOneFailureDoesNotCancelTheOther(t *testing.T) {
	// The standard model's provider rejects the key; debate models work
	backend := &fakeBackend{
		respond: func(call int, req CompletionRequest) (*Completion, error) {
			if req.ModelID == "gemini-3-flash-preview" {
				return nil, &ProviderError{Kind: ProviderAuth, Model: req.ModelID, Err: errors.New("bad key")}
			}
			return &Completion{Text: "debate output", Usage: TokenUsage{InputTokens: 100, OutputTokens: 50}}, nil
		},
	}
	evaluator := &scriptedEvaluator{reachedAt: map[int]bool{1: true}}

	cfg := testDebateConfig()
	cfg.MaxRounds = 1
	cfg.DoerModel = "claude-sonnet-4-5"
	cfg.ReviewerModel = "claude-opus-4-5"
	outcome, events := runBenchmarkForTest(t, backend, testStandardRun(), cfg, evaluator)

	if outcome.StandardErr == nil {
		t.Fatal("Expected the standard pipeline to fail")
	}
	if outcome.DebateErr != nil {
		t.Errorf("Debate pipeline must complete despite the standard failure: %v", outcome.DebateErr)
	}
	if outcome.Debate == nil {
		t.Fatal("Expected a debate result")
	}
	if outcome.ReadyForReview() {
		t.Error("Review must not run when one pipeline failed")
	}

	standardEvents := eventsOfPipeline(events, PipelineStandard)
	if got := len(eventsOfType(standardEvents, EventError)); got != 1 {
		t.Errorf("Expected 1 error event on the standard pipeline, got %d", got)
	}
	debateEvents := eventsOfPipeline(events, PipelineDebate)
	if got := len(eventsOfType(debateEvents, EventDone)); got != 1 {
		t.Errorf("Expected the debate pipeline to finish with a done event, got %d", got)
	}
	if len(eventsOfType(debateEvents, EventError)) != 0 {
		t.Error("Debate pipeline must not emit error events")
	}
}

func TestBenchmarkPreservesPerPipelineOrder(t *testing.T) {
	backend := &fakeBackend{fragments: []string{"a", "b"}}
	evaluator := &scriptedEvaluator{}

	outcome, events := runBenchmarkForTest(t, backend, testStandardRun(), testDebateConfig(), evaluator)
	if outcome.StandardErr != nil || outcome.DebateErr != nil {
		t.Fatalf("Unexpected pipeline failure: %v / %v", outcome.StandardErr, outcome.DebateErr)
	}

	// Within the debate stream the (round, seq) order must survive merging
	var positions [][2]int
	for _, event := range eventsOfType(eventsOfPipeline(events, PipelineDebate), EventExchange) {
		positions = append(positions, [2]int{event.Round, event.Seq})
	}
	for i := 1; i < len(positions); i++ {
		prev, cur := positions[i-1], positions[i]
		if cur[0] < prev[0] || (cur[0] == prev[0] && cur[1] <= prev[1]) {
			t.Errorf("Debate event order violated: %v after %v", cur, prev)
		}
	}

	// Standard fragments reassemble in order despite interleaving
	var streamed strings.Builder
	for _, event := range eventsOfType(eventsOfPipeline(events, PipelineStandard), EventText) {
		streamed.WriteString(event.Text)
	}
	if streamed.String() != "ab" {
		t.Errorf("Standard fragments arrived out of order: %q", streamed.String())
	}
}

func TestBenchmarkSeparateAccounting(t *testing.T) {
	backend := &fakeBackend{}
	evaluator := &scriptedEvaluator{usage: TokenUsage{InputTokens: 7, OutputTokens: 3}}

	cfg := testDebateConfig()
	cfg.MaxRounds = 1
	outcome, _ := runBenchmarkForTest(t, backend, testStandardRun(), cfg, evaluator)

	if outcome.StandardErr != nil || outcome.DebateErr != nil {
		t.Fatalf("Unexpected pipeline failure: %v / %v", outcome.StandardErr, outcome.DebateErr)
	}

	// 1 standard call; 2 exchanges + 1 synthesis + 1 evaluator check
	wantStandard := TokenUsage{InputTokens: 100, OutputTokens: 50}
	wantDebate := TokenUsage{InputTokens: 3*100 + 7, OutputTokens: 3*50 + 3}
	if outcome.StandardUsage != wantStandard {
		t.Errorf("Expected standard usage %+v, got %+v", wantStandard, outcome.StandardUsage)
	}
	if outcome.Debate.TotalUsage != wantDebate {
		t.Errorf("Expected debate usage %+v, got %+v", wantDebate, outcome.Debate.TotalUsage)
	}
}
