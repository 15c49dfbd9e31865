package main

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
)

// ConsensusEvaluator judges whether the Doer and Reviewer positions have
// converged enough to stop debating. Consensus is a semantic judgment made
// by a model, not a structural comparison, so verdicts vary run to run;
// tests substitute a deterministic fake.
type ConsensusEvaluator interface {
	// Evaluate returns the verdict for a completed round plus the token
	// usage of the judgment call. Failures never surface as errors: a
	// broken evaluator only costs extra rounds, up to the bound.
	Evaluate(ctx context.Context, round int, doerText, reviewerText string) (ConsensusVerdict, TokenUsage)
}

// LLMConsensusEvaluator asks a model for the judgment using excerpts of
// the two latest positions
type LLMConsensusEvaluator struct {
	backend Backend
	model   string
}

// NewLLMConsensusEvaluator builds an evaluator that runs on the given model
func NewLLMConsensusEvaluator(backend Backend, model string) *LLMConsensusEvaluator {
	return &LLMConsensusEvaluator{backend: backend, model: model}
}

// noConsensus is the degraded verdict used whenever evaluation fails
func noConsensus(round int) ConsensusVerdict {
	return ConsensusVerdict{Round: round, Reached: false, Reasoning: "evaluation unavailable"}
}

// Evaluate issues one judgment call and parses the JSON verdict out of the
// response text
func (e *LLMConsensusEvaluator) Evaluate(ctx context.Context, round int, doerText, reviewerText string) (ConsensusVerdict, TokenUsage) {
	completion, err := e.backend.Complete(ctx, CompletionRequest{
		SystemPrompt: consensusSystem,
		History:      []ChatMessage{{Role: "user", Text: buildConsensusPrompt(doerText, reviewerText)}},
		ModelID:      e.model,
		Temperature:  0.2,
		MaxTokens:    ConsensusMaxTokens,
	})
	if err != nil {
		log.Printf("Consensus evaluation failed for round %d: %v", round, err)
		return noConsensus(round), TokenUsage{}
	}

	verdict, ok := parseConsensusVerdict(completion.Text)
	if !ok {
		log.Printf("Consensus response for round %d had no parseable verdict", round)
		return noConsensus(round), completion.Usage
	}

	verdict.Round = round
	return verdict, completion.Usage
}

var consensusJSONPattern = regexp.MustCompile(`(?s)\{.*?\}`)

// parseConsensusVerdict extracts the first JSON object from the response
// text. Models often wrap the verdict in prose or code fences, so the
// whole response is scanned rather than decoded directly.
func parseConsensusVerdict(text string) (ConsensusVerdict, bool) {
	match := consensusJSONPattern.FindString(text)
	if match == "" {
		return ConsensusVerdict{}, false
	}

	var parsed struct {
		Reached   bool   `json:"reached"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return ConsensusVerdict{}, false
	}

	reasoning := parsed.Reasoning
	if reasoning == "" {
		reasoning = "Consensus evaluated."
	}
	return ConsensusVerdict{Reached: parsed.Reached, Reasoning: reasoning}, true
}
