package main

import (
	"context"
	"regexp"
	"strings"
)

// RunFinalReview executes the stateless comparison step: one streaming
// model call judging the standard text against the debate synthesis.
// Fragments are pushed as text events; the parsed verdict follows as a
// review event. The events channel is left open for the caller to close.
func RunFinalReview(ctx context.Context, backend Backend, model, workflowInstructions, standardText, debateText string, events chan<- Event) (*ReviewVerdict, error) {
	em := &emitter{ctx: ctx, ch: events}

	completion, err := backend.CompleteStream(ctx, CompletionRequest{
		SystemPrompt: finalReviewSystem,
		History:      []ChatMessage{{Role: "user", Text: buildReviewPrompt(workflowInstructions, standardText, debateText)}},
		ModelID:      model,
		Temperature:  0.4,
		MaxTokens:    DefaultMaxTokens,
	}, func(fragment string) {
		em.emit(Event{Type: EventText, Text: fragment})
	})
	if err != nil {
		em.emit(Event{Type: EventError, Message: err.Error()})
		return nil, err
	}

	winner, confidence := ParseReviewVerdict(completion.Text)
	verdict := &ReviewVerdict{
		Winner:     winner,
		Confidence: confidence,
		Text:       completion.Text,
		Usage:      completion.Usage,
	}

	em.emit(Event{Type: EventReview, Winner: winner, Confidence: confidence, Usage: &completion.Usage})
	em.emit(Event{Type: EventDone, TotalUsage: &completion.Usage})
	return verdict, nil
}

var (
	reviewWinnerPattern     = regexp.MustCompile(`(?i)winner:\s*\[?\s*(analysis\s+[ab]|standard|debate)`)
	reviewConfidencePattern = regexp.MustCompile(`(?i)confidence:\s*\[?\s*(high|medium|low)`)
)

// ParseReviewVerdict extracts the declared winner and confidence level
// from the reviewer's markdown. "Analysis A" maps to the standard side
// and "Analysis B" to the debate side, matching the prompt's framing.
// An undeclared winner parses as "undetermined".
func ParseReviewVerdict(text string) (winner, confidence string) {
	winner = "undetermined"
	if m := reviewWinnerPattern.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(strings.Join(strings.Fields(m[1]), " ")) {
		case "analysis a", "standard":
			winner = "standard"
		case "analysis b", "debate":
			winner = "debate"
		}
	}

	if m := reviewConfidencePattern.FindStringSubmatch(text); m != nil {
		c := strings.ToLower(m[1])
		confidence = strings.ToUpper(c[:1]) + c[1:]
	}
	return winner, confidence
}
