package main

import (
	"context"
	"fmt"
)

// StandardRun configures the single-pass pipeline
type StandardRun struct {
	Model                string
	WorkflowInstructions string
	DocumentText         string
	ContextNotes         string
}

// Validate rejects an unrunnable standard configuration before any model
// call is issued
func (r StandardRun) Validate() error {
	if r.Model == "" {
		return &ConfigError{Field: "model", Reason: "required"}
	}
	if r.DocumentText == "" {
		return &ConfigError{Field: "document", Reason: "no document loaded"}
	}
	if r.WorkflowInstructions == "" {
		return &ConfigError{Field: "workflow", Reason: "no workflow instructions"}
	}
	return nil
}

// RunStandardAnalysis executes the single-pass pipeline: one streaming
// model call whose fragments are pushed as text events, followed by a
// done event carrying the pipeline's token totals. The events channel is
// left open for the caller to close.
func RunStandardAnalysis(ctx context.Context, run StandardRun, backend Backend, events chan<- Event) (string, TokenUsage, error) {
	em := &emitter{ctx: ctx, ch: events}

	if err := run.Validate(); err != nil {
		em.emit(Event{Type: EventError, Message: err.Error()})
		return "", TokenUsage{}, err
	}

	accountant := NewTokenAccountant()

	completion, err := backend.CompleteStream(ctx, CompletionRequest{
		SystemPrompt: run.WorkflowInstructions,
		History:      []ChatMessage{{Role: "user", Text: buildStandardPrompt(run.DocumentText, run.ContextNotes)}},
		ModelID:      run.Model,
		Temperature:  0.7,
		MaxTokens:    DefaultMaxTokens,
	}, func(fragment string) {
		em.emit(Event{Type: EventText, Text: fragment})
	})
	if err != nil {
		em.emit(Event{Type: EventError, Message: fmt.Sprintf("standard analysis failed: %v", err)})
		return "", accountant.Totals(), err
	}

	accountant.Record(completion.Usage)
	total := accountant.Totals()
	em.emit(Event{Type: EventDone, TotalUsage: &total})
	return completion.Text, total, nil
}
