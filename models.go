package main

import (
	"fmt"
	"time"
)

// Role identifies which side of the debate produced an exchange
type Role string

const (
	RoleDoer     Role = "DOER"
	RoleReviewer Role = "REVIEWER"
)

// TokenUsage holds the input/output token counters reported by a model call
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// DebateConfig is the immutable per-run configuration for a debate
type DebateConfig struct {
	DoerModel            string `json:"doer_model"`
	ReviewerModel        string `json:"reviewer_model"`
	MaxRounds            int    `json:"max_rounds"`
	ExchangesPerRound    int    `json:"exchanges_per_round"`
	ContextNotes         string `json:"context_notes"`
	DocumentText         string `json:"-"`
	WorkflowInstructions string `json:"-"`
}

// ConfigError reports an invalid run configuration. It is raised before any
// model call is issued.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Validate checks the debate bounds and required inputs
func (c DebateConfig) Validate() error {
	if c.DoerModel == "" {
		return &ConfigError{Field: "doer_model", Reason: "required"}
	}
	if c.ReviewerModel == "" {
		return &ConfigError{Field: "reviewer_model", Reason: "required"}
	}
	if c.MaxRounds < 1 || c.MaxRounds > MaxRoundsLimit {
		return &ConfigError{Field: "max_rounds", Reason: fmt.Sprintf("must be between 1 and %d", MaxRoundsLimit)}
	}
	if c.ExchangesPerRound < 1 || c.ExchangesPerRound > MaxExchangesLimit {
		return &ConfigError{Field: "exchanges_per_round", Reason: fmt.Sprintf("must be between 1 and %d", MaxExchangesLimit)}
	}
	if c.DocumentText == "" {
		return &ConfigError{Field: "document", Reason: "no document loaded"}
	}
	if c.WorkflowInstructions == "" {
		return &ConfigError{Field: "workflow", Reason: "no workflow instructions"}
	}
	return nil
}

// ExchangeRecord is one completed call-and-response within a debate round.
// Records are append-only for the duration of a run.
type ExchangeRecord struct {
	Round int        `json:"round"`
	Seq   int        `json:"seq"` // sequence within the round, 1-based
	Role  Role       `json:"role"`
	Label string     `json:"label"`
	Text  string     `json:"text"`
	Usage TokenUsage `json:"usage"`
}

// ConsensusVerdict is the judgment produced once per completed round
type ConsensusVerdict struct {
	Round     int    `json:"round"`
	Reached   bool   `json:"reached"`
	Reasoning string `json:"reasoning"`
}

// DebateResult is the terminal aggregate of a successful debate run.
// It is immutable once produced and is the sole input the comparison
// step sees from the debate side.
type DebateResult struct {
	Transcript    []ExchangeRecord   `json:"transcript"`
	Consensus     []ConsensusVerdict `json:"consensus"`
	SynthesisText string             `json:"synthesis_text"`
	TotalUsage    TokenUsage         `json:"total_usage"`
}

// ReviewVerdict is the structured outcome of the comparison step
type ReviewVerdict struct {
	Winner     string     `json:"winner"`     // "standard", "debate" or "undetermined"
	Confidence string     `json:"confidence"` // "High", "Medium", "Low" or ""
	Text       string     `json:"text"`
	Usage      TokenUsage `json:"usage"`
}

// Workflow describes one entry of the workflow registry
type Workflow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	File        string `json:"-"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Document is the extracted plain text of an uploaded document plus
// display metadata
type Document struct {
	Filename  string `json:"filename"`
	Text      string `json:"-"`
	CharCount int    `json:"char_count"`
	Preview   string `json:"preview"`
}

// ReportMetadata describes one exported report on disk
type ReportMetadata struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	WorkflowName string    `json:"workflow_name"`
	DocumentName string    `json:"document_name"`
}

// SetKeysRequest carries the per-session provider keys
type SetKeysRequest struct {
	AnthropicKey string `json:"anthropic_key"`
	GoogleKey    string `json:"google_key"`
}

// UploadDocumentRequest accepts pasted text or a URL to fetch
type UploadDocumentRequest struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// RunStandardRequest starts a single-pass analysis
type RunStandardRequest struct {
	WorkflowID   string `json:"workflow_id"`
	Model        string `json:"model"`
	ContextNotes string `json:"context_notes"`
}

// RunDebateRequest starts a Doer/Reviewer debate
type RunDebateRequest struct {
	WorkflowID        string `json:"workflow_id"`
	DoerModel         string `json:"doer_model"`
	ReviewerModel     string `json:"reviewer_model"`
	MaxRounds         int    `json:"max_rounds"`
	ExchangesPerRound int    `json:"exchanges_per_round"`
	ContextNotes      string `json:"context_notes"`
}

// RunBenchmarkRequest starts both pipelines concurrently, followed by the
// comparison step when both succeed
type RunBenchmarkRequest struct {
	WorkflowID        string `json:"workflow_id"`
	StandardModel     string `json:"standard_model"`
	DoerModel         string `json:"doer_model"`
	ReviewerModel     string `json:"reviewer_model"`
	ReviewModel       string `json:"review_model"`
	MaxRounds         int    `json:"max_rounds"`
	ExchangesPerRound int    `json:"exchanges_per_round"`
	ContextNotes      string `json:"context_notes"`
}

// RunReviewRequest starts the comparison step against the session's
// stored pipeline outputs
type RunReviewRequest struct {
	WorkflowID string `json:"workflow_id"`
	Model      string `json:"model"`
}
