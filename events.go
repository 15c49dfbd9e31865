package main

import "context"

// EventType enumerates the progress event kinds pushed to consumers
type EventType string

const (
	// Debate pipeline events, emitted at exchange granularity. Debate
	// exchanges are never streamed at sub-message granularity: each call's
	// input depends on the complete text of the previous one.
	EventRoundStart     EventType = "round_start"
	EventExchangeStart  EventType = "exchange_start"
	EventExchange       EventType = "exchange"
	EventConsensusCheck EventType = "consensus_check"
	EventSynthesisStart EventType = "synthesis_start"
	EventSynthesis      EventType = "synthesis"

	// Standard pipeline and comparison step stream sub-message fragments
	EventText EventType = "text"

	// EventReview carries the parsed comparison verdict
	EventReview EventType = "review"

	// Terminal events; a pipeline emits exactly one of them
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Pipeline tags used when two event streams are merged by the coordinator
const (
	PipelineStandard = "standard"
	PipelineDebate   = "debate"
	PipelineReview   = "review"
)

// Event is one typed progress notification. The event sequence is ordered
// and lossless: the full transcript and verdict history of a run can be
// reconstructed from the events alone.
type Event struct {
	Type       EventType   `json:"type"`
	Pipeline   string      `json:"pipeline,omitempty"` // set on merged benchmark streams
	Round      int         `json:"round,omitempty"`
	MaxRounds  int         `json:"max_rounds,omitempty"`
	Seq        int         `json:"seq,omitempty"`
	Role       Role        `json:"role,omitempty"`
	Label      string      `json:"label,omitempty"`
	Text       string      `json:"text,omitempty"`
	Reached    *bool       `json:"reached,omitempty"`
	Reasoning  string      `json:"reasoning,omitempty"`
	Winner     string      `json:"winner,omitempty"`
	Confidence string      `json:"confidence,omitempty"`
	Usage      *TokenUsage `json:"usage,omitempty"`
	TotalUsage *TokenUsage `json:"total_usage,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// emitter delivers events to a consumer-owned channel. Delivery gives up
// once the consumer's context is cancelled; the producer treats a false
// return as the signal to stop issuing new model calls.
type emitter struct {
	ctx context.Context
	ch  chan<- Event
}

func (e *emitter) emit(ev Event) bool {
	select {
	case e.ch <- ev:
		return true
	case <-e.ctx.Done():
		return false
	}
}
