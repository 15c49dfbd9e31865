package main

import (
	"context"
	"fmt"
)

// debateState is the orchestrator's position in its state machine
type debateState int

const (
	stateIdle debateState = iota
	stateRoundActive
	stateConsensusCheck
	stateSynthesis
	stateDone
	stateFailed
)

// DebateOrchestrator drives one Doer/Reviewer debate run. It exclusively
// owns its transcript, token accountant and state cursor; concurrent runs
// must use separate instances.
//
// Calls within a run are strictly sequential: each exchange's prompt is a
// function of the complete text of every prior exchange, so there is no
// fan-out and no sub-message streaming inside the debate.
type DebateOrchestrator struct {
	cfg        DebateConfig
	backend    Backend
	evaluator  ConsensusEvaluator
	accountant *TokenAccountant

	state      debateState
	transcript []ExchangeRecord
	verdicts   []ConsensusVerdict
}

// NewDebateOrchestrator validates the configuration and prepares a run.
// Invalid bounds or missing inputs are rejected here, before any model
// call is issued.
func NewDebateOrchestrator(cfg DebateConfig, backend Backend, evaluator ConsensusEvaluator) (*DebateOrchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &DebateOrchestrator{
		cfg:        cfg,
		backend:    backend,
		evaluator:  evaluator,
		accountant: NewTokenAccountant(),
		state:      stateIdle,
	}, nil
}

// lastText returns the most recent transcript entry for a role
func (o *DebateOrchestrator) lastText(role Role) string {
	for i := len(o.transcript) - 1; i >= 0; i-- {
		if o.transcript[i].Role == role {
			return o.transcript[i].Text
		}
	}
	return ""
}

// fail transitions to FAILED and emits the pipeline's single error event
func (o *DebateOrchestrator) fail(em *emitter, err error) error {
	o.state = stateFailed
	em.emit(Event{Type: EventError, Message: err.Error()})
	return err
}

// Run executes the debate, pushing progress events into events. The
// channel is left open for the caller to close. Run stops issuing model
// calls as soon as cancellation is observed at a suspension point; an
// in-flight call's result is then discarded.
//
// Event order per run: for each round, round_start, then exchange_start /
// exchange pairs in (round, seq) order, then exactly one consensus_check;
// after the terminal round, synthesis_start, synthesis, done. A Doer,
// Reviewer or synthesis failure yields exactly one error event instead and
// no result escapes.
func (o *DebateOrchestrator) Run(ctx context.Context, events chan<- Event) (*DebateResult, error) {
	em := &emitter{ctx: ctx, ch: events}

	doerSys := doerSystem(o.cfg.WorkflowInstructions)
	reviewerSys := reviewerSystem(o.cfg.WorkflowInstructions)

	for round := 1; round <= o.cfg.MaxRounds; round++ {
		o.state = stateRoundActive
		if !em.emit(Event{Type: EventRoundStart, Round: round, MaxRounds: o.cfg.MaxRounds}) {
			return nil, ctx.Err()
		}

		for seq := 1; seq <= o.cfg.ExchangesPerRound; seq++ {
			role, label := exchangeSpec(round, seq)
			if !em.emit(Event{Type: EventExchangeStart, Round: round, Seq: seq, Role: role, Label: label}) {
				return nil, ctx.Err()
			}

			model := o.cfg.DoerModel
			system := doerSys
			if role == RoleReviewer {
				model = o.cfg.ReviewerModel
				system = reviewerSys
			}

			completion, err := o.backend.Complete(ctx, CompletionRequest{
				SystemPrompt: system,
				History:      []ChatMessage{{Role: "user", Text: buildExchangePrompt(o.cfg, o.transcript, round, seq)}},
				ModelID:      model,
				Temperature:  exchangeTemperature(seq),
				MaxTokens:    DefaultMaxTokens,
			})
			if err != nil {
				// An incomplete round would make synthesis misleading,
				// so a mid-round failure aborts the whole run.
				return nil, o.fail(em, fmt.Errorf("%s call failed in round %d: %w", role, round, err))
			}

			record := ExchangeRecord{
				Round: round,
				Seq:   seq,
				Role:  role,
				Label: label,
				Text:  completion.Text,
				Usage: completion.Usage,
			}
			o.transcript = append(o.transcript, record)
			o.accountant.Record(completion.Usage)

			if !em.emit(Event{Type: EventExchange, Round: round, Seq: seq, Role: role, Label: label, Text: completion.Text, Usage: &completion.Usage}) {
				return nil, ctx.Err()
			}
		}

		// One consensus check per completed round, the final round
		// included. Evaluation failure degrades to a non-consensus
		// verdict inside the evaluator; it never fails the run.
		o.state = stateConsensusCheck
		verdict, usage := o.evaluator.Evaluate(ctx, round, o.lastText(RoleDoer), o.lastText(RoleReviewer))
		o.verdicts = append(o.verdicts, verdict)
		o.accountant.Record(usage)

		if !em.emit(Event{Type: EventConsensusCheck, Round: round, Reached: &verdict.Reached, Reasoning: verdict.Reasoning, Usage: &usage}) {
			return nil, ctx.Err()
		}

		if verdict.Reached {
			break
		}
	}

	o.state = stateSynthesis
	if !em.emit(Event{Type: EventSynthesisStart}) {
		return nil, ctx.Err()
	}

	completion, err := o.backend.Complete(ctx, CompletionRequest{
		SystemPrompt: synthesisSystem,
		History:      []ChatMessage{{Role: "user", Text: buildSynthesisPrompt(o.cfg, o.lastText(RoleDoer), o.lastText(RoleReviewer))}},
		ModelID:      o.cfg.DoerModel,
		Temperature:  0.5,
		MaxTokens:    DefaultMaxTokens,
	})
	if err != nil {
		// No fallback synthesis: without it there is no debate result.
		return nil, o.fail(em, fmt.Errorf("synthesis call failed: %w", err))
	}
	o.accountant.Record(completion.Usage)

	if !em.emit(Event{Type: EventSynthesis, Text: completion.Text, Usage: &completion.Usage}) {
		return nil, ctx.Err()
	}

	total := o.accountant.Totals()
	result := &DebateResult{
		Transcript:    o.transcript,
		Consensus:     o.verdicts,
		SynthesisText: completion.Text,
		TotalUsage:    total,
	}
	o.state = stateDone
	em.emit(Event{Type: EventDone, TotalUsage: &total})
	return result, nil
}
