package main

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BenchmarkOutcome is the joint completion signal for the two pipelines.
// Each side finishes with either a final text or an error; one side's
// failure never cancels the other.
type BenchmarkOutcome struct {
	StandardText  string
	StandardUsage TokenUsage
	StandardErr   error

	Debate    *DebateResult
	DebateErr error
}

// ReadyForReview reports whether the comparison step may run. It is never
// attempted against a pipeline that failed.
func (o *BenchmarkOutcome) ReadyForReview() bool {
	return o.StandardErr == nil && o.DebateErr == nil
}

// RunBenchmark runs the Standard pipeline and the Debate orchestrator
// concurrently, forwarding both event streams, tagged per pipeline, into
// out. The two sides share nothing: separate transcripts, accountants and
// failure state. RunBenchmark returns once both pipelines have finished
// and all of their events have been forwarded; out is left open for the
// caller to close.
func RunBenchmark(ctx context.Context, backend Backend, std StandardRun, orchestrator *DebateOrchestrator, out chan<- Event) *BenchmarkOutcome {
	outcome := &BenchmarkOutcome{}

	standardEvents := make(chan Event, 16)
	debateEvents := make(chan Event, 16)

	var forwarders sync.WaitGroup
	forwarders.Add(2)
	go forwardEvents(PipelineStandard, standardEvents, out, &forwarders)
	go forwardEvents(PipelineDebate, debateEvents, out, &forwarders)

	// Pipeline errors are recorded on the outcome, never returned, so the
	// group context is never cancelled by one side failing.
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(standardEvents)
		text, usage, err := RunStandardAnalysis(ctx, std, backend, standardEvents)
		outcome.StandardText = text
		outcome.StandardUsage = usage
		outcome.StandardErr = err
		return nil
	})

	g.Go(func() error {
		defer close(debateEvents)
		result, err := orchestrator.Run(ctx, debateEvents)
		outcome.Debate = result
		outcome.DebateErr = err
		return nil
	})

	g.Wait()
	forwarders.Wait()
	return outcome
}

// forwardEvents tags each event with its pipeline and pushes it onto the
// merged stream. Per-pipeline ordering is preserved; the two streams are
// interleaved in arrival order.
func forwardEvents(pipeline string, in <-chan Event, out chan<- Event, wg *sync.WaitGroup) {
	defer wg.Done()
	for event := range in {
		event.Pipeline = pipeline
		out <- event
	}
}
