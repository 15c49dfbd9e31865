package main

import "sync"

// TokenAccountant accumulates token usage across the model calls of one
// run. Each pipeline owns its own instance; accountants are never shared
// between the Standard and Debate sides.
type TokenAccountant struct {
	mu     sync.Mutex
	input  int64
	output int64
	calls  int
}

// NewTokenAccountant creates an empty accountant
func NewTokenAccountant() *TokenAccountant {
	return &TokenAccountant{}
}

// Record adds the usage of one completed call
func (t *TokenAccountant) Record(u TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.input += u.InputTokens
	t.output += u.OutputTokens
	t.calls++
}

// Totals returns the accumulated usage
func (t *TokenAccountant) Totals() TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TokenUsage{InputTokens: t.input, OutputTokens: t.output}
}

// Calls returns the number of calls recorded
func (t *TokenAccountant) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
