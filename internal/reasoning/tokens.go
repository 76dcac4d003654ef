package reasoning

import "sync"

// TokenTracker accumulates token usage across API calls.
type TokenTracker struct {
	mu     sync.Mutex
	input  int64
	output int64
}

// NewTokenTracker creates a zeroed tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records usage from one API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.input += input
	t.output += output
}

// InputTokens returns the accumulated input token count.
func (t *TokenTracker) InputTokens() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.input
}

// OutputTokens returns the accumulated output token count.
func (t *TokenTracker) OutputTokens() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.output
}

// Total returns the combined token count.
func (t *TokenTracker) Total() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.input + t.output
}
