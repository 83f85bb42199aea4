// Package mock provides a scripted recognizer for tests and the session
// simulator. Each scripted step holds the complete word list for the
// snapshot at that call, mirroring how a real provider re-recognizes the
// whole cumulative buffer every time.
package mock

import (
	"context"
	"sync"

	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/recognizer"
)

// Step is the scripted outcome of one recognition call.
type Step struct {
	Words []models.Word // complete word list for the snapshot
	Err   error         // returned instead of a result when set
}

// Recognizer implements recognizer.Recognizer with scripted responses.
// When called more times than the script is long it repeats the last step.
type Recognizer struct {
	mu       sync.Mutex
	script   []Step
	calls    int
	requests []recognizer.Request

	// gate, when set, blocks each call until a value is received or the
	// context is cancelled. Lets tests hold a request in flight.
	gate chan struct{}
}

// New creates a scripted recognizer.
func New(script ...Step) *Recognizer {
	return &Recognizer{script: script}
}

// Provider returns the provider name.
func (r *Recognizer) Provider() string { return "mock" }

// SetGate installs a gate channel; each Recognize call blocks until the gate
// yields a value.
func (r *Recognizer) SetGate(gate chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = gate
}

// Calls returns how many times Recognize has been invoked.
func (r *Recognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Requests returns a copy of all recorded requests.
func (r *Recognizer) Requests() []recognizer.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recognizer.Request, len(r.requests))
	copy(out, r.requests)
	return out
}

// Recognize returns the next scripted step.
func (r *Recognizer) Recognize(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
	r.mu.Lock()
	idx := r.calls
	r.calls++
	r.requests = append(r.requests, req)
	gate := r.gate
	if idx >= len(r.script) {
		idx = len(r.script) - 1
	}
	var step Step
	if idx >= 0 {
		step = r.script[idx]
	}
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return recognizer.Result{}, ctx.Err()
		}
	}

	if step.Err != nil {
		return recognizer.Result{}, step.Err
	}

	var duration float64
	if n := len(step.Words); n > 0 {
		duration = step.Words[n-1].EndTime
	}
	return recognizer.Result{
		Words:                step.Words,
		TotalWords:           len(step.Words),
		MediaDurationSeconds: duration,
	}, nil
}

// WordSeq builds a word list from texts with 0.5s word spacing, all final,
// all speaker 0. Convenience for scripts.
func WordSeq(texts ...string) []models.Word {
	words := make([]models.Word, len(texts))
	for i, text := range texts {
		start := float64(i) * 0.5
		words[i] = models.Word{
			Text:      text,
			Speaker:   0,
			StartTime: start,
			EndTime:   start + 0.4,
			IsFinal:   true,
		}
	}
	return words
}
