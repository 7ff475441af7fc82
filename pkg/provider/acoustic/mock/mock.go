// Package mock provides a test double for the acoustic package interfaces.
//
// Use Provider to feed controlled Hypothesis values and inspect which clips
// were delivered.
//
// Example:
//
//	p := &mock.Provider{
//	    Hypotheses: []acoustic.Hypothesis{{Text: "আমি", Confidence: 0.9}},
//	}
//	hyp, _ := p.Infer(ctx, clip)
package mock

import (
	"context"
	"sync"

	"github.com/brac-ds/shruti/pkg/audio"
	"github.com/brac-ds/shruti/pkg/provider/acoustic"
)

// InferCall records a single invocation of Provider.Infer.
type InferCall struct {
	// Ctx is the context passed to Infer.
	Ctx context.Context
	// Clip is the clip passed to Infer.
	Clip *audio.Clip
}

// Provider is a mock implementation of acoustic.Provider.
type Provider struct {
	mu sync.Mutex

	// Hypotheses are returned in order by successive Infer calls. When the
	// list is exhausted (or empty) the last element repeats; with no
	// elements at all a zero Hypothesis is returned.
	Hypotheses []acoustic.Hypothesis

	// InferErr, if non-nil, is returned as the error from Infer.
	InferErr error

	// InferCalls records every call to Infer.
	InferCalls []InferCall
}

// Ensure Provider implements acoustic.Provider at compile time.
var _ acoustic.Provider = (*Provider)(nil)

// Infer records the call and returns the next scripted hypothesis.
func (p *Provider) Infer(ctx context.Context, clip *audio.Clip) (acoustic.Hypothesis, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := len(p.InferCalls)
	p.InferCalls = append(p.InferCalls, InferCall{Ctx: ctx, Clip: clip})

	if p.InferErr != nil {
		return acoustic.Hypothesis{}, p.InferErr
	}
	if len(p.Hypotheses) == 0 {
		return acoustic.Hypothesis{}, nil
	}
	if call >= len(p.Hypotheses) {
		call = len(p.Hypotheses) - 1
	}
	return p.Hypotheses[call], nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.InferCalls = nil
}
