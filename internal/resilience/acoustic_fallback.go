package resilience

import (
	"context"

	"github.com/brac-ds/shruti/pkg/audio"
	"github.com/brac-ds/shruti/pkg/provider/acoustic"
)

// AcousticFallback implements [acoustic.Provider] with automatic failover
// across multiple acoustic backends. Each backend has its own circuit
// breaker, so a flapping whisper server is bypassed in favour of a healthy
// fallback until its reset timeout elapses.
type AcousticFallback struct {
	group *FallbackGroup[acoustic.Provider]
}

// Compile-time interface assertion.
var _ acoustic.Provider = (*AcousticFallback)(nil)

// NewAcousticFallback creates an [AcousticFallback] with primary as the
// preferred backend.
func NewAcousticFallback(primary acoustic.Provider, primaryName string, cfg FallbackConfig) *AcousticFallback {
	return &AcousticFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// Ping reports whether any backend in the chain can serve. The chain is
// ready as soon as one provider's probe succeeds; a provider without a
// probe of its own counts as reachable.
func (f *AcousticFallback) Ping(ctx context.Context) error {
	var lastErr error
	for i := range f.group.entries {
		p, ok := f.group.entries[i].value.(acoustic.Pinger)
		if !ok {
			return nil
		}
		err := p.Ping(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// AddFallback registers an additional acoustic provider as a fallback.
func (f *AcousticFallback) AddFallback(name string, provider acoustic.Provider) {
	f.group.AddFallback(name, provider)
}

// Infer runs inference against the first healthy provider. If the primary
// fails, subsequent fallbacks are tried in registration order.
func (f *AcousticFallback) Infer(ctx context.Context, clip *audio.Clip) (acoustic.Hypothesis, error) {
	return ExecuteWithResult(f.group, func(p acoustic.Provider) (acoustic.Hypothesis, error) {
		return p.Infer(ctx, clip)
	})
}
