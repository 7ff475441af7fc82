// Package acoustic defines the Provider interface for acoustic inference
// backends.
//
// An acoustic provider wraps a speech recognition model (a local whisper.cpp
// model, a remote whisper-server, or a fine-tuned wav2vec2 service) and
// exposes a uniform batch interface: audio in, one [Hypothesis] out. The
// resolution pipeline treats the provider as a black box — it never retries
// inference itself and propagates [ErrModelUnavailable] unchanged.
//
// Implementations must be safe for concurrent use; one Infer call per
// inbound transcription request may be in flight at any time.
package acoustic

import (
	"context"
	"errors"

	"github.com/brac-ds/shruti/pkg/audio"
)

// ErrModelUnavailable indicates the backing model could not serve the
// request at all (process not running, model not loaded, connection
// refused). Callers treat it as a hard stop for the whole request.
var ErrModelUnavailable = errors.New("acoustic: model unavailable")

// Hypothesis is the output of one acoustic inference call. It is immutable
// once created: the resolution pipeline reads it but never modifies it.
type Hypothesis struct {
	// Text is the recognised Bengali-script transcript.
	Text string

	// Tokens is the ordered token sequence the model emitted, usually the
	// whitespace-split words of Text.
	Tokens []string

	// Confidence is the model's scalar certainty in [0, 1] for the whole
	// hypothesis.
	Confidence float64
}

// Provider is the abstraction over any acoustic inference backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Infer transcribes clip and returns a single hypothesis with its
	// confidence. Returns an error wrapping [ErrModelUnavailable] when the
	// backend cannot serve requests at all.
	Infer(ctx context.Context, clip *audio.Clip) (Hypothesis, error)
}

// Pinger is implemented by providers that can cheaply verify their backend
// without running inference. Readiness probes use it; providers without a
// meaningful probe simply don't implement it.
type Pinger interface {
	// Ping reports whether the backend is reachable and ready to serve.
	Ping(ctx context.Context) error
}
