// Package corrections accepts user-submitted corrected transcripts,
// validates them, and appends them to a durable sink for later retraining.
//
// The queue performs no deduplication: duplicate corrections for the same
// audio are all retained, and the sink is treated as at-least-once. Offline
// aggregation happens downstream.
package corrections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Record is a single user correction. Records are append-only; nothing in
// this package updates or deletes them once accepted.
type Record struct {
	OriginalHypothesis string    `json:"original_hypothesis"`
	CorrectedText      string    `json:"corrected_text"`
	AudioRef           string    `json:"audio_ref"`
	SubmittedAt        time.Time `json:"submitted_at"`
	LocaleHint         string    `json:"locale_hint,omitempty"`
}

// Validation failures for a submitted correction.
var (
	ErrEmptyCorrection = errors.New("corrections: corrected text is empty")
	ErrNotBengali      = errors.New("corrections: corrected text contains no Bengali script")
)

// UnknownReferenceError reports an audio reference that does not resolve to
// a previously issued transcription request.
type UnknownReferenceError struct {
	Reference string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("corrections: unknown audio reference %q", e.Reference)
}

// Sink is the durable append-only store for accepted corrections.
//
// Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// Queue validates corrections and hands accepted ones to the sink.
type Queue struct {
	registry *Registry
	sink     Sink
}

// NewQueue constructs a Queue. The registry decides which audio references
// are acceptable; the sink receives every accepted record.
func NewQueue(registry *Registry, sink Sink) *Queue {
	return &Queue{registry: registry, sink: sink}
}

// Submit validates rec and appends it to the sink. It reports whether the
// record was accepted; a false return always carries the reason.
//
// The sink is never touched for a rejected record.
func (q *Queue) Submit(ctx context.Context, rec Record) (bool, error) {
	if strings.TrimSpace(rec.CorrectedText) == "" {
		return false, ErrEmptyCorrection
	}
	if !containsBengali(rec.CorrectedText) {
		return false, ErrNotBengali
	}
	if !q.registry.Known(rec.AudioRef) {
		return false, &UnknownReferenceError{Reference: rec.AudioRef}
	}

	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now().UTC()
	}
	if err := q.sink.Append(ctx, rec); err != nil {
		return false, fmt.Errorf("corrections: append: %w", err)
	}
	return true, nil
}

func containsBengali(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Bengali, r) {
			return true
		}
	}
	return false
}
