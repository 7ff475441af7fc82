// Package resolve implements the confidence-gated transcription resolution
// pipeline.
//
// One acoustic hypothesis enters per request. When its confidence meets the
// threshold it is accepted as-is — the candidate generator and reranker are
// never touched on this path. Below the threshold the [Generator] produces
// alternative spellings via confusable-phoneme perturbation, the language
// model scores them, and the top-ranked candidate wins. The pipeline is a
// single-pass, synchronous state machine with no retries and no shared
// mutable state; a [Resolver] is read-only after construction and safe for
// concurrent use.
package resolve

import (
	"context"
	"sort"
	"strings"

	"github.com/brac-ds/shruti/internal/langmodel"
	"github.com/brac-ds/shruti/internal/script"
)

// DefaultConfidenceThreshold is the documented default gate between the
// direct and fallback paths. The value comes from the source deployment and
// is not empirically calibrated — production deployments tune it through
// configuration.
const DefaultConfidenceThreshold = 0.7

// tieEpsilon is the score difference below which two candidates are
// considered tied and deterministic tie-breaking applies.
const tieEpsilon = 1e-6

// Scorer scores a token sequence under a language model. The natural-log
// probability is at or below zero; values at or below [langmodel.LogZero]
// mean the sequence could not be scored.
//
// Implementations must be safe for concurrent use.
type Scorer interface {
	SentenceLogProb(words []string) float64
}

// CandidateGenerator produces the candidate set for a hypothesis text.
//
// Implementations must be safe for concurrent use.
type CandidateGenerator interface {
	Generate(text string) []Candidate
}

// Option is a functional option for configuring a [Resolver].
type Option func(*Resolver)

// WithThreshold sets the confidence threshold below which the fallback
// pipeline runs. Default: 0.7.
func WithThreshold(t float64) Option {
	return func(r *Resolver) {
		r.threshold = t
	}
}

// WithScorer attaches a language-model scorer for candidate reranking. When
// nil (the default), the reranker runs in disabled mode: every candidate
// scores 0 in insertion order and the first candidate differing from the
// hypothesis wins.
func WithScorer(s Scorer) Option {
	return func(r *Resolver) {
		r.scorer = s
	}
}

// WithGenerator replaces the candidate generator. Default: [NewGenerator]
// with the documented confusable table.
func WithGenerator(g CandidateGenerator) Option {
	return func(r *Resolver) {
		if g != nil {
			r.gen = g
		}
	}
}

// Resolver is the resolution state machine. It is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	threshold float64
	gen       CandidateGenerator
	scorer    Scorer
}

// NewResolver constructs a [Resolver] with the supplied options.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		threshold: DefaultConfidenceThreshold,
		gen:       NewGenerator(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Threshold returns the configured confidence threshold.
func (r *Resolver) Threshold() float64 { return r.threshold }

// Resolve runs the state machine for one hypothesis and returns the final
// transcript with its metadata. It never returns empty output for a
// non-empty hypothesis: when fallback fails entirely the original text comes
// back unchanged under [MethodFailedFallback].
//
// The only error condition is a cancelled context; the pipeline itself has
// no failure mode that surfaces to the caller.
func (r *Resolver) Resolve(ctx context.Context, hyp Hypothesis) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Direct path: the confidence gate is consulted before any fallback
	// work so high-confidence requests cost nothing extra.
	if hyp.Confidence >= r.threshold {
		return r.finish(hyp, hyp.Text, MethodAcceptedDirect, nil), nil
	}

	candidates := r.gen.Generate(hyp.Text)
	if len(candidates) == 0 {
		// Unreachable with the stock generator (the direct candidate is
		// unconditional) but kept as a defensive terminal state.
		return r.finish(hyp, hyp.Text, MethodFailedFallback, nil), nil
	}

	if r.scorer == nil {
		return r.resolveUnscored(hyp, candidates), nil
	}
	return r.resolveScored(hyp, candidates), nil
}

// resolveUnscored handles the disabled-reranker mode: candidates keep their
// insertion order with a flat score of 0, and the first candidate that
// differs from the hypothesis wins. With no differing candidate the fallback
// produced nothing usable and the original stands.
func (r *Resolver) resolveUnscored(hyp Hypothesis, candidates []Candidate) *Result {
	ranked := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedCandidate{Candidate: c}
	}

	for _, rc := range ranked {
		if rc.Text != hyp.Text {
			return r.finish(hyp, rc.Text, MethodAcceptedFallback, ranked)
		}
	}
	return r.finish(hyp, hyp.Text, MethodFailedFallback, ranked)
}

// resolveScored ranks candidates by normalised language-model score. A
// candidate the model cannot score keeps the worst possible rank instead of
// being dropped; only when every candidate is unscorable does the state
// machine take the failed-fallback branch.
func (r *Resolver) resolveScored(hyp Hypothesis, candidates []Candidate) *Result {
	ranked := make([]RankedCandidate, len(candidates))
	scorable := 0

	for i, c := range candidates {
		tokens := strings.Fields(c.Text)
		total := r.scorer.SentenceLogProb(tokens)

		score := langmodel.LogZero
		if total > langmodel.LogZero {
			// Length normalisation: divide by token count so longer
			// candidates are not penalised purely for length.
			n := len(tokens)
			if n == 0 {
				n = 1
			}
			score = total / float64(n)
			scorable++
		}
		ranked[i] = RankedCandidate{Candidate: c, LogProbability: score}
	}

	if scorable == 0 {
		return r.finish(hyp, hyp.Text, MethodFailedFallback, ranked)
	}

	sortRanked(ranked)
	return r.finish(hyp, ranked[0].Text, MethodAcceptedFallback, ranked)
}

// sortRanked orders candidates by descending score; ties within tieEpsilon
// prefer the direct candidate, then lexicographic text order. The ordering
// is fully deterministic: two runs over identical inputs produce
// bit-identical output.
func sortRanked(ranked []RankedCandidate) {
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		diff := a.LogProbability - b.LogProbability
		if diff > tieEpsilon {
			return true
		}
		if diff < -tieEpsilon {
			return false
		}
		if a.Origin != b.Origin {
			return a.Origin == OriginDirect
		}
		return a.Text < b.Text
	})
}

// finish assembles the immutable result, attaching Latin and IPA renderings
// of the final text when conversion succeeds.
func (r *Resolver) finish(hyp Hypothesis, finalText string, method Method, alternates []RankedCandidate) *Result {
	res := &Result{
		FinalText:  finalText,
		Confidence: hyp.Confidence,
		Method:     method,
		Alternates: alternates,
	}
	if latin, err := script.Transliterate(finalText, script.Bengali, script.Latin); err == nil {
		res.FinalTextLatin = latin
	}
	if ipa, err := script.Transliterate(finalText, script.Bengali, script.IPA); err == nil {
		res.FinalTextIPA = ipa
	}
	return res
}
