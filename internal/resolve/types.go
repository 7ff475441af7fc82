package resolve

import "github.com/brac-ds/shruti/pkg/provider/acoustic"

// Origin describes how a candidate transcript came to be.
type Origin string

const (
	// OriginDirect marks the acoustic hypothesis itself.
	OriginDirect Origin = "direct"

	// OriginPerturbed marks a candidate produced by a confusable-phoneme
	// substitution.
	OriginPerturbed Origin = "perturbed"
)

// Candidate is one possible Bengali-script transcript for a request.
type Candidate struct {
	// Text is the candidate transcript.
	Text string

	// Origin records whether this is the raw hypothesis or a perturbation.
	Origin Origin

	// PerturbationID identifies the directed confusable rule that produced a
	// perturbed candidate. -1 for the direct candidate.
	PerturbationID int
}

// RankedCandidate is a candidate with its language-model score attached.
type RankedCandidate struct {
	Candidate

	// LogProbability is the natural-log probability of the candidate text
	// under the language model, normalised by token count so longer
	// candidates are not penalised purely for length. At most 0; at or below
	// [langmodel.LogZero] when the model could not score the text.
	LogProbability float64
}

// Method describes which path of the resolution state machine produced the
// final transcript.
type Method string

const (
	// MethodAcceptedDirect means confidence met the threshold and the
	// hypothesis was accepted without fallback work.
	MethodAcceptedDirect Method = "accepted_direct"

	// MethodAcceptedFallback means the candidate pipeline ran and the
	// top-ranked candidate was accepted.
	MethodAcceptedFallback Method = "accepted_fallback"

	// MethodFailedFallback means the fallback pipeline could not improve on
	// the hypothesis (no scorable candidates); the original text is returned
	// unchanged.
	MethodFailedFallback Method = "failed_fallback"
)

// Result is the sole externally visible output of the resolution pipeline.
// It is immutable once returned.
type Result struct {
	// FinalText is the resolved Bengali-script transcript. Never empty when
	// the hypothesis text was non-empty.
	FinalText string

	// FinalTextLatin is the Latin rendering of FinalText, when conversion
	// succeeded.
	FinalTextLatin string

	// FinalTextIPA is the IPA rendering of FinalText, when conversion
	// succeeded.
	FinalTextIPA string

	// Confidence is the acoustic confidence of the underlying hypothesis.
	Confidence float64

	// Method records which state-machine path produced FinalText.
	Method Method

	// Alternates lists the scored candidates in rank order. Empty on the
	// direct path.
	Alternates []RankedCandidate
}

// Hypothesis is re-exported so that callers of this package do not need to
// import the provider package for the common case.
type Hypothesis = acoustic.Hypothesis
