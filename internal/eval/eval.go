// Package eval scores transcription output against reference transcripts.
//
// It computes word error rate (WER) over whitespace tokens and character
// error rate (CER) over runes, plus an error analysis that aligns reference
// and hypothesis words to surface the most common substitutions and how many
// of them a confusable-phoneme rule can explain.
package eval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	"golang.org/x/sync/errgroup"

	"github.com/brac-ds/shruti/internal/phoneme"
	"github.com/brac-ds/shruti/internal/resolve"
)

// DefaultWorkers bounds concurrent utterance scoring.
const DefaultWorkers = 8

// Sample is one test-set utterance: a reference transcript and the system's
// hypothesis for the same audio.
type Sample struct {
	ID         string
	Reference  string
	Hypothesis string
}

// Utterance is a scored sample.
type Utterance struct {
	Sample

	// WordEdits is the word-level edit distance; WordCount the reference
	// token count.
	WordEdits int
	WordCount int

	// CharEdits is the rune-level edit distance; CharCount the reference
	// rune count.
	CharEdits int
	CharCount int
}

// WER returns the utterance-level word error rate. An empty reference with a
// non-empty hypothesis reports a rate of 1 so the result stays finite.
func (u Utterance) WER() float64 { return rate(u.WordEdits, u.WordCount) }

// CER returns the utterance-level character error rate.
func (u Utterance) CER() float64 { return rate(u.CharEdits, u.CharCount) }

func rate(edits, count int) float64 {
	if count == 0 {
		if edits == 0 {
			return 0
		}
		return 1
	}
	return float64(edits) / float64(count)
}

// Substitution is a reference word the system replaced, with the word it
// produced instead.
type Substitution struct {
	Reference  string
	Hypothesis string
}

// SubstitutionCount is an aggregated substitution with its frequency and a
// Jaro-Winkler similarity between the two word forms.
type SubstitutionCount struct {
	Substitution
	Count int

	// Similarity is the Jaro-Winkler similarity of the surface forms, a
	// quick signal for near-miss spellings versus outright different words.
	Similarity float64

	// ConfusableExplained reports whether a single confusable-phoneme rule
	// maps the reference word's pronunciation onto the hypothesis word's.
	ConfusableExplained bool
}

// Report is the aggregate evaluation result.
type Report struct {
	Utterances []Utterance

	// WER and CER are corpus-level rates: total edits over total reference
	// tokens (runes), not a mean of per-utterance rates.
	WER float64
	CER float64

	TotalWordEdits int
	TotalWords     int
	TotalCharEdits int
	TotalChars     int

	// Substitutions lists the most frequent word substitutions, most common
	// first. Insertions and Deletions list words the system added or lost.
	Substitutions []SubstitutionCount
	Insertions    map[string]int
	Deletions     map[string]int

	// ConfusableSubstitutions counts aligned substitutions explainable by a
	// confusable-phoneme rule; these are the errors the resolution pipeline
	// targets.
	ConfusableSubstitutions int
}

// topSubstitutions caps the substitution list in the report.
const topSubstitutions = 20

// Evaluate scores all samples concurrently and aggregates them into a
// [Report]. workers at or below zero uses [DefaultWorkers].
func Evaluate(ctx context.Context, samples []Sample, workers int) (*Report, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("eval: no samples to evaluate")
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	utterances := make([]Utterance, len(samples))
	subs := make([][]Substitution, len(samples))
	ins := make([][]string, len(samples))
	dels := make([][]string, len(samples))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sample := range samples {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			utterances[i] = score(sample)
			subs[i], ins[i], dels[i] = alignWords(
				strings.Fields(sample.Reference),
				strings.Fields(sample.Hypothesis),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}

	report := &Report{
		Utterances: utterances,
		Insertions: map[string]int{},
		Deletions:  map[string]int{},
	}
	subCounts := map[Substitution]int{}
	for i, u := range utterances {
		report.TotalWordEdits += u.WordEdits
		report.TotalWords += u.WordCount
		report.TotalCharEdits += u.CharEdits
		report.TotalChars += u.CharCount
		for _, s := range subs[i] {
			subCounts[s]++
		}
		for _, w := range ins[i] {
			report.Insertions[w]++
		}
		for _, w := range dels[i] {
			report.Deletions[w]++
		}
	}
	report.WER = rate(report.TotalWordEdits, report.TotalWords)
	report.CER = rate(report.TotalCharEdits, report.TotalChars)
	report.Substitutions = rankSubstitutions(subCounts)
	for _, s := range report.Substitutions {
		if s.ConfusableExplained {
			report.ConfusableSubstitutions += s.Count
		}
	}
	return report, nil
}

func score(sample Sample) Utterance {
	refWords := strings.Fields(sample.Reference)
	hypWords := strings.Fields(sample.Hypothesis)
	return Utterance{
		Sample:    sample,
		WordEdits: WordEditDistance(refWords, hypWords),
		WordCount: len(refWords),
		CharEdits: matchr.Levenshtein(sample.Reference, sample.Hypothesis),
		CharCount: len([]rune(sample.Reference)),
	}
}

func rankSubstitutions(counts map[Substitution]int) []SubstitutionCount {
	ranked := make([]SubstitutionCount, 0, len(counts))
	for sub, n := range counts {
		ranked = append(ranked, SubstitutionCount{
			Substitution:        sub,
			Count:               n,
			Similarity:          matchr.JaroWinkler(sub.Reference, sub.Hypothesis, false),
			ConfusableExplained: confusableExplains(sub.Reference, sub.Hypothesis),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		if ranked[i].Reference != ranked[j].Reference {
			return ranked[i].Reference < ranked[j].Reference
		}
		return ranked[i].Hypothesis < ranked[j].Hypothesis
	})
	if len(ranked) > topSubstitutions {
		ranked = ranked[:topSubstitutions]
	}
	return ranked
}

// confusableExplains reports whether applying one directed confusable rule to
// the reference word's phoneme sequence yields the hypothesis word's.
func confusableExplains(ref, hyp string) bool {
	refForm, err := phoneme.ToIPA(ref)
	if err != nil {
		return false
	}
	hypForm, err := phoneme.ToIPA(hyp)
	if err != nil {
		return false
	}
	refSeq := phoneme.Segment(refForm.IPA)
	hypSeq := phoneme.Segment(hypForm.IPA)
	if len(refSeq) != len(hypSeq) {
		return false
	}

	for _, group := range resolve.DefaultConfusables {
		for _, from := range group {
			for _, to := range group {
				if from == to {
					continue
				}
				if matchesWithRule(refSeq, hypSeq, from, to) {
					return true
				}
			}
		}
	}
	return false
}

// matchesWithRule checks whether replacing every from-phoneme with to turns
// ref into hyp, with at least one replacement applied.
func matchesWithRule(ref, hyp []string, from, to string) bool {
	applied := false
	for i, p := range ref {
		want := p
		if p == from {
			want = to
			applied = true
		}
		if hyp[i] != want {
			return false
		}
	}
	return applied
}
