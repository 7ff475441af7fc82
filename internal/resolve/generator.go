package resolve

import (
	"log/slog"

	"github.com/brac-ds/shruti/internal/phoneme"
)

// DefaultMaxCandidates bounds the candidate set per request.
const DefaultMaxCandidates = 8

// DefaultConfusables is the documented confusable-phoneme table: groups of
// IPA phonemes that acoustic models and regional dialects frequently
// conflate. In grapheme terms: ড↔ড়, শ↔ষ↔স, ন↔ণ, ই↔ঈ and উ↔ঊ. The table is a
// domain-tuning parameter, not an algorithmic choice — deployments override
// it through configuration.
var DefaultConfusables = [][]string{
	{"ɖ", "ɽ"},
	{"ʃ", "ʂ", "s"},
	{"n", "ɳ"},
	{"i", "iː"},
	{"u", "uː"},
}

// rule is one directed substitution derived from a confusable group.
type rule struct {
	from, to string
}

// Generator produces alternative Bengali-script candidates for a
// low-confidence hypothesis by round-tripping through IPA with one
// confusable substitution per candidate. It is read-only after construction
// and safe for concurrent use.
type Generator struct {
	rules         []rule
	maxCandidates int
}

// GeneratorOption is a functional option for configuring a [Generator].
type GeneratorOption func(*Generator)

// WithConfusables replaces the confusable-phoneme groups. Each group is a
// set of IPA phonemes; every ordered pair within a group becomes one
// directed substitution rule.
func WithConfusables(groups [][]string) GeneratorOption {
	return func(g *Generator) {
		g.rules = expandGroups(groups)
	}
}

// WithMaxCandidates bounds the candidate set size. Values below 1 keep the
// default of 8. The direct candidate always survives truncation.
func WithMaxCandidates(n int) GeneratorOption {
	return func(g *Generator) {
		if n >= 1 {
			g.maxCandidates = n
		}
	}
}

// NewGenerator constructs a [Generator] with the supplied options. With no
// options it uses [DefaultConfusables] and [DefaultMaxCandidates].
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		rules:         expandGroups(DefaultConfusables),
		maxCandidates: DefaultMaxCandidates,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// expandGroups flattens confusable groups into directed substitution rules,
// preserving group order and pair order within each group so candidate
// generation is deterministic.
func expandGroups(groups [][]string) []rule {
	var rules []rule
	for _, group := range groups {
		for _, from := range group {
			for _, to := range group {
				if from != to {
					rules = append(rules, rule{from: from, to: to})
				}
			}
		}
	}
	return rules
}

// Generate produces the candidate set for hypothesis text.
//
// The direct candidate always comes first. Each directed confusable rule then
// contributes at most one perturbed candidate: the rule's substitution is
// applied at every occurrence of its source phoneme in the IPA form, and the
// perturbed IPA is rendered back to Bengali taking the top-ranked spelling.
// Rules never combine — one substitution per candidate keeps the search
// space linear in the table size. Candidates identical to an earlier one are
// dropped, and the set is truncated to the configured bound in insertion
// order.
//
// Conversion failures for individual perturbations drop only that candidate;
// an empty or untouched hypothesis simply yields the direct candidate alone.
func (g *Generator) Generate(text string) []Candidate {
	out := []Candidate{{Text: text, Origin: OriginDirect, PerturbationID: -1}}
	seen := map[string]struct{}{text: {}}

	if text == "" {
		return out
	}

	form, err := phoneme.ToIPA(text)
	if err != nil {
		// Unconvertible hypothesis text: fallback generation is impossible,
		// but the direct candidate still stands.
		slog.Debug("candidate generation skipped", "err", err)
		return out
	}
	tokens := phoneme.Segment(form.IPA)

	for id, r := range g.rules {
		if len(out) >= g.maxCandidates {
			break
		}

		perturbed, changed := substitute(tokens, r)
		if !changed {
			continue
		}

		spellings := phoneme.FromIPA(perturbed)
		if len(spellings) == 0 {
			continue
		}
		cand := spellings[0]
		if _, dup := seen[cand]; dup {
			continue
		}
		seen[cand] = struct{}{}
		out = append(out, Candidate{Text: cand, Origin: OriginPerturbed, PerturbationID: id})
	}

	return out
}

// substitute applies rule r at every occurrence in tokens and reports
// whether anything changed.
func substitute(tokens []string, r rule) (string, bool) {
	changed := false
	var b []byte
	for _, tok := range tokens {
		if tok == r.from {
			b = append(b, r.to...)
			changed = true
			continue
		}
		b = append(b, tok...)
	}
	return string(b), changed
}
