package phoneme

import "strings"

// maxSpellings bounds the number of candidate spellings FromIPA returns.
// The first spelling always uses the preferred grapheme at every position, so
// the bound only trims the rarer homophone variants.
const maxSpellings = 8

// FromIPA converts an IPA string back to Bengali script.
//
// The conversion is one-to-many: every phoneme is rendered with its preferred
// grapheme first, and for each position whose phoneme has homophone spellings
// (জ/য, শ/ষ, ন/ণ, ঙ/ং, ত/ৎ) an additional candidate is produced with that
// single position swapped. Candidates are ordered by the frequency ranking of
// the underlying table: the all-preferred spelling first, then variants in
// position order, rarer homophones last.
//
// Vowels render as independent letters at word starts and as dependent signs
// after consonants; the inherent vowel ɔ after a consonant renders as
// nothing at all. Literal passthrough tokens survive verbatim. The returned
// slice always has at least one element when ipa is non-empty.
func FromIPA(ipa string) []string {
	tokens := Segment(ipa)
	if len(tokens) == 0 {
		return nil
	}

	primary := render(tokens, -1, 0)
	out := []string{primary}
	seen := map[string]struct{}{primary: {}}

	for pos, tok := range tokens {
		alts := spellings[tok]
		if len(alts) < 2 {
			continue
		}
		// Vowel signs have a single rendering after a consonant; swapping
		// the independent letter there would corrupt the syllable.
		if _, isVowel := vowelSigns[tok]; isVowel {
			continue
		}
		for alt := 1; alt < len(alts); alt++ {
			cand := render(tokens, pos, alt)
			if _, dup := seen[cand]; dup {
				continue
			}
			seen[cand] = struct{}{}
			out = append(out, cand)
			if len(out) >= maxSpellings {
				return out
			}
		}
	}
	return out
}

// render writes tokens as Bengali script, using the alternate spelling with
// index altIdx at position altPos and the preferred spelling everywhere else.
// altPos -1 renders the all-preferred spelling.
func render(tokens []string, altPos, altIdx int) string {
	var b strings.Builder
	prevConsonant := false

	for pos, tok := range tokens {
		if !IsPhoneme(tok) {
			b.WriteString(tok)
			prevConsonant = false
			continue
		}

		if sign, isVowel := vowelSigns[tok]; isVowel && prevConsonant {
			b.WriteString(sign)
			prevConsonant = false
			continue
		}

		alts := spellings[tok]
		idx := 0
		if pos == altPos && altIdx < len(alts) {
			idx = altIdx
		}
		b.WriteString(alts[idx])
		_, prevConsonant = consonantPhonemes[tok]
	}
	return b.String()
}
