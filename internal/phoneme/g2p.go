// Package phoneme implements grapheme-to-phoneme conversion between Bengali
// script and IPA.
//
// The forward direction ([ToIPA]) scans Bengali text longest-grapheme-first:
// irregular conjuncts are matched as three-rune units before single letters,
// and any conjunct not listed in the irregular table decomposes through the
// virama rule into its component consonants' phonemes. Non-Bengali printable
// characters (digits, punctuation, Latin loanwords) pass through verbatim at
// their original offsets.
//
// The inverse direction ([FromIPA]) is one-to-many: a single IPA sequence may
// correspond to several valid Bengali spellings (homophones such as জ/য or
// শ/ষ/স). FromIPA therefore returns an ordered list of plausible spellings
// ranked by a static orthographic frequency table. The ordering is a
// documented heuristic that narrows a caller's search space, not a
// correctness guarantee.
//
// All functions are pure and safe for concurrent use — the conversion tables
// are read-only after package initialisation.
package phoneme

import (
	"fmt"
	"strings"
	"unicode"
)

// Source identifies the script a [Form] was derived from.
type Source string

const (
	SourceBengali Source = "bengali"
	SourceLatin   Source = "latin"
)

// Form is a phonetic rendering of a piece of text. It is derived, never
// mutated: recomputed on every conversion and never cached across requests.
type Form struct {
	// IPA is the phonetic transcription. Non-phonetic spans from the source
	// text appear verbatim.
	IPA string

	// SourceScript records which script the form was derived from.
	SourceScript Source
}

// UnsupportedGraphemeError reports a control character that cannot be part of
// any transcription. Printable characters never trigger it — unknown
// printable runes pass through as non-phonetic spans instead.
type UnsupportedGraphemeError struct {
	Grapheme rune
	Offset   int
}

func (e *UnsupportedGraphemeError) Error() string {
	return fmt.Sprintf("phoneme: unsupported control character %U at offset %d", e.Grapheme, e.Offset)
}

// ToIPA converts Bengali-script text to its IPA form.
//
// Characters outside the Bengali block are treated as non-phonetic spans and
// reinserted verbatim. The only failure mode is a non-printable control
// character in the input (newlines and tabs count as whitespace, not
// controls).
func ToIPA(text string) (Form, error) {
	runes := []rune(text)
	var b strings.Builder

	for i := 0; i < len(runes); {
		r := runes[i]
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return Form{}, &UnsupportedGraphemeError{Grapheme: r, Offset: i}
		}

		// Irregular conjuncts first (three runes), then single graphemes.
		if i+2 < len(runes) {
			if ph, ok := graphemeMap3[string(runes[i:i+3])]; ok {
				for _, p := range ph {
					b.WriteString(p)
				}
				i += 3
				continue
			}
		}
		if ph, ok := graphemeMap1[string(r)]; ok {
			for _, p := range ph {
				b.WriteString(p)
			}
			i++
			continue
		}

		// Non-phonetic span: pass through verbatim.
		b.WriteRune(r)
		i++
	}

	return Form{IPA: b.String(), SourceScript: SourceBengali}, nil
}

// Segment splits an IPA string into phoneme tokens using longest-match-first
// scanning over the phoneme inventory. Runes that are not part of any known
// phoneme (spaces, digits, passthrough spans) become single-rune literal
// tokens, so Segment never loses input.
func Segment(ipa string) []string {
	runes := []rune(ipa)
	var tokens []string

	for i := 0; i < len(runes); {
		matched := false
		for n := maxPhonemeRunes; n >= 1; n-- {
			if i+n > len(runes) {
				continue
			}
			cand := string(runes[i : i+n])
			if _, ok := inventory[cand]; ok {
				tokens = append(tokens, cand)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			tokens = append(tokens, string(runes[i]))
			i++
		}
	}
	return tokens
}

// IsPhoneme reports whether token is part of the IPA phoneme inventory, as
// opposed to a literal passthrough token produced by [Segment].
func IsPhoneme(token string) bool {
	_, ok := inventory[token]
	return ok
}

// ToLatin renders an IPA string in Latin script using the standard
// romanisation table. Literal passthrough tokens are kept verbatim. The
// rendering is lossy: aspirated/retroflex distinctions collapse onto the
// digraphs used in everyday Bengali romanisation.
func ToLatin(ipa string) string {
	var b strings.Builder
	for _, tok := range Segment(ipa) {
		if roman, ok := romanization[tok]; ok {
			b.WriteString(roman)
			continue
		}
		b.WriteString(tok)
	}
	return b.String()
}

// LatinToIPA converts romanised Bengali text to its IPA form using
// longest-match-first scanning over the romanisation digraphs. Unknown
// characters pass through verbatim. Case is folded before matching.
func LatinToIPA(text string) Form {
	runes := []rune(strings.ToLower(text))
	var b strings.Builder

	for i := 0; i < len(runes); {
		matched := false
		for n := 3; n >= 1; n-- {
			if i+n > len(runes) {
				continue
			}
			if ph, ok := romanMaps[n][string(runes[i:i+n])]; ok {
				for _, p := range ph {
					b.WriteString(p)
				}
				i += n
				matched = true
				break
			}
		}
		if !matched {
			b.WriteRune(runes[i])
			i++
		}
	}

	return Form{IPA: b.String(), SourceScript: SourceLatin}
}
