// Package script converts text between Bengali orthography, IPA, and Latin
// transliteration.
//
// The three scripts form a closed set modelled as a string enum, and every
// conversion is a pure function dispatched through a small table keyed by the
// (from, to) pair. IPA is the pivot: Bengali↔Latin conversions route through
// it. Conversions are lossy in general (homophones collapse), but identity
// conversions are exact.
package script

import (
	"fmt"

	"github.com/brac-ds/shruti/internal/phoneme"
)

// Script identifies a writing system handled by [Transliterate].
type Script string

const (
	Bengali Script = "bengali"
	IPA     Script = "ipa"
	Latin   Script = "latin"
)

// IsValid reports whether s is a recognised script.
func (s Script) IsValid() bool {
	switch s {
	case Bengali, IPA, Latin:
		return true
	}
	return false
}

// UnsupportedScriptPairError reports a conversion direction that has no
// dispatch entry. All nine pairs over {Bengali, IPA, Latin} are implemented,
// so this only fires for invalid Script values.
type UnsupportedScriptPairError struct {
	From Script
	To   Script
}

func (e *UnsupportedScriptPairError) Error() string {
	return fmt.Sprintf("script: no conversion from %q to %q", e.From, e.To)
}

// convertFunc converts text from one fixed script to another.
type convertFunc func(text string) (string, error)

// conversions dispatches on the (from, to) pair. Identity pairs return the
// input unchanged.
var conversions = map[[2]Script]convertFunc{
	{Bengali, Bengali}: identity,
	{IPA, IPA}:         identity,
	{Latin, Latin}:     identity,

	{Bengali, IPA}:   bengaliToIPA,
	{Bengali, Latin}: bengaliToLatin,
	{IPA, Bengali}:   ipaToBengali,
	{IPA, Latin}:     ipaToLatin,
	{Latin, IPA}:     latinToIPA,
	{Latin, Bengali}: latinToBengali,
}

// Transliterate converts text between two scripts. It returns an
// [*UnsupportedScriptPairError] when either script is not a member of the
// closed set; conversion itself only fails for inputs the G2P layer rejects
// (control characters in Bengali text).
func Transliterate(text string, from, to Script) (string, error) {
	fn, ok := conversions[[2]Script{from, to}]
	if !ok {
		return "", &UnsupportedScriptPairError{From: from, To: to}
	}
	return fn(text)
}

func identity(text string) (string, error) { return text, nil }

func bengaliToIPA(text string) (string, error) {
	form, err := phoneme.ToIPA(text)
	if err != nil {
		return "", err
	}
	return form.IPA, nil
}

func bengaliToLatin(text string) (string, error) {
	ipa, err := bengaliToIPA(text)
	if err != nil {
		return "", err
	}
	return phoneme.ToLatin(ipa), nil
}

// ipaToBengali takes the top-ranked spelling; callers that need the full
// homophone list use [phoneme.FromIPA] directly.
func ipaToBengali(text string) (string, error) {
	spellings := phoneme.FromIPA(text)
	if len(spellings) == 0 {
		return "", nil
	}
	return spellings[0], nil
}

func ipaToLatin(text string) (string, error) {
	return phoneme.ToLatin(text), nil
}

func latinToIPA(text string) (string, error) {
	return phoneme.LatinToIPA(text).IPA, nil
}

func latinToBengali(text string) (string, error) {
	return ipaToBengali(phoneme.LatinToIPA(text).IPA)
}
