package phoneme

// entry pairs a Bengali grapheme (possibly a multi-rune conjunct) with its
// IPA phoneme sequence.
type entry struct {
	grapheme string
	phonemes []string
}

// s is a shorthand to build a phoneme slice.
func s(ps ...string) []string { return ps }

// bengaliPhonemes maps Bengali graphemes to IPA phoneme sequences.
// Conjunct entries (three runes: consonant + virama + consonant) must come
// before single-rune entries so that the scanner can try the longest match
// first. Conjuncts not listed here decompose through the virama rule: the
// virama itself maps to nothing, so the component consonants' phonemes are
// emitted back to back.
var bengaliPhonemes = []entry{
	// Irregular conjuncts whose pronunciation is not the plain concatenation
	// of their components.
	{"ক্ষ", s("k", "kʰ")},
	{"জ্ঞ", s("g", "g")},
	{"হ্ম", s("m", "m")},

	// Independent vowels.
	{"অ", s("ɔ")},
	{"আ", s("a")},
	{"ই", s("i")},
	{"ঈ", s("iː")},
	{"উ", s("u")},
	{"ঊ", s("uː")},
	{"ঋ", s("r", "i")},
	{"এ", s("e")},
	{"ঐ", s("ɔi")},
	{"ও", s("o")},
	{"ঔ", s("ou")},

	// Consonants.
	{"ক", s("k")},
	{"খ", s("kʰ")},
	{"গ", s("g")},
	{"ঘ", s("gʱ")},
	{"ঙ", s("ŋ")},
	{"চ", s("tʃ")},
	{"ছ", s("tʃʰ")},
	{"জ", s("dʒ")},
	{"ঝ", s("dʒʱ")},
	{"ঞ", s("ɲ")},
	{"ট", s("ʈ")},
	{"ঠ", s("ʈʰ")},
	{"ড", s("ɖ")},
	{"ঢ", s("ɖʱ")},
	{"ণ", s("ɳ")},
	{"ত", s("t̪")},
	{"থ", s("t̪ʰ")},
	{"দ", s("d̪")},
	{"ধ", s("d̪ʱ")},
	{"ন", s("n")},
	{"প", s("p")},
	{"ফ", s("pʰ")},
	{"ব", s("b")},
	{"ভ", s("bʱ")},
	{"ম", s("m")},
	{"য", s("dʒ")},
	{"র", s("r")},
	{"ল", s("l")},
	{"শ", s("ʃ")},
	{"ষ", s("ʂ")},
	{"স", s("s")},
	{"হ", s("ɦ")},

	// Post-reform letters and signs.
	{"ড়", s("ɽ")},
	{"ঢ়", s("ɽʱ")},
	{"য়", s("j")},
	{"ৎ", s("t̪")},
	{"ং", s("ŋ")},
	{"ঃ", s("h")},
	{"ঁ", s("̃")},

	// Dependent vowel signs (matras).
	{"া", s("a")},
	{"ি", s("i")},
	{"ী", s("iː")},
	{"ু", s("u")},
	{"ূ", s("uː")},
	{"ৃ", s("r", "i")},
	{"ে", s("e")},
	{"ৈ", s("ɔi")},
	{"ো", s("o")},
	{"ৌ", s("ou")},

	// Virama joins consonants into a cluster; it contributes no phoneme of
	// its own, which makes unlisted conjuncts decompose into their component
	// consonants.
	{"্", s()},
}

// graphemeMap3 and graphemeMap1 index bengaliPhonemes by rune length for fast
// longest-match-first lookup. Built at init time.
var (
	graphemeMap3 map[string][]string
	graphemeMap1 map[string][]string
)

// inventory is the set of all IPA phonemes the tables can produce, used for
// segmenting IPA strings back into phoneme tokens. maxPhonemeRunes is the
// rune length of the longest phoneme in the inventory.
var (
	inventory       map[string]struct{}
	maxPhonemeRunes int
)

// consonantPhonemes marks phonemes that take a dependent vowel sign after
// them when rendering back to Bengali script.
var consonantPhonemes map[string]struct{}

// spellings maps each IPA phoneme to its Bengali spellings ranked by
// orthographic frequency. The first element is the preferred spelling; later
// elements are homophones that occur in real orthography but are rarer when
// no further signal is available (e.g. জ before য, ন before ণ). Vowels have
// two renderings: the independent letter and the dependent sign; see
// vowelSigns.
var spellings = map[string][]string{
	"ɔ":  {"অ"},
	"a":  {"আ"},
	"i":  {"ই"},
	"iː": {"ঈ"},
	"u":  {"উ"},
	"uː": {"ঊ"},
	"e":  {"এ"},
	"ɔi": {"ঐ"},
	"o":  {"ও"},
	"ou": {"ঔ"},

	"k":  {"ক"},
	"kʰ": {"খ"},
	"g":  {"গ"},
	"gʱ": {"ঘ"},
	"ŋ":  {"ঙ", "ং"},
	"tʃ": {"চ"},
	"tʃʰ": {"ছ"},
	"dʒ": {"জ", "য"},
	"dʒʱ": {"ঝ"},
	"ɲ":  {"ঞ"},
	"ʈ":  {"ট"},
	"ʈʰ": {"ঠ"},
	"ɖ":  {"ড"},
	"ɖʱ": {"ঢ"},
	"ɳ":  {"ণ"},
	"t̪":  {"ত", "ৎ"},
	"t̪ʰ": {"থ"},
	"d̪":  {"দ"},
	"d̪ʱ": {"ধ"},
	"n":  {"ন", "ণ"},
	"p":  {"প"},
	"pʰ": {"ফ"},
	"b":  {"ব"},
	"bʱ": {"ভ"},
	"m":  {"ম"},
	"r":  {"র"},
	"l":  {"ল"},
	"ʃ":  {"শ", "ষ"},
	"ʂ":  {"ষ", "শ"},
	"s":  {"স", "শ", "ষ"},
	"ɦ":  {"হ"},
	"ɽ":  {"ড়"},
	"ɽʱ": {"ঢ়"},
	"j":  {"য়"},
	"h":  {"ঃ"},
	"̃":  {"ঁ"},
}

// vowelSigns maps vowel phonemes to their dependent (matra) form, used when
// the preceding emitted grapheme is a consonant. The inherent vowel ɔ has no
// matra: a consonant with no vowel sign already carries it.
var vowelSigns = map[string]string{
	"a":  "া",
	"i":  "ি",
	"iː": "ী",
	"u":  "ু",
	"uː": "ূ",
	"e":  "ে",
	"ɔi": "ৈ",
	"o":  "ো",
	"ou": "ৌ",
	"ɔ":  "",
}

// romanization maps IPA phonemes to their Latin rendering. The mapping is
// intentionally lossy: aspiration collapses pairs like ত/ট onto the same
// roman letters, matching how Bengali is romanised in everyday writing.
var romanization = map[string]string{
	"ɔ": "o", "a": "a", "i": "i", "iː": "i", "u": "u", "uː": "u",
	"e": "e", "ɔi": "oi", "o": "o", "ou": "ou",
	"k": "k", "kʰ": "kh", "g": "g", "gʱ": "gh", "ŋ": "ng",
	"tʃ": "ch", "tʃʰ": "chh", "dʒ": "j", "dʒʱ": "jh", "ɲ": "ny",
	"ʈ": "t", "ʈʰ": "th", "ɖ": "d", "ɖʱ": "dh", "ɳ": "n",
	"t̪": "t", "t̪ʰ": "th", "d̪": "d", "d̪ʱ": "dh", "n": "n",
	"p": "p", "pʰ": "ph", "b": "b", "bʱ": "bh", "m": "m",
	"r": "r", "l": "l", "ʃ": "sh", "ʂ": "sh", "s": "s", "ɦ": "h",
	"ɽ": "r", "ɽʱ": "rh", "j": "y", "h": "h", "̃": "",
}

// romanPhonemes maps Latin digraphs and letters back to IPA phonemes,
// longest key first at scan time. Where romanisation collapsed several
// phonemes onto one spelling the dental/plain member of the pair is chosen.
var romanPhonemes = []entry{
	{"chh", s("tʃʰ")},
	{"kh", s("kʰ")},
	{"gh", s("gʱ")},
	{"ng", s("ŋ")},
	{"ch", s("tʃ")},
	{"jh", s("dʒʱ")},
	{"ny", s("ɲ")},
	{"th", s("t̪ʰ")},
	{"dh", s("d̪ʱ")},
	{"ph", s("pʰ")},
	{"bh", s("bʱ")},
	{"sh", s("ʃ")},
	{"rh", s("ɽʱ")},
	{"oi", s("ɔi")},
	{"ou", s("ou")},
	{"k", s("k")},
	{"g", s("g")},
	{"j", s("dʒ")},
	{"t", s("t̪")},
	{"d", s("d̪")},
	{"n", s("n")},
	{"p", s("p")},
	{"b", s("b")},
	{"m", s("m")},
	{"y", s("j")},
	{"r", s("r")},
	{"l", s("l")},
	{"s", s("s")},
	{"h", s("ɦ")},
	{"a", s("a")},
	{"i", s("i")},
	{"u", s("u")},
	{"e", s("e")},
	{"o", s("o")},
}

// romanMap indexes romanPhonemes by key length (3, 2, 1) for longest-match
// scanning.
var romanMaps [4]map[string][]string

func init() {
	graphemeMap3 = make(map[string][]string)
	graphemeMap1 = make(map[string][]string)
	inventory = make(map[string]struct{})
	consonantPhonemes = make(map[string]struct{})

	for _, e := range bengaliPhonemes {
		runes := []rune(e.grapheme)
		if len(runes) == 3 {
			graphemeMap3[e.grapheme] = e.phonemes
		} else {
			graphemeMap1[e.grapheme] = e.phonemes
		}
		for _, p := range e.phonemes {
			inventory[p] = struct{}{}
			if n := len([]rune(p)); n > maxPhonemeRunes {
				maxPhonemeRunes = n
			}
		}
	}

	for p := range inventory {
		if _, vowel := vowelSigns[p]; !vowel {
			consonantPhonemes[p] = struct{}{}
		}
	}
	// Pure sign phonemes never take a matra after them either, but ঁ (the
	// nasalisation sign) attaches to the preceding syllable, so treating it
	// as a consonant for matra placement would be wrong.
	delete(consonantPhonemes, "̃")
	delete(consonantPhonemes, "h")

	for i := range romanMaps {
		romanMaps[i] = make(map[string][]string)
	}
	for _, e := range romanPhonemes {
		romanMaps[len([]rune(e.grapheme))][e.grapheme] = e.phonemes
	}
}
