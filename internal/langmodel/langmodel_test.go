package langmodel

import (
	"math"
	"strings"
	"testing"
)

// testARPA is a tiny trigram model over a two-sentence Bengali corpus.
// Probabilities are illustrative, not normalised.
const testARPA = `
Some header noise the parser must skip.

\data\
ngram 1=6
ngram 2=4
ngram 3=2

\1-grams:
-1.0	<s>	-0.5
-1.0	</s>
-0.3	আমি	-0.4
-0.7	ভাল	-0.2
-0.9	সুনি	-0.1
-2.0	শুনি

\2-grams:
-0.2	<s> আমি	-0.3
-0.5	আমি ভাল
-0.6	আমি সুনি
-0.4	ভাল </s>

\3-grams:
-0.1	<s> আমি ভাল
-0.3	আমি ভাল </s>

\end\
`

func loadTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA: %v", err)
	}
	return m
}

func TestLoadARPA_OrderAndVocab(t *testing.T) {
	m := loadTestModel(t)
	if m.Order() != 3 {
		t.Errorf("Order() = %d; want 3", m.Order())
	}
	if m.VocabSize() != 6 {
		t.Errorf("VocabSize() = %d; want 6", m.VocabSize())
	}
}

func TestLoadARPA_Base10ToNaturalLog(t *testing.T) {
	m := loadTestModel(t)
	// The unigram আমি is stored as -0.3 in base 10.
	got := m.unigramLogProb("আমি")
	want := -0.3 * math.Ln10
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("unigram log prob = %f; want %f", got, want)
	}
}

func TestSentenceLogProb_KnownSentence(t *testing.T) {
	m := loadTestModel(t)
	// <s> আমি ভাল </s> is fully covered by trigrams:
	// p(আমি|<s>) from the bigram, then both trigrams.
	got := m.SentenceLogProb([]string{"আমি", "ভাল"})
	want := (-0.2 + -0.1 + -0.3) * math.Ln10
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("SentenceLogProb = %f; want %f", got, want)
	}
}

func TestSentenceLogProb_PrefersInDomainCandidate(t *testing.T) {
	m := loadTestModel(t)
	inDomain := m.SentenceLogProb([]string{"আমি", "সুনি"})
	rare := m.SentenceLogProb([]string{"আমি", "শুনি"})
	if inDomain <= rare {
		t.Errorf("SentenceLogProb(আমি সুনি) = %f should exceed SentenceLogProb(আমি শুনি) = %f", inDomain, rare)
	}
}

func TestSentenceLogProb_OutOfVocabulary(t *testing.T) {
	m := loadTestModel(t)
	got := m.SentenceLogProb([]string{"অজানা"})
	if got > LogZero {
		t.Errorf("SentenceLogProb of OOV token = %f; want <= LogZero", got)
	}
}

func TestLoadARPA_MalformedLine(t *testing.T) {
	bad := "\\data\\\nngram 1=1\n\n\\1-grams:\n-1.0\n\\end\\\n"
	if _, err := LoadARPA(strings.NewReader(bad)); err == nil {
		t.Error("LoadARPA accepted a malformed 1-gram line")
	}
}

func TestLoadARPA_MissingHeader(t *testing.T) {
	if _, err := LoadARPA(strings.NewReader("no arpa content here")); err == nil {
		t.Error("LoadARPA accepted input without a \\data\\ section")
	}
}
