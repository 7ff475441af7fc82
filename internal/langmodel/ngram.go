// Package langmodel provides the statistical n-gram language model used to
// rerank transcription candidates.
//
// The model is a classic backoff trigram model over whitespace-separated
// Bengali word tokens, loaded once at process start from an ARPA file and
// immutable afterwards — concurrent reads need no locking. Scoring returns
// natural-log probabilities; [LogZero] stands in for log(0) when a token
// sequence is entirely outside the model's vocabulary.
package langmodel

// LogZero represents log(0) in log-domain arithmetic. Any score at or below
// it means the model could not assign the sequence a finite probability.
const LogZero = -1e30

// sentence boundary markers added around every scored token sequence.
const (
	sentenceStart = "<s>"
	sentenceEnd   = "</s>"
)

// gram holds the log probability of one n-gram and the backoff weight
// applied when a longer n-gram built on it is missing.
type gram struct {
	logProb    float64
	logBackoff float64
}

// Model is a backoff n-gram language model. The zero value is unusable; use
// [LoadARPA] to build one. A nil *Model is treated as a disabled model by
// the reranker.
type Model struct {
	order    int
	unigrams map[string]gram
	bigrams  map[[2]string]gram
	trigrams map[[3]string]gram
}

// newModel returns an empty model of the given order.
func newModel(order int) *Model {
	return &Model{
		order:    order,
		unigrams: make(map[string]gram),
		bigrams:  make(map[[2]string]gram),
		trigrams: make(map[[3]string]gram),
	}
}

// Order returns the model order (3 for a trigram model).
func (m *Model) Order() int { return m.order }

// VocabSize returns the number of distinct unigram entries.
func (m *Model) VocabSize() int { return len(m.unigrams) }

// SentenceLogProb returns the total natural-log probability of a word
// sequence, with sentence boundary markers added at both ends. The result is
// at or below [LogZero] when every token is out of vocabulary.
func (m *Model) SentenceLogProb(words []string) float64 {
	total := 0.0
	history := []string{sentenceStart}
	for _, w := range words {
		total += m.logProb(history, w)
		history = append(history, w)
	}
	total += m.logProb(history, sentenceEnd)
	return total
}

// logProb returns the log probability of word given its history, backing off
// to shorter n-grams when the full context is unseen.
func (m *Model) logProb(history []string, word string) float64 {
	if m.order >= 3 && len(history) >= 2 {
		key := [3]string{history[len(history)-2], history[len(history)-1], word}
		if g, ok := m.trigrams[key]; ok {
			return g.logProb
		}
		biKey := [2]string{key[0], key[1]}
		if g, ok := m.bigrams[biKey]; ok {
			return g.logBackoff + m.bigramLogProb(key[1], word)
		}
	}
	if m.order >= 2 && len(history) >= 1 {
		return m.bigramLogProb(history[len(history)-1], word)
	}
	return m.unigramLogProb(word)
}

func (m *Model) bigramLogProb(prev, word string) float64 {
	if g, ok := m.bigrams[[2]string{prev, word}]; ok {
		return g.logProb
	}
	if g, ok := m.unigrams[prev]; ok {
		return g.logBackoff + m.unigramLogProb(word)
	}
	return m.unigramLogProb(word)
}

func (m *Model) unigramLogProb(word string) float64 {
	if g, ok := m.unigrams[word]; ok {
		return g.logProb
	}
	return LogZero
}
