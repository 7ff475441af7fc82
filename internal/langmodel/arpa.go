package langmodel

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Load reads an ARPA-format language model from the file at path.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("langmodel: open %q: %w", path, err)
	}
	defer f.Close()

	m, err := LoadARPA(f)
	if err != nil {
		return nil, fmt.Errorf("langmodel: parse %q: %w", path, err)
	}
	return m, nil
}

// LoadARPA reads a language model in ARPA text format from r. ARPA files
// store base-10 log probabilities; they are converted to natural log on load
// so that all scoring downstream happens in one log base.
func LoadARPA(r io.Reader) (*Model, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Skip the preamble until the \data\ marker.
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == `\data\` {
			break
		}
	}

	// The ngram count declarations tell us the model order.
	maxOrder := 0
	var line string
	for sc.Scan() {
		line = strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "ngram ") {
			break
		}
		if eq := strings.IndexByte(line, '='); eq > 6 {
			if order, err := strconv.Atoi(strings.TrimSpace(line[6:eq])); err == nil && order > maxOrder {
				maxOrder = order
			}
		}
	}
	if maxOrder == 0 {
		return nil, fmt.Errorf("langmodel: no ngram counts found in ARPA header")
	}

	m := newModel(maxOrder)

	// Parse each \N-grams: section until \end\.
	for {
		if line == `\end\` {
			break
		}
		if order, ok := sectionOrder(line); ok {
			for sc.Scan() {
				line = strings.TrimSpace(sc.Text())
				if line == "" {
					continue
				}
				if strings.HasPrefix(line, `\`) {
					break
				}
				if err := m.addEntry(order, line); err != nil {
					return nil, err
				}
			}
			continue
		}
		if !sc.Scan() {
			break
		}
		line = strings.TrimSpace(sc.Text())
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("langmodel: read ARPA: %w", err)
	}
	return m, nil
}

// sectionOrder parses a section header like \2-grams: into its order.
func sectionOrder(line string) (int, bool) {
	if !strings.HasPrefix(line, `\`) || !strings.HasSuffix(line, "-grams:") {
		return 0, false
	}
	order, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, `\`), "-grams:"))
	if err != nil {
		return 0, false
	}
	return order, true
}

// addEntry parses one ARPA data line: log10prob, N words, optional backoff.
func (m *Model) addEntry(order int, line string) error {
	fields := strings.Fields(line)
	if len(fields) < order+1 {
		return fmt.Errorf("langmodel: malformed %d-gram line %q", order, line)
	}

	logProb, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("langmodel: parse log prob in %q: %w", line, err)
	}
	g := gram{logProb: logProb * math.Ln10}

	if len(fields) > order+1 {
		bo, err := strconv.ParseFloat(fields[order+1], 64)
		if err != nil {
			return fmt.Errorf("langmodel: parse backoff in %q: %w", line, err)
		}
		g.logBackoff = bo * math.Ln10
	}

	words := fields[1 : order+1]
	switch order {
	case 1:
		m.unigrams[words[0]] = g
	case 2:
		m.bigrams[[2]string{words[0], words[1]}] = g
	case 3:
		m.trigrams[[3]string{words[0], words[1], words[2]}] = g
	default:
		// Higher orders are legal ARPA but beyond this model; ignore them
		// rather than failing, so 4-gram artifacts still load as trigrams.
	}
	return nil
}
