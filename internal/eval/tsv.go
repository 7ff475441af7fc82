package eval

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadTSV parses a tab-separated test set into samples. The first row is a
// header; the reader locates the reference and hypothesis columns by name:
//
//	id column:         id, path, or audio_path (optional)
//	reference column:  reference or transcript
//	hypothesis column: hypothesis or prediction
//
// Rows with an empty reference and hypothesis are skipped.
func ReadTSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("eval: read TSV header: %w", err)
	}
	idCol, refCol, hypCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id", "path", "audio_path":
			idCol = i
		case "reference", "transcript":
			refCol = i
		case "hypothesis", "prediction":
			hypCol = i
		}
	}
	if refCol < 0 {
		return nil, fmt.Errorf("eval: TSV header has no reference/transcript column")
	}
	if hypCol < 0 {
		return nil, fmt.Errorf("eval: TSV header has no hypothesis/prediction column")
	}

	var samples []Sample
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("eval: read TSV row %d: %w", line, err)
		}
		sample := Sample{
			Reference:  strings.TrimSpace(field(row, refCol)),
			Hypothesis: strings.TrimSpace(field(row, hypCol)),
		}
		if idCol >= 0 {
			sample.ID = strings.TrimSpace(field(row, idCol))
		}
		if sample.ID == "" {
			sample.ID = fmt.Sprintf("row-%d", line)
		}
		if sample.Reference == "" && sample.Hypothesis == "" {
			continue
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
