// Command shruti-eval scores transcription output against reference
// transcripts and reports WER/CER with an error-pattern analysis.
//
// The input is a TSV file with a header row naming a reference/transcript
// column and a hypothesis/prediction column, for example the predictions file
// written by a batch transcription run:
//
//	shruti-eval -test-data results/predictions.tsv -output results/metrics.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brac-ds/shruti/internal/eval"
)

func main() {
	os.Exit(run())
}

func run() int {
	testData := flag.String("test-data", "", "path to the test TSV (required)")
	output := flag.String("output", "", "write the full report as JSON to this file")
	workers := flag.Int("workers", eval.DefaultWorkers, "concurrent scoring workers")
	detailed := flag.Bool("detailed", false, "print per-utterance rates and error analysis")
	flag.Parse()

	if *testData == "" {
		fmt.Fprintln(os.Stderr, "shruti-eval: -test-data is required")
		flag.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(*testData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shruti-eval: %v\n", err)
		return 1
	}
	samples, err := eval.ReadTSV(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "shruti-eval: %v\n", err)
		return 1
	}

	report, err := eval.Evaluate(ctx, samples, *workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shruti-eval: %v\n", err)
		return 1
	}

	printReport(report, *detailed)

	if *output != "" {
		if err := writeJSON(*output, report); err != nil {
			fmt.Fprintf(os.Stderr, "shruti-eval: %v\n", err)
			return 1
		}
		fmt.Printf("report written to %s\n", *output)
	}
	return 0
}

func printReport(report *eval.Report, detailed bool) {
	fmt.Printf("samples: %d\n", len(report.Utterances))
	fmt.Printf("WER: %.2f%% (%d edits / %d words)\n", report.WER*100, report.TotalWordEdits, report.TotalWords)
	fmt.Printf("CER: %.2f%% (%d edits / %d chars)\n", report.CER*100, report.TotalCharEdits, report.TotalChars)
	fmt.Printf("confusable-explained substitutions: %d\n", report.ConfusableSubstitutions)

	if !detailed {
		return
	}

	if len(report.Substitutions) > 0 {
		fmt.Println("\nmost common substitutions:")
		for _, s := range report.Substitutions {
			marker := ""
			if s.ConfusableExplained {
				marker = " [confusable]"
			}
			fmt.Printf("  %s → %s: %d (similarity %.2f)%s\n",
				s.Reference, s.Hypothesis, s.Count, s.Similarity, marker)
		}
	}

	fmt.Println("\nper-utterance rates:")
	for _, u := range report.Utterances {
		fmt.Printf("  %s\tWER %.2f%%\tCER %.2f%%\n", u.ID, u.WER()*100, u.CER()*100)
	}
}

func writeJSON(path string, report *eval.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		f.Close()
		return fmt.Errorf("encode report: %w", err)
	}
	return f.Close()
}
