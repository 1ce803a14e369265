package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/docsim/docsim/internal/severity"
	"github.com/docsim/docsim/internal/similarity"
)

type compareOptions struct {
	threshold  float64
	verbose    bool
	jsonOutput bool
}

type pairReport struct {
	DocA     string  `json:"doc_a"`
	DocB     string  `json:"doc_b"`
	Score    float64 `json:"score"`
	Severity string  `json:"severity"`
	Advice   string  `json:"advice,omitempty"`
}

type scanReport struct {
	Documents   int          `json:"documents"`
	PairsScored int          `json:"pairs_scored"`
	Threshold   float64      `json:"threshold"`
	Pairs       []pairReport `json:"pairs"`
	AvgScore    float64      `json:"avg_score"`
	MaxScore    float64      `json:"max_score"`
	MinScore    float64      `json:"min_score"`
}

func runCompare(cmd *cobra.Command, paths []string, opts *compareOptions) error {
	texts := make([]string, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		texts[i] = string(data)
	}

	if opts.verbose && !opts.jsonOutput {
		for i, path := range paths {
			words := len(similarity.Tokenize(texts[i]))
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s: %d words\n", path, words)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}

	if len(paths) == 2 {
		return runPairMode(cmd, paths, texts, opts)
	}
	return runScanMode(cmd, paths, texts, opts)
}

// runPairMode compares exactly two documents with IDF weights scoped to
// just this pair.
func runPairMode(cmd *cobra.Command, paths, texts []string, opts *compareOptions) error {
	score := similarity.Compare(texts[0], texts[1])
	level := severity.Classify(score)

	if opts.jsonOutput {
		return writeJSON(cmd, pairReport{
			DocA:     paths[0],
			DocB:     paths[1],
			Score:    score,
			Severity: level.String(),
			Advice:   level.Advice(),
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Comparing %s and %s\n", paths[0], paths[1])
	fmt.Fprintf(out, "Similarity: %s\n", severity.FormatScore(score))
	fmt.Fprintf(out, "Severity:   %s\n", level.String())
	if advice := level.Advice(); advice != "" {
		fmt.Fprintf(out, "Note:       %s\n", advice)
	}
	if score < opts.threshold {
		fmt.Fprintf(out, "Score is below the %s threshold.\n", severity.FormatScore(opts.threshold))
	}
	return nil
}

// runScanMode scores every pair among three or more documents against one
// IDF computed over the whole set.
func runScanMode(cmd *cobra.Command, paths, texts []string, opts *compareOptions) error {
	comparator := similarity.NewComparator()
	for i, text := range texts {
		comparator.AddDocument(text, paths[i])
	}
	results := comparator.CompareAll()

	report := scanReport{
		Documents:   len(paths),
		PairsScored: len(results),
		Threshold:   opts.threshold,
		Pairs:       make([]pairReport, 0, len(results)),
		MinScore:    1,
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
		if r.Score > report.MaxScore {
			report.MaxScore = r.Score
		}
		if r.Score < report.MinScore {
			report.MinScore = r.Score
		}
		if r.Score >= opts.threshold {
			level := severity.Classify(r.Score)
			report.Pairs = append(report.Pairs, pairReport{
				DocA:     r.NameA,
				DocB:     r.NameB,
				Score:    r.Score,
				Severity: level.String(),
				Advice:   level.Advice(),
			})
		}
	}
	if len(results) > 0 {
		report.AvgScore = sum / float64(len(results))
	} else {
		report.MinScore = 0
	}

	if opts.jsonOutput {
		return writeJSON(cmd, report)
	}

	out := cmd.OutOrStdout()
	if len(report.Pairs) == 0 {
		fmt.Fprintf(out, "No document pairs at or above the %s threshold.\n", severity.FormatScore(opts.threshold))
	} else if stdoutIsTerminal() {
		rows := make([][]string, len(report.Pairs))
		for i, p := range report.Pairs {
			rows[i] = []string{p.DocA, p.DocB, severity.FormatScore(p.Score), p.Severity}
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Document A", "Document B", "Score", "Severity"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
	} else {
		for _, p := range report.Pairs {
			fmt.Fprintf(out, "%s <-> %s: %s [%s]\n", p.DocA, p.DocB, severity.FormatScore(p.Score), p.Severity)
		}
	}

	if opts.verbose && len(results) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Scored %d pairs across %d documents\n", report.PairsScored, report.Documents)
		fmt.Fprintf(out, "Average similarity: %s\n", severity.FormatScore(report.AvgScore))
		fmt.Fprintf(out, "Highest similarity: %s\n", severity.FormatScore(report.MaxScore))
		fmt.Fprintf(out, "Lowest similarity:  %s\n", severity.FormatScore(report.MinScore))
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
