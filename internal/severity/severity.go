// Package severity buckets raw similarity scores into the presentation
// tiers shared by the CLI and the HTTP API. The core scoring code never
// applies these thresholds; they exist purely for reporting.
package severity

import "fmt"

// Tier thresholds, inclusive.
const (
	HighThreshold     = 0.8
	ModerateThreshold = 0.5
)

// Level is a reporting tier for a similarity score.
type Level int

const (
	Low Level = iota
	Moderate
	High
)

// Classify maps a raw score onto its tier: High at 0.8 and above, Moderate
// at 0.5 and above, Low otherwise.
func Classify(score float64) Level {
	switch {
	case score >= HighThreshold:
		return High
	case score >= ModerateThreshold:
		return Moderate
	default:
		return Low
	}
}

func (l Level) String() string {
	switch l {
	case High:
		return "HIGH"
	case Moderate:
		return "MODERATE"
	default:
		return "LOW"
	}
}

// Advice returns the reviewer guidance attached to a tier. Low similarity
// carries no advice.
func (l Level) Advice() string {
	switch l {
	case High:
		return "Potential plagiarism detected!"
	case Moderate:
		return "Review recommended"
	default:
		return ""
	}
}

// FormatScore renders a score in [0,1] as a percentage with two decimals,
// e.g. 0.87349 becomes "87.35%".
func FormatScore(score float64) string {
	return fmt.Sprintf("%.2f%%", score*100)
}
