// Package validator enforces the checker's input limits and returns
// per-field error details. Empty text is deliberately valid: the scoring
// contract defines zero results for empty documents.
package validator

import (
	"fmt"
	"strings"

	"github.com/docsim/docsim/pkg/config"
)

// ValidationError holds per-field validation failure messages. TooLarge is
// set when a size limit tripped, so callers can answer 413 instead of 400.
type ValidationError struct {
	Fields   map[string]string
	TooLarge bool
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateDocument checks a document submission against the configured
// limits.
func ValidateDocument(name, text string, cfg config.CheckerConfig) error {
	errs := make(map[string]string)
	tooLarge := false

	if cfg.MaxNameLength > 0 && len(name) > cfg.MaxNameLength {
		errs["name"] = fmt.Sprintf("name must be at most %d characters", cfg.MaxNameLength)
	}
	if cfg.MaxDocumentBytes > 0 && int64(len(text)) > cfg.MaxDocumentBytes {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", cfg.MaxDocumentBytes)
		tooLarge = true
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs, TooLarge: tooLarge}
	}
	return nil
}

// ValidateCompare checks both sides of a two-text comparison against the
// document size limit.
func ValidateCompare(textA, textB string, cfg config.CheckerConfig) error {
	errs := make(map[string]string)
	tooLarge := false

	if cfg.MaxDocumentBytes > 0 {
		if int64(len(textA)) > cfg.MaxDocumentBytes {
			errs["text_a"] = fmt.Sprintf("text_a must be at most %d bytes", cfg.MaxDocumentBytes)
			tooLarge = true
		}
		if int64(len(textB)) > cfg.MaxDocumentBytes {
			errs["text_b"] = fmt.Sprintf("text_b must be at most %d bytes", cfg.MaxDocumentBytes)
			tooLarge = true
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs, TooLarge: tooLarge}
	}
	return nil
}

// ValidateThreshold checks a similarity threshold is within [0, 1].
func ValidateThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return &ValidationError{Fields: map[string]string{
			"threshold": "threshold must be between 0.0 and 1.0",
		}}
	}
	return nil
}
