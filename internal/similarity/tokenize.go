package similarity

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases text and splits it into maximal runs of letters,
// digits, and underscores. Everything else is a separator. Tokenization is
// lossless apart from case: no stop-word removal, no stemming, no length
// filtering. Input with no word characters yields an empty slice.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
