package bayes

import (
	"regexp"
	"strings"
)

// wordSeparators matches every maximal run of non-word characters, where a
// word character is a unicode letter, digit or underscore.
var wordSeparators = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Tokenize normalizes raw text into a sequence of lower-cased word tokens.
// Punctuation and any other non-word runs collapse into separators. Always
// succeeds; empty or whitespace-only input yields no tokens.
// The same function serves both training and classification, a divergence
// between the two would corrupt accuracy silently instead of failing.
func Tokenize(raw string) []string {
	normalized := wordSeparators.ReplaceAllString(raw, " ")
	return strings.Fields(strings.ToLower(normalized))
}
