// Package match canonicalizes free-text guesses and measures how close two
// of them are. Normalize is the sole grouping key for aggregation, so every
// spelling of the same guess must normalize identically.
package match

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Normalize trims surrounding whitespace and lowercases raw. It is a total
// function and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Similarity returns how close two strings are on a 0..100 scale, based on
// edit distance relative to the longer string. Identical non-empty strings
// score 100; an empty string against a non-empty one scores 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}

	dist := levenshtein.ComputeDistance(a, b)
	return (1 - float64(dist)/float64(longest)) * 100
}
