// Package similarity scores how alike two transcript strings are using a
// normalized edit distance.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// Threshold is the score above which two strings are treated as the same text.
const Threshold = 0.8

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) over the
// lowercased runes of a and b. Two empty strings are identical (1.0).
func Similarity(a, b string) float64 {
	na := strings.ToLower(norm.NFC.String(a))
	nb := strings.ToLower(norm.NFC.String(b))

	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein.ComputeDistance(na, nb))/float64(longest)
}

// Similar reports whether a and b score above Threshold.
func Similar(a, b string) bool {
	return Similarity(a, b) > Threshold
}
