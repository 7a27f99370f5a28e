// Package search turns a catalog query into a short, ranked list of albums
// built from metadata provider results.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips diacritics and collapses whitespace so that
// "Björk " and "bjork" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Similarity scores two strings in [0, 1] as one minus the Levenshtein
// distance of their folded forms over the longer length.
func Similarity(a, b string) float64 {
	ra, rb := []rune(Fold(a)), []rune(Fold(b))
	if string(ra) == string(rb) {
		if len(ra) == 0 {
			return 0
		}
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	distance := levenshtein(ra, rb)
	return 1 - float64(distance)/float64(max(len(ra), len(rb)))
}

// levenshtein calculates the edit distance between two rune slices using
// two rolling rows.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
