// Package similarity scores how well a requested title matches a
// release blob. Release names carry punctuation, ordering noise and
// extra tokens, so whole-string equality is useless; the scorer finds
// the best-aligned substring window instead.
package similarity

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mozillazg/go-unidecode"
)

// PartialRatio returns a 0-100 similarity score between needle and
// haystack. The needle is slid over same-length windows of the
// haystack and the best Levenshtein ratio wins, which tolerates the
// junk surrounding a title inside a full release name.
func PartialRatio(needle, haystack string) int {
	needle = normalize(needle)
	haystack = normalize(haystack)

	if needle == "" || haystack == "" {
		return 0
	}
	if needle == haystack || strings.Contains(haystack, needle) {
		return 100
	}

	short := []rune(needle)
	long := []rune(haystack)
	if len(short) > len(long) {
		short, long = long, short
	}

	best := 0
	for start := 0; start+len(short) <= len(long); start++ {
		window := string(long[start : start+len(short)])
		score := ratio(string(short), window)
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// ratio is the plain Levenshtein similarity between two strings,
// scaled to 0-100.
func ratio(a, b string) int {
	if a == b {
		return 100
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 100
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	if dist >= maxLen {
		return 0
	}
	return (maxLen - dist) * 100 / maxLen
}

// normalize lowercases, transliterates to ASCII and collapses
// separators so "The.Matrix-1999" compares equal to "the matrix 1999".
// Also folds "&" to "and" for equivalence.
func normalize(s string) string {
	s = unidecode.Unidecode(s)
	s = strings.ReplaceAll(s, "&", " and ")

	var result strings.Builder
	result.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			result.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '_' || r == '[' || r == ']' || r == '(' || r == ')':
			result.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}
