// Package textnorm provides lossy, one-way text normalization for
// release names. Downstream matching is ASCII-oriented, so accented
// letters are folded to their base form; symbols and emoji are kept
// because the pipeline still reads marker glyphs out of display names.
package textnorm

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold decomposes Unicode compatibility forms and drops combining
// marks, so "Amélie" becomes "Amelie". Already-ASCII input passes
// through unchanged.
func Fold(s string) string {
	if isASCII(s) {
		return s
	}
	out, _, err := transform.String(foldMarks, s)
	if err != nil {
		return s
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
