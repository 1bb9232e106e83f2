package mapper

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes a raw label (header text or candidate field name)
// into a comparable token form: lower-cased tokens joined by single spaces.
//
// Line breaks, underscores, punctuation and unit annotations such as "(nF)"
// or a degree symbol act as token separators, so multi-line header cells keep
// their trailing unit fragment as a token instead of losing it. Two labels
// with the same normal form are identical for matching purposes.
//
// Normalize is pure, total and idempotent.
func Normalize(label string) string {
	var b strings.Builder
	b.Grow(len(label))

	pendingSep := false
	for _, r := range label {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		} else {
			pendingSep = true
		}
	}

	return b.String()
}

// Tokens splits a normalized label into its tokens.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}
