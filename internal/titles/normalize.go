package titles

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var leadingArticles = []string{"the ", "a ", "an "}

// NormalizeForComparison lowercases title, folds accents, drops punctuation
// and a leading article, and collapses whitespace. The result is only meant
// for similarity scoring.
func NormalizeForComparison(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
		case r == '&':
			b.WriteString(" and ")
		default:
			b.WriteByte(' ')
		}
	}
	normalized := strings.Join(strings.Fields(b.String()), " ")
	for _, article := range leadingArticles {
		if rest, ok := strings.CutPrefix(normalized, article); ok {
			normalized = rest
			break
		}
	}
	return normalized
}
