package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks left after canonical decomposition,
// folding accented letters onto their base form.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// strokedForms maps Latin letters whose diacritic is part of the base glyph
// rather than a combining mark, so NFD leaves them intact. Base-strength
// collation treats them as their unmarked letter.
var strokedForms = map[rune]rune{
	'đ': 'd',
	'ħ': 'h',
	'ł': 'l',
	'ø': 'o',
	'ŧ': 't',
}

// fold normalizes a name for comparison: accents dropped, punctuation and
// symbols dropped, spacing dropped, case ignored. Both punctuation and
// spaces are ignorable so "O'Brien" and "O Brien" compare equal, matching
// the base-strength collation the matching rules were written against.
func fold(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			continue
		}
		r = unicode.ToLower(r)
		if base, ok := strokedForms[r]; ok {
			r = base
		}
		b.WriteRune(r)
	}
	return b.String()
}

func equalFolded(a, b string) bool {
	return fold(a) == fold(b)
}
