// Package similarity scores how likely two event titles describe the same show.
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a title for comparison: HTML entities are decoded,
// accents folded, case lowered, everything but letters, digits, underscores and
// whitespace dropped, and whitespace runs collapsed. Normalize never fails.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	decoded := html.UnescapeString(raw)
	folded := foldAccents(decoded)

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// CleanTitle is the display form persisted on events: entities decoded and
// whitespace collapsed, case and punctuation preserved.
func CleanTitle(raw string) string {
	return strings.Join(strings.Fields(html.UnescapeString(raw)), " ")
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
