// Package textnorm folds free-text labels typed by hand into comparable keys.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents removes combining marks: "TERÇA" becomes "TERCA".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Key upper-cases, strips accents and drops all whitespace, so "mb way",
// "MBWAY" and "Mb  Way" share one key.
func Key(s string) string {
	folded := strings.ToUpper(StripAccents(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}
