// Package textnorm normalizes Persian text entered through forms and
// spreadsheet imports so equal values compare equal.
package textnorm

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	arabicYeh  = 'ي'
	persianYeh = 'ی'
	arabicKaf  = 'ك'
	persianKaf = 'ک'
)

func mapRune(r rune) rune {
	switch {
	case r == arabicYeh:
		return persianYeh
	case r == arabicKaf:
		return persianKaf
	case r >= '۰' && r <= '۹': // Extended Arabic-Indic (Persian) digits
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩': // Arabic-Indic digits
		return '0' + (r - '٠')
	}
	return r
}

// Normalize converts Arabic Yeh and Kaf to their Persian forms, Persian and
// Arabic-Indic digits to ASCII, applies NFC and trims surrounding space.
func Normalize(s string) string {
	t := transform.Chain(norm.NFC, runes.Map(mapRune))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}

// Code normalizes an identifier-like value such as a personnel code: it is
// normalized like text and all whitespace is removed.
func Code(s string) string {
	return strings.Join(strings.Fields(Normalize(s)), "")
}
