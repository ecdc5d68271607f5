package plate

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// digitZeros lists the code point of "0" for each decimal digit block we
// fold to ASCII. Fullwidth digits are folded earlier by width.Fold.
var digitZeros = []rune{
	0x0660, // Arabic-Indic
	0x06F0, // Extended Arabic-Indic (Persian, Urdu)
	0x07C0, // NKo
	0x0966, // Devanagari
	0x09E6, // Bengali
	0x0A66, // Gurmukhi
	0x0AE6, // Gujarati
	0x0B66, // Oriya
	0x0BE6, // Tamil
	0x0C66, // Telugu
	0x0CE6, // Kannada
	0x0D66, // Malayalam
	0x0E50, // Thai
	0x0ED0, // Lao
	0x0F20, // Tibetan
	0x1040, // Myanmar
	0x17E0, // Khmer
	0x1810, // Mongolian
}

// asciiDigit returns the ASCII digit for an alternate numeral glyph.
func asciiDigit(r rune) (rune, bool) {
	if r >= '0' && r <= '9' {
		return r, true
	}
	for _, zero := range digitZeros {
		if r >= zero && r <= zero+9 {
			return '0' + (r - zero), true
		}
	}
	return 0, false
}

// Transitional cleans raw recognizer text but keeps single spaces and
// hyphens between character groups, e.g. " ab - 123 " becomes "AB-123".
// It is the display form; Normalize is the canonical form.
func Transitional(raw string) string {
	folded := width.Fold.String(raw)

	var b strings.Builder
	pendingSep := rune(0)
	for _, r := range folded {
		if d, ok := asciiDigit(r); ok {
			r = d
		} else {
			r = unicode.ToUpper(r)
		}

		switch {
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			if pendingSep != 0 && b.Len() > 0 {
				b.WriteRune(pendingSep)
			}
			pendingSep = 0
			b.WriteRune(r)
		case r == '-':
			pendingSep = '-'
		case unicode.IsSpace(r):
			if pendingSep == 0 {
				pendingSep = ' '
			}
		}
	}
	return b.String()
}

// Normalize returns the canonical plate form of raw: upper-case ASCII
// letters and digits only. The result may be empty. Normalize is
// idempotent.
func Normalize(raw string) string {
	t := Transitional(raw)
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, t)
}
