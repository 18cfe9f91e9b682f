package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeSpace collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FoldASCII strips diacritics ("Sústi" -> "Susti") so names survive the
// ASCII-only filename filter.
func FoldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SanitizeFilenamePart keeps ASCII letters, digits and spaces, then turns
// spaces into underscores. An empty result yields fallback.
func SanitizeFilenamePart(s, fallback string) string {
	s = FoldASCII(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// FileExt returns the lowercased extension without the dot, or fallback.
func FileExt(name, fallback string) string {
	name = strings.TrimSpace(name)
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return fallback
	}
	ext := strings.ToLower(name[i+1:])
	for _, r := range ext {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fallback
		}
	}
	return ext
}
