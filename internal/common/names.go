package common

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeStationName turns a station display name into a file name stem.
// Spaces become underscores; accents, parentheses, dots and commas are kept
// and every other symbol is dropped.
func NormalizeStationName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case strings.ContainsRune("_().,", r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

var unsafeFileChars = strings.NewReplacer(" ", "_", "/", "-", "\\", "-")

// SafeFileName substitutes characters that cannot appear in a file name.
func SafeFileName(name string) string {
	return unsafeFileChars.Replace(norm.NFC.String(name))
}
