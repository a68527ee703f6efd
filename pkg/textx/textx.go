// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
	"unicode"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// StripControl removes every rune that is neither printable nor
// tab/newline/CR. Unlike SanitizeText it also drops the C1 range and
// zero-width/BOM characters that commonly leak into model output.
func StripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(r)
		case r == '\uFEFF' || r == '\u200B' || r == '\u200C' || r == '\u200D' || r == '\u2060':
			// zero-width and BOM
		case unicode.IsControl(r):
		case unicode.IsPrint(r) || unicode.IsLetter(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeAnswer lowercases and trims surrounding whitespace for answer
// comparison. Interior spacing is preserved.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
