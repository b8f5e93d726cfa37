// Package termformat prepares untrusted text for display on a terminal.
package termformat

import (
	"strings"
	"unicode/utf8"
)

const hexDigits = "0123456789ABCDEF"

// SanitizeLine makes a single line of file content safe to print:
//   - If tabWidth > 0, each \t becomes tabWidth spaces. Otherwise \t is kept.
//   - Other ASCII control characters (including \r, \n and ESC) and 0x7F become "\xXX".
//   - Invalid UTF-8 bytes become U+FFFD.
func SanitizeLine(s string, tabWidth int) string {
	if s == "" || isClean(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteRune('\uFFFD')
		case r == '\t' && tabWidth > 0:
			b.WriteString(strings.Repeat(" ", tabWidth))
		case r == '\t':
			b.WriteByte('\t')
		case r < 0x20 || r == 0x7F:
			b.WriteByte('\\')
			b.WriteByte('x')
			b.WriteByte(hexDigits[byte(r)>>4])
			b.WriteByte(hexDigits[byte(r)&0x0F])
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isClean reports whether s is valid UTF-8 with no control characters other than \t.
func isClean(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 0x20 && c != '\t') || c == 0x7F {
			return false
		}
	}
	return utf8.ValidString(s)
}
