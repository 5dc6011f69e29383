package textutil

import (
	"strings"
	"unicode"
)

// maxFileNameBytes keeps generated names under common filesystem limits with
// room left for an extension.
const maxFileNameBytes = 240

// SanitizeFileName turns a display title into a file name. Path separators
// and colons become " - " so "Alien: Covenant" reads "Alien - Covenant";
// other reserved characters and control runes are dropped, runs of spaces
// collapse, and leading dots are removed so the result is never hidden.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':':
			b.WriteString(" - ")
		case r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
		case unicode.IsControl(r):
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	out = strings.ReplaceAll(out, "- -", "-")
	out = strings.TrimLeft(out, ". ")
	out = strings.TrimRight(out, " -")
	return truncateUTF8(out, maxFileNameBytes)
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRight(s[:cut], " -")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
