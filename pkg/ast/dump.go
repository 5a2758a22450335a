package ast

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// quote renders s as a template string literal.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '$', '#':
			// Keep "${" and "#{" from reading as interpolations.
			if idx+1 < len(s) && s[idx+1] == '{' {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func abbreviate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// identifierForm escapes names that could not be read back as a bare identifier.
func identifierForm(name string) string {
	if name == "" {
		return `""`
	}
	var b strings.Builder
	for idx, r := range name {
		switch {
		case unicode.IsLetter(r) || r == '_' || r == '$' || r == '@':
			b.WriteRune(r)
		case idx > 0 && unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '.' || r == ':':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			return quote(name)
		}
	}
	return b.String()
}
