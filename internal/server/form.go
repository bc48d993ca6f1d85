package server

import (
	"net/url"
	"strings"
)

// parseForm decodes a urlencoded body the forgiving way: pairs are split on
// "&" only, pairs without "=" or with an empty value are skipped, and a "%"
// that does not start a valid escape is kept as a literal character.
func parseForm(body string) url.Values {
	form := make(url.Values)
	for _, pair := range strings.Split(body, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			continue
		}
		form.Add(unescapeLenient(key), unescapeLenient(value))
	}
	return form
}

// unescapeLenient turns "+" into a space and decodes valid %XX escapes.
// Invalid escapes stay as written; invalid UTF-8 becomes U+FFFD.
func unescapeLenient(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return strings.ToValidUTF8(decoded, "\uFFFD")
	}

	s = strings.ReplaceAll(s, "+", " ")

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return strings.ToValidUTF8(b.String(), "\uFFFD")
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
