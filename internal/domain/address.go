package domain

import (
	"strings"
	"unicode"
)

// NormalizeAddress canonicalizes a user supplied host or URL so that two
// spellings of the same address compare equal.
func NormalizeAddress(addr string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, addr)
}
