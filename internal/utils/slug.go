package utils

import (
	"strings"
	"unicode"
)

// SlugStrategy converts an organization name into its URL slug.
type SlugStrategy func(name string) string

// Slugify is the default slug strategy: lowercase, hyphen-separated,
// ASCII letters and digits only.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
