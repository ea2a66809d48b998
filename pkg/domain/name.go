package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the longest preset name accepted, in runes.
const MaxNameLength = 64

// SanitizeName cleans a user supplied preset name: it rejects invalid UTF-8
// and oversized names, strips control characters (ANSI escapes, NUL, newlines)
// and trims surrounding space. The result is never empty.
func SanitizeName(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: name contains invalid UTF-8", ErrMalformedPreset)
	}

	// Fast path: if no control chars, only trim.
	clean := true
	for _, r := range name {
		if unicode.IsControl(r) {
			clean = false
			break
		}
	}
	if !clean {
		var b strings.Builder
		b.Grow(len(name))
		for _, r := range name {
			if !unicode.IsControl(r) {
				b.WriteRune(r)
			}
		}
		name = b.String()
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrMalformedPreset)
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return "", fmt.Errorf("%w: name is %d characters, limit %d", ErrMalformedPreset, n, MaxNameLength)
	}
	return name, nil
}
