// Package keys builds Redis key names for cached pixel data.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Version is bumped whenever the cached value encoding changes.
const Version = "v1"

const maxPartLen = 96

// Cell returns the key under which the decoded cell for pixelKey is stored.
// Namespace and pixel key are sanitized; the xxhash suffix keeps truncated or
// rewritten inputs distinct.
func Cell(namespace, pixelKey string) string {
	return build(namespace, "cell", pixelKey)
}

func build(namespace, kind, pixelKey string) string {
	ns := sanitize(strings.TrimSpace(namespace))
	if ns == "" {
		ns = "earthpixel"
	}
	pk := strings.TrimSpace(pixelKey)
	safe := sanitize(pk)
	if len(safe) > maxPartLen {
		safe = safe[:maxPartLen]
	}
	sum := xxhash.Sum64String(pk)
	return fmt.Sprintf("%s:%s:%s:%s:h=%016x", ns, kind, Version, safe, sum)
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
