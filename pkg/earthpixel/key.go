package earthpixel

import (
	"fmt"
	"strconv"
	"strings"
)

// KeySeparator joins the three hex fields of a key.
const KeySeparator = "-"

// EncodeKey renders (divisions, latIdx, lonIdx) as "<hex>-<hex>-<hex>",
// lower-case without leading zeros.
func EncodeKey(divisions, latIdx, lonIdx int) string {
	var b strings.Builder
	b.Grow(24)
	b.WriteString(strconv.FormatInt(int64(divisions), 16))
	b.WriteString(KeySeparator)
	b.WriteString(strconv.FormatInt(int64(latIdx), 16))
	b.WriteString(KeySeparator)
	b.WriteString(strconv.FormatInt(int64(lonIdx), 16))
	return b.String()
}

// DecodeKey splits a key into its three fields. Only the canonical form
// produced by EncodeKey is accepted so a decoded key always re-encodes to
// the same string. Index ranges are not checked here; see Extract.
func DecodeKey(key string) (divisions, latIdx, lonIdx int, err error) {
	parts := strings.Split(key, KeySeparator)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("key %q has %d fields (want 3): %w", key, len(parts), ErrMalformedKey)
	}
	var out [3]int
	for i, p := range parts {
		n, err := parseHex(p)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("key %q field %d: %w", key, i, err)
		}
		out[i] = n
	}
	return out[0], out[1], out[2], nil
}

func parseHex(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty field: %w", ErrMalformedKey)
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("leading zero in %q: %w", s, ErrMalformedKey)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return 0, fmt.Errorf("%q is not lower-case hex: %w", s, ErrMalformedKey)
		}
	}
	n, err := strconv.ParseInt(s, 16, 64)
	if err != nil || n > MaxDivisions*4 {
		return 0, fmt.Errorf("%q out of range: %w", s, ErrMalformedKey)
	}
	return int(n), nil
}

// Extract rebuilds the full cell geometry from a key alone. The grid's
// division count travels inside the key, so no Grid is needed.
func Extract(key string) (Cell, error) {
	divisions, latIdx, lonIdx, err := DecodeKey(key)
	if err != nil {
		return Cell{}, err
	}
	if divisions < 2 || divisions > MaxDivisions {
		return Cell{}, fmt.Errorf("key %q: divisions %d out of range: %w", key, divisions, ErrMalformedKey)
	}
	if latIdx >= divisions {
		return Cell{}, fmt.Errorf("key %q: latitude index %d >= %d: %w", key, latIdx, divisions, ErrMalformedKey)
	}
	n := lonDivisions(divisions, latIdx)
	if lonIdx >= n {
		return Cell{}, fmt.Errorf("key %q: longitude index %d >= %d: %w", key, lonIdx, n, ErrMalformedKey)
	}
	return newCell(divisions, Index{Lat: latIdx, Lon: lonIdx, LonDivisions: n}), nil
}
