// Package wcwidth determines the display width of runes and strings, the
// same role the teacher's pkg/wcwidth plays for its screen diff.
package wcwidth

import "unicode/utf8"

// Of returns the display width of s.
func Of(s string) int {
	w := 0
	for _, r := range s {
		w += OfRune(r)
	}
	return w
}

// OfRune returns the display width of a single rune: 0 for combining marks
// and most control characters, 2 for wide East Asian characters, 1
// otherwise.
func OfRune(r rune) int {
	switch {
	case r == 0:
		return 0
	case r < 0x20 || r == 0x7f:
		return 0
	case isCombining(r):
		return 0
	case isWide(r):
		return 2
	default:
		return 1
	}
}

func isCombining(r rune) bool {
	return (r >= 0x0300 && r <= 0x036F) || // combining diacritical marks
		(r >= 0x200B && r <= 0x200F) // zero-width spaces/marks
}

// isWide reports whether r falls in one of the Unicode East Asian Wide or
// Fullwidth blocks.
func isWide(r rune) bool {
	switch {
	case r >= 0x1100 && r <= 0x115F,
		r >= 0x2E80 && r <= 0xA4CF,
		r >= 0xAC00 && r <= 0xD7A3,
		r >= 0xF900 && r <= 0xFAFF,
		r >= 0xFF00 && r <= 0xFF60,
		r >= 0xFFE0 && r <= 0xFFE6,
		r >= 0x20000 && r <= 0x3FFFD:
		return true
	default:
		return false
	}
}

// Trim trims s so that its display width does not exceed max, returning the
// trimmed string and its width.
func Trim(s string, max int) (string, int) {
	w := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		rw := OfRune(r)
		if w+rw > max {
			return s[:i], w
		}
		w += rw
		i += size
	}
	return s, w
}
