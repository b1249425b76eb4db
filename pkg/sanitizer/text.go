package sanitizer

import (
	"strings"
	"unicode"
)

const maxTextLength = 500

// SanitizeText normalizes free-text input (visit reasons, symptoms,
// cancellation reasons, notes): trims, collapses internal whitespace,
// strips control characters and truncates.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}

	out := strings.TrimSpace(b.String())
	if len(out) > maxTextLength {
		out = out[:maxTextLength]
	}
	return out
}

// SanitizeTextSlice sanitizes each element and drops empties.
func SanitizeTextSlice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if clean := SanitizeText(s); clean != "" {
			out = append(out, clean)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
