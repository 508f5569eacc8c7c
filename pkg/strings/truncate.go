package strings

import (
	"strings"
)

// DefaultDescriptionMaxLen is the default maximum length for descriptions in table output.
const DefaultDescriptionMaxLen = 60

// MinTruncateLen is the smallest maxLen TruncateDescription accepts.
const MinTruncateLen = 4

// TruncateDescription collapses whitespace into single spaces and cuts the
// result to maxLen runes, ending with "..." when shortened.
// maxLen values below MinTruncateLen are clamped.
func TruncateDescription(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// MaskSecret keeps the first visible runes of a secret and replaces the rest
// with a fixed marker. Secrets no longer than visible are fully masked.
func MaskSecret(secret string, visible int) string {
	if secret == "" {
		return ""
	}
	runes := []rune(secret)
	if visible <= 0 || len(runes) <= visible {
		return "****"
	}
	return string(runes[:visible]) + "****"
}
