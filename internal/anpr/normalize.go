package anpr

import "strings"

// DefaultMaxPlateLength is the canonical plate length cap.
const DefaultMaxPlateLength = 10

// confusions maps characters Tesseract routinely misreads on plates to
// the character they usually stand for.
var confusions = map[rune]rune{
	'O': '0',
	'I': '1',
	'Z': '2',
	'S': '5',
	'B': '8',
	'G': '6',
	'T': '7',
}

// Normalize converts a raw OCR reading into canonical plate text:
// uppercase, letters and digits only, known confusions substituted,
// truncated to maxLen. The transform is deterministic and idempotent.
func Normalize(raw string, maxLen int) string {
	if raw == "" {
		return ""
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxPlateLength
	}

	var sb strings.Builder
	sb.Grow(maxLen)
	for _, r := range strings.ToUpper(raw) {
		if sub, ok := confusions[r]; ok {
			r = sub
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
		if sb.Len() == maxLen {
			break
		}
	}
	return sb.String()
}
