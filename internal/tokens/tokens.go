// Package tokens estimates token counts for context-window accounting.
// The engine estimates, never measures: the ratio is the same
// four-characters-per-token heuristic the CLI's own context warnings use.
package tokens

// CharsPerToken is the fixed character-to-token ratio used everywhere
// a token count has to be estimated from raw text.
const CharsPerToken = 4

// Estimate returns the estimated token count for s, rounding up.
func Estimate(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + CharsPerToken - 1) / CharsPerToken
}

// EstimateBytes is Estimate for raw bytes.
func EstimateBytes(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	return (len(b) + CharsPerToken - 1) / CharsPerToken
}

// FromChars converts a known character count to an estimated token count.
func FromChars(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + CharsPerToken - 1) / CharsPerToken
}
