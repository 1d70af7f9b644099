package validators

import "strings"

// SanitizeString collapses runs of whitespace and caps the result at maxLen
// runes so names such as "Bigas  (Dinorado)" store the same way every time.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) <= maxLen {
		return cleaned
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
