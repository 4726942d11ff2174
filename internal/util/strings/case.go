package strings

import (
	"strings"
	"unicode"
)

// ToKebabCase lowercases s and joins alphanumeric runs with '-'
// ("Microsoft.Storage" -> "microsoft-storage")
func ToKebabCase(s string) string {
	var result strings.Builder
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && result.Len() > 0 {
				result.WriteRune('-')
			}
			pending = false
			result.WriteRune(unicode.ToLower(r))
			continue
		}
		pending = true
	}
	return result.String()
}

// ToIdentifier converts s to a camelCase identifier safe for use in a
// dotted template expression ("primaryEndpoints.blob" -> "primaryEndpointsBlob").
// Identifiers never start with a digit.
func ToIdentifier(s string) string {
	var result strings.Builder
	upper := false
	for _, r := range s {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r)) || r > unicode.MaxASCII {
			upper = result.Len() > 0
			continue
		}
		if result.Len() == 0 && unicode.IsDigit(r) {
			result.WriteRune('r')
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		result.WriteRune(r)
	}
	if result.Len() == 0 {
		return "r"
	}
	return result.String()
}
