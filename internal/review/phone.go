package review

import "strings"

// NormalizePhone reduces a customer identifier to bare digits and prefixes
// the country code when the number is domestic length. Identifiers that are
// not phone-shaped pass through with only the non-digits stripped.
func NormalizePhone(raw, countryPrefix string, domesticDigits int) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return raw
	}
	if domesticDigits > 0 && len(digits) == domesticDigits && countryPrefix != "" {
		return countryPrefix + digits
	}
	return digits
}
