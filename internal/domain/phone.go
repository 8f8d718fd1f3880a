package domain

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone returns the phone in "+<countrycode><subscriber>" form.
// Local numbers (leading zero or bare subscriber digits) get countryCode prefixed.
func NormalizePhone(raw, countryCode string) string {
	raw = strings.TrimSpace(raw)
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}

	cc := nonDigits.ReplaceAllString(countryCode, "")

	switch {
	case strings.HasPrefix(raw, "+"):
		return "+" + digits
	case strings.HasPrefix(digits, "00"):
		return "+" + strings.TrimPrefix(digits, "00")
	case strings.HasPrefix(digits, "0"):
		return "+" + cc + strings.TrimLeft(digits, "0")
	case cc != "" && strings.HasPrefix(digits, cc) && len(digits) >= len(cc)+9:
		return "+" + digits
	}

	return "+" + cc + digits
}
