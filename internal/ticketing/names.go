package ticketing

import (
	"strings"
	"unicode"
)

// BetterName decides whether candidate should replace existing as the
// customer's display name. Name quality is monotone: a real name is never
// downgraded to a placeholder or a phone-shaped string.
func BetterName(existing, candidate, rawPhone string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || isGenericName(candidate, rawPhone) {
		return false
	}
	return isGenericName(existing, rawPhone)
}

// isGenericName reports whether a stored name carries no real information:
// the placeholder, the raw phone, or any phone-shaped string.
func isGenericName(name, rawPhone string) bool {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, GenericContactName) {
		return true
	}
	if rawPhone != "" && name == rawPhone {
		return true
	}
	return phoneLike(name)
}

// phoneLike matches strings made only of digits and phone punctuation,
// e.g. "5511999998888" or "(11) 99999-8888".
func phoneLike(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '(' || r == ')' || r == '-' || r == '+' || r == ' ':
		default:
			return false
		}
	}
	return digits >= 8
}
