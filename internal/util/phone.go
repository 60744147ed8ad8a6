package util

import "strings"

// DigitsOnly keeps the ASCII digits of s.
func DigitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// PhoneContains reports whether the digits of query occur in the digits of
// number. Formatting characters on either side are ignored; a query without
// digits never matches.
func PhoneContains(number, query string) bool {
	q := DigitsOnly(query)
	if q == "" {
		return false
	}
	return strings.Contains(DigitsOnly(number), q)
}
