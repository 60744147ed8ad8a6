package phone

import "strings"

// Clean strips everything except digits and a leading '+'. A '+' is kept only
// when it is the first retained character.
func Clean(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '+' && sb.Len() == 0:
			sb.WriteByte('+')
		}
	}
	return sb.String()
}

// Resolve cleans raw and returns the table entry with the longest prefix that
// the cleaned value starts with. Values without a leading '+' never resolve.
func Resolve(raw string) (CountryFormat, bool) {
	return resolveCleaned(Clean(raw))
}

func resolveCleaned(cleaned string) (CountryFormat, bool) {
	if !strings.HasPrefix(cleaned, "+") {
		return CountryFormat{}, false
	}
	n := len(cleaned)
	if n > MaxPrefixLen {
		n = MaxPrefixLen
	}
	for ; n >= 2; n-- {
		if cf, ok := byPrefix[cleaned[:n]]; ok {
			return cf, true
		}
	}
	return CountryFormat{}, false
}
