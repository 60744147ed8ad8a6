package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// CanonicalKey returns a comparison key for duplicate detection. Numbers that
// libphonenumber can parse collapse to E.164; anything else falls back to the
// cleaned form. The key is never shown to users.
func CanonicalKey(raw string) string {
	cleaned := Clean(raw)
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "+") {
		if num, err := phonenumbers.Parse(cleaned, ""); err == nil {
			return phonenumbers.Format(num, phonenumbers.E164)
		}
	}
	return cleaned
}

// RegionOf returns the ISO 3166 region libphonenumber assigns to raw, or ""
// when it cannot tell.
func RegionOf(raw string) string {
	cleaned := Clean(raw)
	if !strings.HasPrefix(cleaned, "+") {
		return ""
	}
	num, err := phonenumbers.Parse(cleaned, "")
	if err != nil {
		return ""
	}
	region := phonenumbers.GetRegionCodeForNumber(num)
	if region == "ZZ" {
		return ""
	}
	return region
}
