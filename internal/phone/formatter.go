package phone

import "strings"

// Outcome tells how far formatting got before degrading.
type Outcome int

const (
	OutcomeEmpty Outcome = iota
	OutcomeNoCountryContext
	OutcomeUnresolvedPrefix
	OutcomeFormatted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeNoCountryContext:
		return "no_country_context"
	case OutcomeUnresolvedPrefix:
		return "unresolved_prefix"
	case OutcomeFormatted:
		return "formatted"
	default:
		return "unknown"
	}
}

// MarshalText lets Outcome appear as its name in JSON.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the full account of one Format call.
type Result struct {
	Input     string         `json:"input"`
	Cleaned   string         `json:"cleaned"`
	Formatted string         `json:"formatted"`
	Outcome   Outcome        `json:"outcome"`
	Country   *CountryFormat `json:"country,omitempty"`
	// Overflow holds national digits that did not fit the mask.
	Overflow string `json:"overflow,omitempty"`
}

// Format renders raw into its national presentation, e.g.
// "+905551234567" becomes "+90 (555) 123 45 67". It never fails: input it
// cannot place in the table comes back cleaned but otherwise untouched.
func Format(raw string) string {
	return Analyze(raw).Formatted
}

// Analyze runs the formatter and reports which path it took.
func Analyze(raw string) Result {
	res := Result{Input: raw, Cleaned: Clean(raw)}
	res.Formatted = res.Cleaned

	switch {
	case res.Cleaned == "":
		res.Outcome = OutcomeEmpty
		return res
	case !strings.HasPrefix(res.Cleaned, "+"):
		res.Outcome = OutcomeNoCountryContext
		return res
	}

	cf, ok := resolveCleaned(res.Cleaned)
	if !ok {
		res.Outcome = OutcomeUnresolvedPrefix
		return res
	}

	national := res.Cleaned[len(cf.Prefix):]
	body, overflow := applyMask(cf.Mask, national)

	res.Outcome = OutcomeFormatted
	res.Country = &cf
	res.Overflow = overflow
	if body == "" {
		res.Formatted = cf.Prefix
	} else {
		res.Formatted = cf.Prefix + " " + body
	}
	return res
}

// applyMask lays digits over mask. A separator is written only while digits
// remain, so partial input carries no dangling punctuation. Digits left over
// once the mask is exhausted are appended verbatim and also returned.
func applyMask(mask, digits string) (string, string) {
	var sb strings.Builder
	sb.Grow(len(mask) + len(digits))

	i := 0
	for _, m := range mask {
		if i >= len(digits) {
			break
		}
		if m == Placeholder {
			sb.WriteByte(digits[i])
			i++
			continue
		}
		sb.WriteRune(m)
	}

	overflow := digits[i:]
	sb.WriteString(overflow)
	return sb.String(), overflow
}
