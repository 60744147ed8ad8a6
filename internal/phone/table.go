// Package phone formats and validates international phone numbers against a
// static table of country calling-code masks.
//
// A mask is a template in which '#' stands for the next national digit and
// every other character is a literal separator. Numbers are matched to the
// table by the longest calling-code prefix of their cleaned form.
package phone

import (
	"fmt"
	"sort"
	"strings"
)

// CountryFormat describes how national digits after a calling code are laid out.
type CountryFormat struct {
	Prefix string `json:"prefix"`
	Mask   string `json:"mask"`
	Label  string `json:"label"`
}

// Placeholder is the mask character consumed by one national digit.
const Placeholder = '#'

// MaxPrefixLen is the longest allowed prefix, '+' included.
const MaxPrefixLen = 5

var countryFormats = []CountryFormat{
	{"+1", "(###) ###-####", "USA/Canada"},
	{"+1242", "###-####", "Bahamas"},
	{"+1246", "###-####", "Barbados"},
	{"+1868", "###-####", "Trinidad and Tobago"},
	{"+1876", "###-####", "Jamaica"},
	{"+7", "(###) ###-##-##", "Russia/Kazakhstan"},
	{"+20", "### ### ####", "Egypt"},
	{"+27", "## ### ####", "South Africa"},
	{"+30", "### ### ####", "Greece"},
	{"+31", "## ########", "Netherlands"},
	{"+32", "### ## ## ##", "Belgium"},
	{"+33", "# ## ## ## ##", "France"},
	{"+34", "### ## ## ##", "Spain"},
	{"+36", "## ### ####", "Hungary"},
	{"+39", "### #### ###", "Italy"},
	{"+40", "## ### ####", "Romania"},
	{"+41", "## ### ## ##", "Switzerland"},
	{"+43", "### #######", "Austria"},
	{"+44", "#### ######", "UK"},
	{"+45", "## ## ## ##", "Denmark"},
	{"+46", "## ### ## ##", "Sweden"},
	{"+47", "### ## ###", "Norway"},
	{"+48", "### ### ###", "Poland"},
	{"+49", "(###) #######", "Germany"},
	{"+51", "### ### ###", "Peru"},
	{"+52", "## #### ####", "Mexico"},
	{"+54", "# ## #### ####", "Argentina"},
	{"+55", "(##) #####-####", "Brazil"},
	{"+56", "# #### ####", "Chile"},
	{"+57", "### ### ####", "Colombia"},
	{"+58", "### ### ####", "Venezuela"},
	{"+60", "##-### ####", "Malaysia"},
	{"+61", "# #### ####", "Australia"},
	{"+62", "###-####-####", "Indonesia"},
	{"+63", "### ### ####", "Philippines"},
	{"+64", "## ### ####", "New Zealand"},
	{"+65", "#### ####", "Singapore"},
	{"+66", "## ### ####", "Thailand"},
	{"+81", "##-####-####", "Japan"},
	{"+82", "##-###-####", "South Korea"},
	{"+84", "### ### ####", "Vietnam"},
	{"+86", "### #### ####", "China"},
	{"+90", "(###) ### ## ##", "Turkey"},
	{"+91", "##### #####", "India"},
	{"+92", "### #######", "Pakistan"},
	{"+93", "## ### ####", "Afghanistan"},
	{"+94", "## ### ####", "Sri Lanka"},
	{"+95", "## ### ####", "Myanmar"},
	{"+98", "### ### ####", "Iran"},
	{"+212", "##-####-##", "Morocco"},
	{"+213", "## ## ## ## ##", "Algeria"},
	{"+216", "## ### ###", "Tunisia"},
	{"+218", "##-#######", "Libya"},
	{"+220", "### ####", "Gambia"},
	{"+221", "## ### ## ##", "Senegal"},
	{"+222", "## ## ## ##", "Mauritania"},
	{"+234", "### ### ####", "Nigeria"},
	{"+254", "### ######", "Kenya"},
	{"+351", "## ### ####", "Portugal"},
	{"+352", "### #####", "Luxembourg"},
	{"+353", "## ### ####", "Ireland"},
	{"+354", "### ####", "Iceland"},
	{"+355", "## ### ####", "Albania"},
	{"+356", "#### ####", "Malta"},
	{"+357", "## ######", "Cyprus"},
	{"+358", "## ### ## ##", "Finland"},
	{"+359", "## ### ####", "Bulgaria"},
	{"+370", "### #####", "Lithuania"},
	{"+371", "## ######", "Latvia"},
	{"+372", "#### ####", "Estonia"},
	{"+375", "## ###-##-##", "Belarus"},
	{"+380", "(##) ###-##-##", "Ukraine"},
	{"+381", "## ### ####", "Serbia"},
	{"+385", "## ### ####", "Croatia"},
	{"+386", "## ### ###", "Slovenia"},
	{"+387", "## ### ###", "Bosnia"},
	{"+389", "## ### ###", "Macedonia"},
	{"+960", "###-####", "Maldives"},
	{"+961", "## ######", "Lebanon"},
	{"+962", "# #### ####", "Jordan"},
	{"+963", "## #### ###", "Syria"},
	{"+964", "### ### ####", "Iraq"},
	{"+965", "#### ####", "Kuwait"},
	{"+966", "## ### ####", "Saudi Arabia"},
	{"+967", "### ### ###", "Yemen"},
	{"+968", "#### ####", "Oman"},
	{"+971", "## ### ####", "UAE"},
	{"+972", "##-###-####", "Israel"},
	{"+973", "#### ####", "Bahrain"},
	{"+974", "#### ####", "Qatar"},
}

var byPrefix = buildIndex(countryFormats)

func buildIndex(entries []CountryFormat) map[string]CountryFormat {
	idx := make(map[string]CountryFormat, len(entries))
	for _, e := range entries {
		if err := checkPrefix(e.Prefix); err != nil {
			panic(err)
		}
		if _, dup := idx[e.Prefix]; dup {
			panic(fmt.Sprintf("phone: duplicate prefix %s", e.Prefix))
		}
		idx[e.Prefix] = e
	}
	return idx
}

func checkPrefix(p string) error {
	if len(p) < 2 || len(p) > MaxPrefixLen || p[0] != '+' {
		return fmt.Errorf("phone: malformed prefix %q", p)
	}
	for i := 1; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return fmt.Errorf("phone: malformed prefix %q", p)
		}
	}
	return nil
}

// Countries returns a copy of the table ordered by prefix.
func Countries() []CountryFormat {
	out := make([]CountryFormat, len(countryFormats))
	copy(out, countryFormats)
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}

// Lookup returns the entry registered under exactly prefix.
func Lookup(prefix string) (CountryFormat, bool) {
	cf, ok := byPrefix[prefix]
	return cf, ok
}

// MaskDigits counts the digit placeholders of a mask.
func MaskDigits(mask string) int {
	return strings.Count(mask, string(Placeholder))
}
