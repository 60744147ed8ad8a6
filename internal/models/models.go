package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ContactID is the record key. Older databases stored millisecond timestamps
// as JSON numbers, so both numbers and strings are accepted on input; output
// is always a string.
type ContactID string

func (id *ContactID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ContactID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("contact id: %w", err)
		}
		*id = ContactID(n.String())
		return nil
	}
}

func (id ContactID) String() string { return string(id) }

// Address is one postal address of a contact.
type Address struct {
	Street   string `json:"street,omitempty" validate:"max=512"`
	Zip      string `json:"zip,omitempty" validate:"max=32"`
	District string `json:"district,omitempty" validate:"max=128"`
	City     string `json:"city,omitempty" validate:"max=128"`
	Country  string `json:"country,omitempty" validate:"max=128"`
}

// IsEmpty reports whether no address line is filled in.
func (a Address) IsEmpty() bool {
	return strings.TrimSpace(a.Street+a.Zip+a.District+a.City+a.Country) == ""
}

// Contact is a single address book entry as persisted in db.json.
//
// Labelled collections (phones, emails, urls, dates, addresses) are keyed by
// label with a numeric suffix for repeats: "mobile", "mobile_2", ...
type Contact struct {
	ID    ContactID `json:"id"`
	Name  string    `json:"name" validate:"max=256"`
	Photo string    `json:"photo,omitempty" validate:"max=1024"`

	Prefix     string `json:"prefix,omitempty" validate:"max=64"`
	FirstName  string `json:"firstName,omitempty" validate:"max=128"`
	MiddleName string `json:"middleName,omitempty" validate:"max=128"`
	LastName   string `json:"lastName,omitempty" validate:"max=128"`
	Suffix     string `json:"suffix,omitempty" validate:"max=64"`
	Nickname   string `json:"nickname,omitempty" validate:"max=128"`

	PhoneticFirstName string `json:"phoneticFirstName,omitempty" validate:"max=128"`
	PhoneticLastName  string `json:"phoneticLastName,omitempty" validate:"max=128"`
	PhoneticCompany   string `json:"phoneticCompany,omitempty" validate:"max=128"`

	Company    string `json:"company,omitempty" validate:"max=256"`
	Title      string `json:"title,omitempty" validate:"max=128"`
	Department string `json:"department,omitempty" validate:"max=128"`

	Phones    map[string]string  `json:"phones,omitempty"`
	Emails    map[string]string  `json:"emails,omitempty" validate:"omitempty,dive,omitempty,email"`
	URLs      map[string]string  `json:"urls,omitempty" validate:"omitempty,dive,max=2048"`
	Dates     map[string]string  `json:"dates,omitempty" validate:"omitempty,dive,omitempty,datetime=2006-01-02"`
	Addresses map[string]Address `json:"addresses,omitempty" validate:"omitempty,dive"`

	// Phone is the primary number kept for list views and older records.
	Phone    string `json:"phone,omitempty"`
	RawPhone string `json:"rawPhone,omitempty"`

	Notes      string `json:"notes,omitempty" validate:"max=4096"`
	IsFavorite bool   `json:"isFavorite,omitempty"`
}

// ComposedName joins the name parts, falling back to company then nickname.
func (c *Contact) ComposedName() string {
	if full := joinNonEmpty(" ", c.Prefix, c.FirstName, c.MiddleName, c.LastName, c.Suffix); full != "" {
		return full
	}
	if s := strings.TrimSpace(c.Company); s != "" {
		return s
	}
	return strings.TrimSpace(c.Nickname)
}

// DisplayName is what lists and cards show.
func (c *Contact) DisplayName() string {
	if s := strings.TrimSpace(c.Name); s != "" {
		return s
	}
	return c.ComposedName()
}

// SortMode selects which name part leads the list order.
type SortMode string

const (
	SortByFirst SortMode = "first"
	SortByLast  SortMode = "last"
)

// SortKey is the string the list is ordered and grouped by.
func (c *Contact) SortKey(mode SortMode) string {
	var key string
	if mode == SortByLast {
		key = joinNonEmpty(" ", c.LastName, c.FirstName, c.MiddleName)
	} else {
		key = joinNonEmpty(" ", c.FirstName, c.MiddleName, c.LastName)
	}
	if key == "" {
		key = strings.Join(strings.Fields(c.DisplayName()), " ")
	}
	return key
}

// PrimaryPhone returns the legacy phone field or the first labelled phone.
func (c *Contact) PrimaryPhone() string {
	if s := strings.TrimSpace(c.Phone); s != "" {
		return s
	}
	for _, k := range OrderedKeys(c.Phones) {
		if s := strings.TrimSpace(c.Phones[k]); s != "" {
			return s
		}
	}
	return ""
}

// AllPhones lists every non-blank phone with the field it lives in.
func (c *Contact) AllPhones() []LabeledValue {
	var out []LabeledValue
	for _, k := range OrderedKeys(c.Phones) {
		if strings.TrimSpace(c.Phones[k]) != "" {
			out = append(out, LabeledValue{Key: k, Value: c.Phones[k]})
		}
	}
	if len(out) == 0 && strings.TrimSpace(c.Phone) != "" {
		out = append(out, LabeledValue{Key: "phone", Value: c.Phone})
	}
	return out
}

// LabeledValue is one entry of a labelled collection in display order.
type LabeledValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var (
	numericSuffix = regexp.MustCompile(`_\d+$`)
	mergedSuffix  = regexp.MustCompile(`_merged_.*$`)
)

// LabelBase strips repeat and merge suffixes: "mobile_2" -> "mobile",
// "home_merged_1712" -> "home".
func LabelBase(key string) string {
	return numericSuffix.ReplaceAllString(mergedSuffix.ReplaceAllString(key, ""), "")
}

var labelRank = map[string]int{
	"mobile":   0,
	"home":     1,
	"work":     2,
	"main":     3,
	"other":    4,
	"birthday": 5,
}

type keyOrder struct {
	rank int
	base string
	n    int
	key  string
}

func orderOf(key string) keyOrder {
	base := LabelBase(key)
	rank, ok := labelRank[base]
	if !ok {
		rank = len(labelRank)
	}
	n := 1
	if m := numericSuffix.FindString(key); m != "" {
		if v, err := strconv.Atoi(m[1:]); err == nil {
			n = v
		}
	}
	return keyOrder{rank: rank, base: base, n: n, key: key}
}

// OrderedKeys returns the keys of a labelled collection in display order:
// well-known labels first, then by label name, then by repeat number.
func OrderedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := orderOf(keys[i]), orderOf(keys[j])
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.base != b.base {
			return a.base < b.base
		}
		if a.n != b.n {
			return a.n < b.n
		}
		return a.key < b.key
	})
	return keys
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// Clone returns a deep copy so callers can mutate maps freely.
func (c Contact) Clone() Contact {
	c.Phones = cloneMap(c.Phones)
	c.Emails = cloneMap(c.Emails)
	c.URLs = cloneMap(c.URLs)
	c.Dates = cloneMap(c.Dates)
	c.Addresses = cloneMap(c.Addresses)
	return c
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
