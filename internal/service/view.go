package service

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/rehber/rehber/internal/models"
	"github.com/rehber/rehber/internal/util"
)

// Tab filters the list view.
type Tab string

const (
	TabAll       Tab = "all"
	TabFavorites Tab = "fav"
)

// OtherGroup collects names that do not start with a letter of the alphabet.
const OtherGroup = "#"

// Alphabet is the index bar shown beside the list.
var Alphabet = strings.Fields("A B C Ç D E F G Ğ H I İ J K L M N O Ö P R S Ş T U Ü V Y Z #")

const groupLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZÇĞİÖŞÜ"

// Casers keep state between calls, so each use gets a fresh one.
func upperTR(s string) string { return cases.Upper(language.Turkish).String(s) }

func lowerTR(s string) string { return cases.Lower(language.Turkish).String(s) }

// ViewState is everything the list screen depends on.
type ViewState struct {
	Query string          `json:"q"`
	Sort  models.SortMode `json:"sort"`
	Tab   Tab             `json:"tab"`
}

// Normalize fills defaults for unknown values.
func (s ViewState) Normalize() ViewState {
	if s.Sort != models.SortByLast {
		s.Sort = models.SortByFirst
	}
	if s.Tab != TabFavorites {
		s.Tab = TabAll
	}
	s.Query = strings.TrimSpace(s.Query)
	return s
}

// ListItem is one row of the list.
type ListItem struct {
	ID       models.ContactID `json:"id"`
	Display  string           `json:"display"`
	Subtitle string           `json:"subtitle,omitempty"`
	Photo    string           `json:"photo,omitempty"`
	Favorite bool             `json:"isFavorite"`
}

// Group is a run of rows sharing a first letter.
type Group struct {
	Key      string     `json:"key"`
	Contacts []ListItem `json:"contacts"`
}

// AlphaEntry is one letter of the index bar.
type AlphaEntry struct {
	Letter string `json:"letter"`
	Active bool   `json:"active"`
}

// View is the rendered list screen.
type View struct {
	State        ViewState    `json:"state"`
	CountAll     int          `json:"countAll"`
	CountFav     int          `json:"countFav"`
	Shown        int          `json:"shown"`
	Groups       []Group      `json:"groups"`
	Alphabet     []AlphaEntry `json:"alphabet"`
	EmptyMessage string       `json:"emptyMessage,omitempty"`
}

// BuildView filters, sorts and groups contacts for state. It has no other
// inputs, so the same state always renders the same view.
func BuildView(contacts []models.Contact, state ViewState) *View {
	state = state.Normalize()
	v := &View{State: state, CountAll: len(contacts), Groups: []Group{}}

	filtered := make([]*models.Contact, 0, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		if c.IsFavorite {
			v.CountFav++
		}
		if state.Tab == TabFavorites && !c.IsFavorite {
			continue
		}
		if state.Query != "" && !matches(c, state.Query) {
			continue
		}
		filtered = append(filtered, c)
	}
	v.Shown = len(filtered)

	if len(filtered) == 0 {
		switch {
		case state.Tab == TabFavorites:
			v.EmptyMessage = "Favori kişi yok"
		case len(contacts) == 0:
			v.EmptyMessage = "Henüz kişi eklenmedi"
		default:
			v.EmptyMessage = "Sonuç bulunamadı"
		}
		v.Alphabet = alphabet(nil)
		return v
	}

	keys := make(map[*models.Contact]string, len(filtered))
	for _, c := range filtered {
		keys[c] = upperTR(c.SortKey(state.Sort))
	}
	col := collate.New(language.Turkish)
	sort.SliceStable(filtered, func(i, j int) bool {
		return col.CompareString(keys[filtered[i]], keys[filtered[j]]) < 0
	})

	index := map[string]int{}
	for _, c := range filtered {
		g := groupKey(keys[c])
		pos, ok := index[g]
		if !ok {
			pos = len(v.Groups)
			index[g] = pos
			v.Groups = append(v.Groups, Group{Key: g})
		}
		v.Groups[pos].Contacts = append(v.Groups[pos].Contacts, listItem(c))
	}
	sort.SliceStable(v.Groups, func(i, j int) bool {
		a, b := v.Groups[i].Key, v.Groups[j].Key
		if a == OtherGroup || b == OtherGroup {
			return b == OtherGroup && a != OtherGroup
		}
		return col.CompareString(a, b) < 0
	})

	active := make(map[string]bool, len(v.Groups))
	for _, g := range v.Groups {
		active[g.Key] = true
	}
	v.Alphabet = alphabet(active)
	return v
}

func alphabet(active map[string]bool) []AlphaEntry {
	out := make([]AlphaEntry, len(Alphabet))
	for i, l := range Alphabet {
		out[i] = AlphaEntry{Letter: l, Active: active[l]}
	}
	return out
}

// groupKey returns the first letter of an upper-cased sort key, or "#".
func groupKey(upperKey string) string {
	r, _ := utf8.DecodeRuneInString(upperKey)
	if r == utf8.RuneError || !strings.ContainsRune(groupLetters, r) {
		return OtherGroup
	}
	return string(r)
}

func listItem(c *models.Contact) ListItem {
	subtitle := c.Company
	if subtitle == "" {
		subtitle = c.PrimaryPhone()
	}
	return ListItem{
		ID:       c.ID,
		Display:  c.SortKey(models.SortByFirst),
		Subtitle: subtitle,
		Photo:    c.Photo,
		Favorite: c.IsFavorite,
	}
}

// matches is the shared search predicate: a case-insensitive substring of a
// name field, or a substring of a phone number.
func matches(c *models.Contact, query string) bool {
	q := lowerTR(query)
	for _, s := range []string{c.FirstName, c.LastName, c.Name, c.Company} {
		if s != "" && strings.Contains(lowerTR(s), q) {
			return true
		}
	}
	if strings.Contains(c.PrimaryPhone(), query) {
		return true
	}
	for _, p := range c.AllPhones() {
		if util.PhoneContains(p.Value, query) {
			return true
		}
	}
	return false
}
