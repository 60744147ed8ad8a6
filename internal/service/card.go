package service

import (
	"strings"

	"github.com/rehber/rehber/internal/models"
	"github.com/rehber/rehber/internal/phone"
)

// CardRow is one labelled line of the detail card.
type CardRow struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Raw   string `json:"raw,omitempty"`
}

// Card is the read-only detail view of a contact.
type Card struct {
	ID         models.ContactID `json:"id"`
	Display    string           `json:"display"`
	Company    string           `json:"company,omitempty"`
	Title      string           `json:"title,omitempty"`
	Department string           `json:"department,omitempty"`
	Photo      string           `json:"photo,omitempty"`
	Favorite   bool             `json:"isFavorite"`
	Phones     []CardRow        `json:"phones"`
	Emails     []CardRow        `json:"emails"`
	URLs       []CardRow        `json:"urls"`
	Dates      []CardRow        `json:"dates"`
	Addresses  []CardRow        `json:"addresses"`
	Notes      string           `json:"notes,omitempty"`
}

var (
	phoneLabels = map[string]string{"mobile": "cep", "home": "ev", "work": "iş", "other": "diğer"}
	emailLabels = map[string]string{"home": "ev", "work": "iş", "personal": "kişisel", "other": "diğer"}
	dateLabels  = map[string]string{"birthday": "doğum günü", "anniversary": "yıl dönümü", "other": "diğer"}
)

func humanLabel(labels map[string]string, key string) string {
	base := models.LabelBase(key)
	if l, ok := labels[base]; ok {
		return l
	}
	return base
}

// BuildCard renders c for the detail screen. Phone numbers go through the
// formatter; everything else is shown as stored.
func BuildCard(c *models.Contact) *Card {
	card := &Card{
		ID:         c.ID,
		Display:    c.DisplayName(),
		Company:    c.Company,
		Title:      c.Title,
		Department: c.Department,
		Photo:      c.Photo,
		Favorite:   c.IsFavorite,
		Notes:      c.Notes,
		Phones:     []CardRow{},
		Emails:     []CardRow{},
		URLs:       []CardRow{},
		Dates:      []CardRow{},
		Addresses:  []CardRow{},
	}

	for _, k := range models.OrderedKeys(c.Phones) {
		v := c.Phones[k]
		if isBlank(v) {
			continue
		}
		card.Phones = append(card.Phones, CardRow{Key: k, Label: humanLabel(phoneLabels, k), Value: phone.Format(v), Raw: v})
	}
	if len(card.Phones) == 0 && !isBlank(c.Phone) {
		card.Phones = append(card.Phones, CardRow{Key: "phone", Label: "cep", Value: phone.Format(c.Phone), Raw: c.Phone})
	}

	for _, k := range models.OrderedKeys(c.Emails) {
		if v := c.Emails[k]; !isBlank(v) {
			card.Emails = append(card.Emails, CardRow{Key: k, Label: humanLabel(emailLabels, k), Value: v})
		}
	}
	for _, k := range models.OrderedKeys(c.URLs) {
		if v := c.URLs[k]; !isBlank(v) {
			card.URLs = append(card.URLs, CardRow{Key: k, Label: "url", Value: v})
		}
	}
	for _, k := range models.OrderedKeys(c.Dates) {
		if v := c.Dates[k]; !isBlank(v) {
			card.Dates = append(card.Dates, CardRow{Key: k, Label: humanLabel(dateLabels, k), Value: v})
		}
	}
	for _, k := range models.OrderedKeys(c.Addresses) {
		a := c.Addresses[k]
		if a.IsEmpty() {
			continue
		}
		card.Addresses = append(card.Addresses, CardRow{Key: k, Label: "adres", Value: joinAddress(a)})
	}
	return card
}

func joinAddress(a models.Address) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.District, a.City, a.Zip, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
