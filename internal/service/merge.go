package service

import (
	"fmt"
	"strings"

	"github.com/rehber/rehber/internal/models"
	"github.com/rehber/rehber/internal/phone"
)

// mergeContacts folds incoming into existing. Labelled collections gain the
// new values under the next free "label", "label_2", ... key, skipping
// values already present. Phones count as present when their canonical keys
// match, so formatting differences do not add a second copy. Single-valued company and title keep the existing
// value and only fill blanks.
func mergeContacts(existing, incoming models.Contact) models.Contact {
	out := existing.Clone()
	out.Phones = mergeLabeled(out.Phones, incoming.Phones, isBlank, samePhone)
	out.Emails = mergeLabeled(out.Emails, incoming.Emails, isBlank, equal[string])
	out.URLs = mergeLabeled(out.URLs, incoming.URLs, isBlank, equal[string])
	out.Dates = mergeLabeled(out.Dates, incoming.Dates, isBlank, equal[string])
	out.Addresses = mergeLabeled(out.Addresses, incoming.Addresses, models.Address.IsEmpty, equal[models.Address])

	if strings.TrimSpace(out.Company) == "" {
		out.Company = incoming.Company
	}
	if strings.TrimSpace(out.Title) == "" {
		out.Title = incoming.Title
	}
	if incoming.Phone != "" && out.Phone == "" {
		out.Phone = incoming.Phone
	}
	return out
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func equal[V comparable](a, b V) bool { return a == b }

func samePhone(a, b string) bool {
	return a == b || phone.CanonicalKey(a) == phone.CanonicalKey(b)
}

func mergeLabeled[V any](dst, src map[string]V, empty func(V) bool, same func(a, b V) bool) map[string]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	for _, key := range models.OrderedKeys(src) {
		val := src[key]
		if empty(val) || containsValue(dst, val, same) {
			continue
		}
		dst[freeKey(dst, models.LabelBase(key), empty)] = val
	}
	return dst
}

func containsValue[V any](m map[string]V, v V, same func(a, b V) bool) bool {
	for _, existing := range m {
		if same(existing, v) {
			return true
		}
	}
	return false
}

func freeKey[V any](m map[string]V, label string, empty func(V) bool) string {
	candidate := label
	for n := 2; ; n++ {
		v, taken := m[candidate]
		if !taken || empty(v) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", label, n)
	}
}
