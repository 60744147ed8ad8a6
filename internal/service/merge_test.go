package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rehber/rehber/internal/models"
)

func TestMergeLabeledSuffixesAndSkipsDuplicates(t *testing.T) {
	dst := map[string]string{"mobile": "1", "mobile_2": "2", "home": ""}
	src := map[string]string{"mobile_5": "3", "mobile": "1", "home_merged_99": "4", "work": " "}

	got := mergeLabeled(dst, src, isBlank, equal[string])
	assert.Equal(t, map[string]string{
		"mobile":   "1",
		"mobile_2": "2",
		"mobile_3": "3",
		"home":     "4",
	}, got)
}

func TestMergeLabeledNilDestination(t *testing.T) {
	got := mergeLabeled(nil, map[string]string{"work_2": "x"}, isBlank, equal[string])
	assert.Equal(t, map[string]string{"work": "x"}, got)
	assert.Nil(t, mergeLabeled[string](nil, nil, isBlank, equal[string]))
}

func TestMergeContactsAddresses(t *testing.T) {
	existing := models.Contact{
		Addresses: map[string]models.Address{"home": {City: "İzmir"}},
	}
	incoming := models.Contact{
		Addresses: map[string]models.Address{
			"home":   {City: "İzmir"},
			"home_2": {City: "Ankara"},
		},
	}

	got := mergeContacts(existing, incoming)
	assert.Equal(t, map[string]models.Address{
		"home":   {City: "İzmir"},
		"home_2": {City: "Ankara"},
	}, got.Addresses)
	assert.Len(t, existing.Addresses, 1, "existing is not mutated")
}

func TestMergeContactsPhonesCompareByCanonicalKey(t *testing.T) {
	existing := models.Contact{Phones: map[string]string{"mobile": "+905551234567"}}
	incoming := models.Contact{Phones: map[string]string{
		"mobile": "+90 (555) 123 45 67",
		"work":   "+90 (212) 555 00 00",
	}}

	got := mergeContacts(existing, incoming)
	assert.Equal(t, map[string]string{
		"mobile": "+905551234567",
		"work":   "+90 (212) 555 00 00",
	}, got.Phones)
}

