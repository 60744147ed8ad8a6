package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehber/rehber/internal/models"
)

func TestBuildCard(t *testing.T) {
	c := &models.Contact{
		ID:        "a",
		FirstName: "Ali",
		LastName:  "Veli",
		Phones:    map[string]string{"work": "+902121234567", "mobile_2": "05551234567", "mobile": "+905551234567"},
		Emails:    map[string]string{"personal": "ali@example.com"},
		Dates:     map[string]string{"birthday": "1990-01-02"},
		Addresses: map[string]models.Address{
			"home": {Street: "Atatürk Cd. 1", District: "Kadıköy", City: "İstanbul", Zip: "34710", Country: "Türkiye"},
			"work": {},
		},
	}

	card := BuildCard(c)
	assert.Equal(t, "Ali Veli", card.Display)
	require.Len(t, card.Phones, 3)
	assert.Equal(t, CardRow{Key: "mobile", Label: "cep", Value: "+90 (555) 123 45 67", Raw: "+905551234567"}, card.Phones[0])
	assert.Equal(t, "05551234567", card.Phones[1].Value, "numbers without a country code pass through")
	assert.Equal(t, "iş", card.Phones[2].Label)

	require.Len(t, card.Emails, 1)
	assert.Equal(t, "kişisel", card.Emails[0].Label)
	assert.Equal(t, "doğum günü", card.Dates[0].Label)

	require.Len(t, card.Addresses, 1)
	assert.Equal(t, "Atatürk Cd. 1, Kadıköy, İstanbul, 34710, Türkiye", card.Addresses[0].Value)
}

func TestBuildCardLegacyPhone(t *testing.T) {
	card := BuildCard(&models.Contact{Name: "Eski", Phone: "+12125551234"})
	require.Len(t, card.Phones, 1)
	assert.Equal(t, "cep", card.Phones[0].Label)
	assert.Equal(t, "+1 (212) 555-1234", card.Phones[0].Value)
	assert.NotNil(t, card.URLs)
}
