package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehber/rehber/internal/models"
)

func groupKeys(v *View) []string {
	out := make([]string, len(v.Groups))
	for i, g := range v.Groups {
		out[i] = g.Key
	}
	return out
}

func TestBuildViewTurkishGrouping(t *testing.T) {
	contacts := []models.Contact{
		{ID: "1", FirstName: "Deniz"},
		{ID: "2", FirstName: "Çağla"},
		{ID: "3", FirstName: "can"},
		{ID: "4", Name: "112 Acil"},
		{ID: "5", FirstName: "ılgın"},
		{ID: "6", FirstName: "İrem"},
		{ID: "7", FirstName: "Şule", IsFavorite: true},
	}

	v := BuildView(contacts, ViewState{})
	assert.Equal(t, []string{"C", "Ç", "D", "I", "İ", "Ş", "#"}, groupKeys(v))
	assert.Equal(t, 7, v.CountAll)
	assert.Equal(t, 1, v.CountFav)
	assert.Equal(t, 7, v.Shown)
	assert.Equal(t, models.SortByFirst, v.State.Sort)
	assert.Equal(t, TabAll, v.State.Tab)

	active := map[string]bool{}
	for _, a := range v.Alphabet {
		active[a.Letter] = a.Active
	}
	assert.True(t, active["Ç"])
	assert.True(t, active["#"])
	assert.False(t, active["A"])
	assert.Len(t, v.Alphabet, len(Alphabet))
}

func TestBuildViewSortByLastName(t *testing.T) {
	contacts := []models.Contact{
		{ID: "1", FirstName: "Ali", LastName: "Zorlu"},
		{ID: "2", FirstName: "Zeki", LastName: "Acar"},
	}

	first := BuildView(contacts, ViewState{Sort: models.SortByFirst})
	require.Len(t, first.Groups, 2)
	assert.Equal(t, "A", first.Groups[0].Key)
	assert.Equal(t, "Ali Zorlu", first.Groups[0].Contacts[0].Display)

	last := BuildView(contacts, ViewState{Sort: models.SortByLast})
	require.Len(t, last.Groups, 2)
	assert.Equal(t, "A", last.Groups[0].Key)
	assert.Equal(t, models.ContactID("2"), last.Groups[0].Contacts[0].ID)
	assert.Equal(t, "Zeki Acar", last.Groups[0].Contacts[0].Display)
}

func TestBuildViewFavoritesAndSearch(t *testing.T) {
	contacts := []models.Contact{
		{ID: "1", Name: "Ali", Company: "Acme", IsFavorite: true},
		{ID: "2", Name: "Veli", Phone: "+905551234567"},
	}

	fav := BuildView(contacts, ViewState{Tab: TabFavorites})
	assert.Equal(t, 1, fav.Shown)
	assert.Equal(t, "Acme", fav.Groups[0].Contacts[0].Subtitle)

	byPhone := BuildView(contacts, ViewState{Query: "555 123"})
	require.Equal(t, 1, byPhone.Shown)
	assert.Equal(t, "+905551234567", byPhone.Groups[0].Contacts[0].Subtitle)

	none := BuildView(contacts, ViewState{Query: "zzz"})
	assert.Equal(t, "Sonuç bulunamadı", none.EmptyMessage)
	assert.Empty(t, none.Groups)

	favNone := BuildView(contacts[1:], ViewState{Tab: TabFavorites})
	assert.Equal(t, "Favori kişi yok", favNone.EmptyMessage)

	empty := BuildView(nil, ViewState{})
	assert.Equal(t, "Henüz kişi eklenmedi", empty.EmptyMessage)
}

func TestBuildViewIsDeterministic(t *testing.T) {
	contacts := []models.Contact{
		{ID: "1", Name: "Ayşe"}, {ID: "2", Name: "ayşe"}, {ID: "3", Name: "Ahmet"},
	}
	a := BuildView(contacts, ViewState{Sort: "bogus", Tab: "bogus"})
	b := BuildView(contacts, ViewState{})
	assert.Equal(t, a.Groups, b.Groups)
}
