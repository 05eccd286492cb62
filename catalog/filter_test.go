package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"prime-nature-nuts/models"
)

func sampleEntries() []models.CatalogEntry {
	return []models.CatalogEntry{
		{ID: "1", Name: "Cashew W240", Category: "nuts"},
		{ID: "2", Name: "Medjool Dates", Category: "dates"},
		{ID: "3", Name: "Roasted CASHEW", Category: "nuts"},
		{ID: "4", Name: "Almond", Category: "nuts"},
		{ID: "5", Name: "Cashew Cookies", Category: "Nuts"},
	}
}

func ids(entries []models.CatalogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestFilter_AllAndEmptySearchKeepsOrder(t *testing.T) {
	entries := sampleEntries()
	assert.Equal(t, entries, Filter(entries, AllCategories, ""))
	assert.Equal(t, entries, Filter(entries, "", "   "))
}

func TestFilter_CategoryIsExactAndCaseSensitive(t *testing.T) {
	assert.Equal(t, []string{"1", "3", "4"}, ids(Filter(sampleEntries(), "nuts", "")))
	assert.Equal(t, []string{"5"}, ids(Filter(sampleEntries(), "Nuts", "")))
	assert.Empty(t, Filter(sampleEntries(), "nut", ""))
}

func TestFilter_CategoryAndSearchAreAnded(t *testing.T) {
	assert.Equal(t, []string{"1", "3"}, ids(Filter(sampleEntries(), "nuts", "cash")))
}

func TestFilter_SearchMatchesNameOnly(t *testing.T) {
	entries := []models.CatalogEntry{
		{ID: "1", Name: "Trail Mix", Category: "cashew", Description: "with cashew"},
		{ID: "2", Name: "Cashew", Category: "nuts"},
	}
	assert.Equal(t, []string{"2"}, ids(Filter(entries, AllCategories, "CASHEW")))
}

func TestFilter_EmptyResultIsNotNil(t *testing.T) {
	got := Filter(nil, AllCategories, "")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = Filter(sampleEntries(), "spices", "")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCategories_FirstSeenOrder(t *testing.T) {
	entries := append(sampleEntries(), models.CatalogEntry{ID: "6", Name: "Mystery"})
	assert.Equal(t, []string{"nuts", "dates", "Nuts"}, Categories(entries))
}
