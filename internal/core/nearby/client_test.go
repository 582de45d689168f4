package nearby

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueryVariants(t *testing.T) {
	variants := buildQueryVariants("Indiranagar", "vegan", nil, "low")

	require.NotEmpty(t, variants)
	assert.Equal(t, "cheap vegan restaurant in Indiranagar", variants[0])
	assert.Contains(t, variants, "vegan restaurants in Indiranagar")
	assert.Contains(t, variants, "plant based restaurants in Indiranagar")
	assert.Contains(t, variants, "restaurants in Indiranagar")

	seen := map[string]bool{}
	for _, v := range variants {
		assert.False(t, seen[v], v)
		seen[v] = true
	}
}

func TestBuildQueryVariantsJain(t *testing.T) {
	variants := buildQueryVariants("Pune", "vegetarian", []string{"jain"}, "")

	assert.Equal(t, "jain friendly vegetarian restaurant in Pune", variants[0])
	assert.Contains(t, variants, "jain vegetarian restaurants in Pune")
	assert.Contains(t, variants, "vegetarian restaurants in Pune")
}

func TestExtractCandidatesCommonKey(t *testing.T) {
	var payload interface{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"search_results": [
			{"title": "Green Leaf", "address": "MG Road"},
			{"title": "Terra Kitchen"},
			"not-an-object"
		]
	}`), &payload))

	candidates := extractCandidates(payload)
	require.Len(t, candidates, 2)
	assert.Equal(t, "Green Leaf", candidates[0]["title"])
}

func TestExtractCandidatesNestedWalk(t *testing.T) {
	var payload interface{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"meta": {"page": 0},
		"wrapper": {"inner": [{"name": "Hidden Bistro", "place_id": "abc123"}]}
	}`), &payload))

	candidates := extractCandidates(payload)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Hidden Bistro", candidates[0]["name"])
}

func TestNormalizeItem(t *testing.T) {
	place, ok := normalizeItem(map[string]interface{}{
		"title":   "Green Leaf",
		"address": "MG Road, Bengaluru",
		"rating":  4.5,
		"phone":   "+91 80 1234 5678",
	})

	require.True(t, ok)
	assert.Equal(t, "Green Leaf", place.Name)
	assert.Equal(t, "MG Road, Bengaluru", place.Address)
	require.NotNil(t, place.Rating)
	assert.Equal(t, 4.5, *place.Rating)
	assert.Contains(t, place.MapsURL, "Green+Leaf")
}

func TestNormalizeItemRejectsNameless(t *testing.T) {
	_, ok := normalizeItem(map[string]interface{}{"address": "MG Road"})
	assert.False(t, ok)
}

func TestBuildMapsURLPreference(t *testing.T) {
	direct := buildMapsURL(map[string]interface{}{"maps_url": "https://maps.example/x"}, "A", "B")
	assert.Equal(t, "https://maps.example/x", direct)

	withID := buildMapsURL(map[string]interface{}{"place_id": "pid-1"}, "Green Leaf", "MG Road")
	assert.Contains(t, withID, "query_place_id=pid-1")
	assert.Contains(t, withID, "query=Green+Leaf+MG+Road")
}

func TestDedupe(t *testing.T) {
	out := dedupe([]Place{
		{Name: "Green Leaf", Address: "MG Road"},
		{Name: "green leaf ", Address: " mg road"},
		{Name: "Green Leaf", Address: "Other Street"},
	})
	assert.Len(t, out, 2)
}

func TestSortByRating(t *testing.T) {
	r1, r2 := 4.1, 4.8
	places := []Place{
		{Name: "NoRating"},
		{Name: "Mid", Rating: &r1},
		{Name: "Top", Rating: &r2},
	}
	sortByRating(places)

	assert.Equal(t, "Top", places[0].Name)
	assert.Equal(t, "Mid", places[1].Name)
	assert.Equal(t, "NoRating", places[2].Name)

	// 全部無評分時維持原序
	unrated := []Place{{Name: "A"}, {Name: "B"}}
	sortByRating(unrated)
	assert.Equal(t, "A", unrated[0].Name)
}

func TestCleanLocation(t *testing.T) {
	assert.Equal(t, "Indiranagar", cleanLocation("  Indiranagar!?  "))
	assert.Equal(t, "", cleanLocation(" .,; "))
}

func TestNormalizeRestrictions(t *testing.T) {
	out := normalizeRestrictions([]string{" Jain ", "jain", "", "Religious"})
	assert.Equal(t, []string{"jain", "religious"}, out)
}
