package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formby-guide/guide-cli/internal/model"
)

func TestExtractPostcode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full address", "1 Main St, Formby, L37 7AB, UK", "L37 7AB"},
		{"lowercase", "12 chapel lane, formby l37 4du", "L37 4DU"},
		{"no space", "Unit 3, Crosby L23 6XB", "L23 6XB"},
		{"two-letter area", "10 Lord St, Southport PR8 1NY", "PR8 1NY"},
		{"none", "Somewhere in Lancashire", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPostcode(tt.in))
		})
	}
}

func TestOutwardCode(t *testing.T) {
	assert.Equal(t, "L37", OutwardCode("L37 7AB"))
	assert.Equal(t, "PR8", OutwardCode("PR8 1NY"))
	assert.Equal(t, "", OutwardCode(""))
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"limited", "Coastal Coffee Limited", "Coastal Coffee"},
		{"ltd with dot", "Formby Tiles Ltd.", "Formby Tiles"},
		{"llp", "Harrison & Dunne LLP", "Harrison & Dunne"},
		{"and co", "Baker and Co", "Baker"},
		{"locality suffix", "The Grill Formby", "The Grill"},
		{"both", "The Grill Formby Ltd", "The Grill"},
		{"untouched", "The Sparrowhawk", "The Sparrowhawk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanName(tt.in, "Formby", "Liverpool"))
		})
	}
}

func TestPriceRange(t *testing.T) {
	assert.Nil(t, PriceRange(nil))
	assert.Equal(t, "Free", *PriceRange(model.Ptr(0)))
	assert.Equal(t, "££", *PriceRange(model.Ptr(2)))
	assert.Equal(t, "££££", *PriceRange(model.Ptr(4)))
	assert.Nil(t, PriceRange(model.Ptr(9)))
	assert.Nil(t, PriceRange(model.Ptr(-1)))
}

func TestRatingValue(t *testing.T) {
	got := RatingValue("5")
	require.NotNil(t, got)
	assert.Equal(t, "5", *got)

	got = RatingValue("AwaitingInspection")
	require.NotNil(t, got)
	assert.Equal(t, "AwaitingInspection", *got)

	assert.Nil(t, RatingValue(""))
	assert.Nil(t, RatingValue("null"))
	assert.Nil(t, RatingValue("none"))
}

func TestRatingDate(t *testing.T) {
	got := RatingDate("2024-03-15T00:00:00")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *got)

	got = RatingDate("2023-11-02")
	require.NotNil(t, got)
	assert.Equal(t, 2023, got.Year())

	assert.Nil(t, RatingDate(""))
	assert.Nil(t, RatingDate("not a date"))
}
