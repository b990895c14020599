package catalog

import (
	"encoding/json"
	"testing"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) Record {
	t.Helper()
	var r Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r
}

func TestNormalizeHotel_FeaturedImageAndNightlyRate(t *testing.T) {
	r := decode(t, `{
		"id": "b7e1",
		"name": "Hotel Tentrem",
		"city": "Yogyakarta",
		"country": "Indonesia",
		"featured_image": "https://cdn/tentrem.jpg",
		"price_per_night": 800000,
		"rating": 4.7,
		"description": "Five star"
	}`)

	item := NormalizeHotel(r, "IDR")

	assert.Equal(t, domain.BookableItem{
		ID:          "b7e1",
		Type:        domain.ItemTypeHotel,
		Name:        "Hotel Tentrem",
		Location:    "Yogyakarta, Indonesia",
		ImageURL:    "https://cdn/tentrem.jpg",
		Rating:      4.7,
		Price:       800000,
		Description: "Five star",
	}, item)
}

func TestNormalizeHotel_ImagesArrayAndPriceRangeText(t *testing.T) {
	r := decode(t, `{
		"id": 42,
		"title": "Ubud Villa",
		"location": "Ubud, Bali",
		"images": ["", "https://cdn/ubud-1.jpg", "https://cdn/ubud-2.jpg"],
		"priceRange": "Rp 1.250.000 - Rp 2.000.000",
		"average_rating": 4.2
	}`)

	item := NormalizeHotel(r, "IDR")

	assert.Equal(t, "42", item.ID)
	assert.Equal(t, "Ubud Villa", item.Name)
	assert.Equal(t, "https://cdn/ubud-1.jpg", item.ImageURL)
	assert.Equal(t, int64(1250000), item.Price)
	assert.Equal(t, 4.2, item.Rating)
}

func TestNormalizeHotel_Fallbacks(t *testing.T) {
	item := NormalizeHotel(decode(t, `{"id": "x", "name": "Bare"}`), "IDR")

	assert.Equal(t, FallbackImage, item.ImageURL)
	assert.Equal(t, DefaultHotelPrice, item.Price)
}

func TestNormalizeDestination_TicketPriceString(t *testing.T) {
	item := NormalizeDestination(decode(t, `{
		"id": "d1",
		"name": "Borobudur",
		"address": "Magelang",
		"ticketPrice": "Rp 50.000",
		"images": ["https://cdn/borobudur.jpg"]
	}`), "IDR")

	assert.Equal(t, domain.ItemTypeDestination, item.Type)
	assert.Equal(t, "Magelang", item.Location)
	assert.Equal(t, int64(50000), item.Price)
	assert.Equal(t, "https://cdn/borobudur.jpg", item.ImageURL)
}

func TestNormalizeDestination_FreeTicket(t *testing.T) {
	item := NormalizeDestination(decode(t, `{"id": "d2", "name": "Kuta Beach", "ticketPrice": "Free"}`), "IDR")
	assert.Equal(t, int64(0), item.Price)
}

func TestNormalizeDestination_PriceRangeEnum(t *testing.T) {
	testCases := []struct {
		raw      string
		expected int64
	}{
		{`{"id": "d", "price_range": 1}`, 50000},
		{`{"id": "d", "price_range": 3}`, 300000},
		{`{"id": "d", "price_range": 9}`, DefaultDestinationPrice},
		{`{"id": "d"}`, DefaultDestinationPrice},
	}

	for _, tc := range testCases {
		item := NormalizeDestination(decode(t, tc.raw), "IDR")
		assert.Equal(t, tc.expected, item.Price, tc.raw)
	}
}

func TestNormalize_UnknownType(t *testing.T) {
	_, err := Normalize("cruise", Record{}, "IDR")
	assert.Error(t, err)
}

func TestParsePriceText(t *testing.T) {
	testCases := []struct {
		in       string
		currency string
		expected int64
		ok       bool
	}{
		{"Rp 25.000", "IDR", 25000, true},
		{"IDR 500,000 - 1,000,000", "IDR", 500000, true},
		{"Rp 1.250.000,00", "IDR", 1250000, true},
		{"Rp 12.500,75", "IDR", 12501, true},
		{"Rp 12.500,25/orang", "IDR", 12500, true},
		{"$1,299.99", "USD", 129999, true},
		{"€ 1.299,99", "EUR", 129999, true},
		{"USD 12.5 - 20", "USD", 1250, true},
		{"USD 25", "USD", 2500, true},
		{"SGD 1,000", "SGD", 100000, true},
		{"Gratis", "IDR", 0, true},
		{"", "IDR", 0, false},
		{"call us", "IDR", 0, false},
	}

	for _, tc := range testCases {
		p, ok := ParsePriceText(tc.in, tc.currency)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.expected, p, tc.in)
	}
}

func TestNormalizeHotel_PriceInCurrencyMinorUnits(t *testing.T) {
	item := NormalizeHotel(decode(t, `{"id": "h", "price_per_night": 120.5}`), "USD")
	assert.Equal(t, int64(12050), item.Price)

	item = NormalizeHotel(decode(t, `{"id": "h", "priceRange": "USD 89.99 - 120"}`), "USD")
	assert.Equal(t, int64(8999), item.Price)
}
