package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/pricing"
)

const FallbackImage = "/images/placeholder.jpg"

// Category prices used when a record carries no usable price field.
const (
	DefaultHotelPrice       int64 = 500000
	DefaultDestinationPrice int64 = 100000
)

// priceRangeTiers maps the numeric price_range enum (1 = budget .. 4 = luxury).
var priceRangeTiers = map[int]int64{
	1: 50000,
	2: 150000,
	3: 300000,
	4: 600000,
}

// Record is a raw destinations/hotels row decoded from JSON.
type Record map[string]any

func (r Record) str(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(v, 10)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

func (r Record) num(keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := r[k].(type) {
		case float64:
			return v, true
		case int64:
			return float64(v), true
		case int:
			return float64(v), true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func (r Record) firstImage() string {
	if s := r.str("featured_image"); s != "" {
		return s
	}
	if imgs, ok := r["images"].([]any); ok {
		for _, img := range imgs {
			if s, ok := img.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	if s := r.str("image_url", "image"); s != "" {
		return s
	}
	return FallbackImage
}

func (r Record) location() string {
	if s := r.str("location"); s != "" {
		return s
	}
	city, country := r.str("city"), r.str("country")
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	case country != "":
		return country
	}
	return r.str("address")
}

func (r Record) common(t domain.ItemType) domain.BookableItem {
	rating, _ := r.num("rating", "average_rating")
	return domain.BookableItem{
		ID:          r.str("id"),
		Type:        t,
		Name:        r.str("name", "title"),
		Location:    r.location(),
		ImageURL:    r.firstImage(),
		Rating:      rating,
		Description: r.str("description", "short_description"),
	}
}

// NormalizeHotel maps either hotel record shape onto a BookableItem priced
// in the minor units of currency.
func NormalizeHotel(r Record, currency string) domain.BookableItem {
	item := r.common(domain.ItemTypeHotel)
	item.Price = DefaultHotelPrice

	if v, ok := r.num("price_per_night"); ok && v > 0 {
		item.Price = int64(math.Round(v * math.Pow10(pricing.MinorUnits(currency))))
	} else if p, ok := ParsePriceText(r.str("priceRange", "price_range_text"), currency); ok {
		item.Price = p
	} else if tier, ok := tierPrice(r); ok {
		item.Price = tier
	}
	return item
}

// NormalizeDestination maps either destination record shape onto a BookableItem.
func NormalizeDestination(r Record, currency string) domain.BookableItem {
	item := r.common(domain.ItemTypeDestination)
	item.Price = DefaultDestinationPrice

	if p, ok := ParsePriceText(r.str("ticketPrice", "ticket_price"), currency); ok {
		item.Price = p
	} else if tier, ok := tierPrice(r); ok {
		item.Price = tier
	}
	return item
}

// Normalize dispatches on the type discriminator.
func Normalize(t domain.ItemType, r Record, currency string) (domain.BookableItem, error) {
	switch t {
	case domain.ItemTypeHotel:
		return NormalizeHotel(r, currency), nil
	case domain.ItemTypeDestination:
		return NormalizeDestination(r, currency), nil
	}
	return domain.BookableItem{}, fmt.Errorf("unknown item type %q", t)
}

func tierPrice(r Record) (int64, bool) {
	v, ok := r.num("price_range")
	if !ok {
		return 0, false
	}
	p, ok := priceRangeTiers[int(v)]
	return p, ok
}

// ParsePriceText reads prices such as "Rp 25.000", "IDR 500,000 - 1,000,000",
// "Rp 1.250.000,00", "$1,299.99" or "Free" and returns the amount in the minor
// units of currency. For a range the lower bound is used.
//
// Either '.' or ',' may group thousands. The last separator is the decimal
// point when it appears once and is followed by other than three digits, or
// when the other separator appears before it. Fractions beyond the currency's
// minor units are rounded half up.
func ParsePriceText(s, currency string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	switch strings.ToLower(s) {
	case "free", "gratis", "0":
		return 0, true
	}

	lower := s
	if i := strings.IndexAny(s, "-–~"); i > 0 {
		lower = s[:i]
	}

	num := numberToken(lower)
	if num == "" {
		return 0, false
	}

	whole, frac := num, ""
	if i := strings.LastIndexAny(num, ".,"); i >= 0 {
		sep, other := num[i], byte(',')
		if sep == ',' {
			other = '.'
		}
		tail := num[i+1:]
		single := strings.Count(num, string(sep)) == 1
		mixed := strings.IndexByte(num[:i], other) >= 0
		if (single && len(tail) != 3) || mixed {
			whole, frac = num[:i], tail
		}
	}
	whole = strings.NewReplacer(".", "", ",", "").Replace(whole)
	if whole == "" {
		whole = "0"
	}
	if len(whole) > 15 {
		return 0, false
	}

	units := pricing.MinorUnits(currency)
	digits := whole + padRight(frac, units+1)[:units]
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	if len(frac) > units && frac[units] >= '5' {
		n++
	}
	return n, true
}

// numberToken returns the first run of digits and separators in s, without
// trailing separators.
func numberToken(s string) string {
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return ""
	}
	end := start
	for end < len(s) && ((s[end] >= '0' && s[end] <= '9') || s[end] == '.' || s[end] == ',') {
		end++
	}
	return strings.TrimRight(s[start:end], ".,")
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat("0", n-len(s))
}
