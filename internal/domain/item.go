package domain

type ItemType string

const (
	ItemTypeDestination ItemType = "destination"
	ItemTypeHotel       ItemType = "hotel"
)

func ParseItemType(s string) (ItemType, bool) {
	switch t := ItemType(s); t {
	case ItemTypeDestination, ItemTypeHotel:
		return t, true
	}
	return "", false
}

// BookableItem is the read-only view of a destination or hotel used by the booking flow.
// Price is the unit price in minor units: per night for hotels, per guest for destinations.
type BookableItem struct {
	ID          string   `json:"id"`
	Type        ItemType `json:"type"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	ImageURL    string   `json:"image_url"`
	Rating      float64  `json:"rating"`
	Price       int64    `json:"price"`
	Description string   `json:"description"`
}
