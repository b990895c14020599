package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusPaid        PaymentStatus = "paid"
	PaymentStatusFailed      PaymentStatus = "failed"
	PaymentStatusExpired     PaymentStatus = "expired"
	PaymentStatusNotRequired PaymentStatus = "not_required"
)

// bookingTransitions lists the status moves an admin or the payment provider may make.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
}

// CanTransition reports whether a booking in status from may move to status to.
func CanTransition(from, to BookingStatus) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch st := BookingStatus(s); st {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return st, true
	}
	return "", false
}

// Booking is the server-side record written once at submission time.
// Amounts are in minor units of Currency.
type Booking struct {
	ID            string
	UserID        string
	BookingType   ItemType
	DestinationID *string
	HotelID       *string
	CheckIn       time.Time
	CheckOut      time.Time
	Guests        int
	Rooms         int
	TotalAmount   int64
	Currency      string
	Status        BookingStatus
	PaymentStatus PaymentStatus
	PaymentURL    string
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	Notes         string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ItemID returns whichever of DestinationID or HotelID is set.
func (b *Booking) ItemID() string {
	if b.HotelID != nil {
		return *b.HotelID
	}
	if b.DestinationID != nil {
		return *b.DestinationID
	}
	return ""
}

// ActivityLog is a row of the activity_logs audit table.
type ActivityLog struct {
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]any
	CreatedAt  time.Time
}
