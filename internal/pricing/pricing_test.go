package pricing

import (
	"testing"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var calc = NewCalculator(1100, 500, "IDR")

func hotel(price int64) domain.BookableItem {
	return domain.BookableItem{ID: "h-1", Type: domain.ItemTypeHotel, Name: "Hotel Indonesia", Price: price}
}

func destination(price int64) domain.BookableItem {
	return domain.BookableItem{ID: "d-1", Type: domain.ItemTypeDestination, Name: "Borobudur", Price: price}
}

func TestQuote_HotelTwoNights(t *testing.T) {
	d := domain.BookingDraft{CheckIn: "2025-06-01", CheckOut: "2025-06-03", Guests: 2, Rooms: 1}

	q, err := calc.Quote(hotel(800000), d)
	require.NoError(t, err)

	assert.Equal(t, 2, q.Nights)
	assert.Equal(t, int64(1600000), q.Subtotal)
	assert.Equal(t, int64(176000), q.Tax)
	assert.Equal(t, int64(80000), q.ServiceFee)
	assert.Equal(t, int64(1856000), q.Total)
	assert.Equal(t, "IDR 1.856.000", Format(q.Total, q.Currency))
}

func TestQuote_HotelUsesRooms(t *testing.T) {
	d := domain.BookingDraft{CheckIn: "2025-06-01", CheckOut: "2025-06-04", Guests: 6, Rooms: 3}

	q, err := calc.Quote(hotel(100000), d)
	require.NoError(t, err)

	assert.Equal(t, 3, q.Quantity)
	assert.Equal(t, int64(100000*3*3), q.Subtotal)
}

func TestQuote_DestinationUsesGuests(t *testing.T) {
	d := domain.BookingDraft{CheckIn: "2025-06-01", CheckOut: "2025-06-04", Guests: 4, Rooms: 2}

	q, err := calc.Quote(destination(25000), d)
	require.NoError(t, err)

	assert.Equal(t, 0, q.Nights)
	assert.Equal(t, int64(100000), q.Subtotal)
	assert.Equal(t, int64(11000), q.Tax)
	assert.Equal(t, int64(5000), q.ServiceFee)
	assert.Equal(t, int64(116000), q.Total)
}

func TestQuote_HotelRequiresDates(t *testing.T) {
	_, err := calc.Quote(hotel(100000), domain.BookingDraft{Rooms: 1, Guests: 1})
	assert.ErrorIs(t, err, ErrInvalidDates)
}

func TestQuote_IsDeterministic(t *testing.T) {
	d := domain.BookingDraft{CheckIn: "2025-06-01", CheckOut: "2025-06-05", Guests: 2, Rooms: 2}
	first, err := calc.Quote(hotel(333333), d)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := calc.Quote(hotel(333333), d)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestQuote_LinesReconcileWithTotal(t *testing.T) {
	usd := NewCalculator(1100, 500, "USD")
	prices := []int64{1, 7, 99, 1999, 12345, 333333, 999999}

	for _, p := range prices {
		for guests := 1; guests <= 5; guests++ {
			q, err := usd.Quote(destination(p), domain.BookingDraft{Guests: guests, Rooms: 1})
			require.NoError(t, err)

			assert.Equal(t, q.Total, q.Subtotal+q.Tax+q.ServiceFee)

			exact := float64(q.Subtotal) * 1.16
			assert.InDelta(t, exact, float64(q.Total), 1.0)
		}
	}
}

func TestNights(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, Nights(base, base))
	assert.Equal(t, 0, Nights(base, base.Add(-48*time.Hour)))
	assert.Equal(t, 1, Nights(base, base.Add(24*time.Hour)))
	assert.Equal(t, 2, Nights(base, base.Add(25*time.Hour)))
	assert.Equal(t, 2, Nights(base, base.AddDate(0, 0, 2)))
}

func TestApplyRate_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(0), applyRate(4, 1100))
	assert.Equal(t, int64(1), applyRate(5, 1000))
	assert.Equal(t, int64(6), applyRate(55, 1100))
	assert.Equal(t, int64(0), applyRate(-100, 1100))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "IDR 0", Format(0, "IDR"))
	assert.Equal(t, "IDR 800.000", Format(800000, "IDR"))
	assert.Equal(t, "USD 12.50", Format(1250, "USD"))
	assert.Equal(t, "USD 1,234,567.05", Format(123456705, "usd"))
	assert.Equal(t, "USD -0.99", Format(-99, "USD"))
}
