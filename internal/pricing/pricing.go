package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

const basisPoints = 10000

// minorUnits is the number of decimals per currency. Unknown currencies default to 2.
var minorUnits = map[string]int{
	"IDR": 0,
	"JPY": 0,
	"KRW": 0,
	"USD": 2,
	"EUR": 2,
	"SGD": 2,
	"MYR": 2,
	"AUD": 2,
}

// MinorUnits returns the number of decimal places used by currency.
func MinorUnits(currency string) int {
	if n, ok := minorUnits[strings.ToUpper(currency)]; ok {
		return n
	}
	return 2
}

var ErrInvalidDates = errors.New("check-in and check-out dates are required for hotel bookings")

// Quote is the price breakdown shown on the confirmation step.
// Subtotal + Tax + ServiceFee == Total always holds.
type Quote struct {
	Currency   string `json:"currency"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	Nights     int    `json:"nights"`
	Subtotal   int64  `json:"subtotal"`
	Tax        int64  `json:"tax"`
	ServiceFee int64  `json:"service_fee"`
	Total      int64  `json:"total"`
}

type Calculator struct {
	TaxRateBP        int64
	ServiceFeeRateBP int64
	Currency         string
}

func NewCalculator(taxRateBP, serviceFeeRateBP int64, currency string) Calculator {
	return Calculator{TaxRateBP: taxRateBP, ServiceFeeRateBP: serviceFeeRateBP, Currency: strings.ToUpper(currency)}
}

// Quote prices a draft for an item. It has no side effects.
func (c Calculator) Quote(item domain.BookableItem, d domain.BookingDraft) (Quote, error) {
	q := Quote{Currency: c.Currency, UnitPrice: item.Price}

	switch item.Type {
	case domain.ItemTypeHotel:
		checkIn, err1 := time.Parse(domain.DateLayout, d.CheckIn)
		checkOut, err2 := time.Parse(domain.DateLayout, d.CheckOut)
		if err1 != nil || err2 != nil {
			return Quote{}, ErrInvalidDates
		}
		q.Nights = Nights(checkIn, checkOut)
		q.Quantity = max(d.Rooms, 0)
		q.Subtotal = item.Price * int64(q.Quantity) * int64(q.Nights)
	case domain.ItemTypeDestination:
		q.Quantity = max(d.Guests, 0)
		q.Subtotal = item.Price * int64(q.Quantity)
	default:
		return Quote{}, fmt.Errorf("unknown item type %q", item.Type)
	}

	q.Tax = applyRate(q.Subtotal, c.TaxRateBP)
	q.ServiceFee = applyRate(q.Subtotal, c.ServiceFeeRateBP)
	q.Total = q.Subtotal + q.Tax + q.ServiceFee
	return q, nil
}

// Nights is the ceiling of the day difference, never negative.
func Nights(checkIn, checkOut time.Time) int {
	diff := checkOut.Sub(checkIn)
	if diff <= 0 {
		return 0
	}
	day := 24 * time.Hour
	n := diff / day
	if diff%day != 0 {
		n++
	}
	return int(n)
}

// applyRate returns amount*bp/10000 rounded half up to the minor unit.
func applyRate(amount, bp int64) int64 {
	if amount <= 0 || bp <= 0 {
		return 0
	}
	return (amount*bp + basisPoints/2) / basisPoints
}

// Format renders a minor-unit amount, e.g. "IDR 1.856.000" or "USD 12.50".
func Format(amount int64, currency string) string {
	decimals := MinorUnits(currency)
	neg := amount < 0
	if neg {
		amount = -amount
	}

	div := int64(1)
	for i := 0; i < decimals; i++ {
		div *= 10
	}
	whole, frac := amount/div, amount%div

	sep := ","
	if strings.EqualFold(currency, "IDR") {
		sep = "."
	}
	s := groupThousands(whole, sep)
	if decimals > 0 {
		point := "."
		if sep == "." {
			point = ","
		}
		s += point + fmt.Sprintf("%0*d", decimals, frac)
	}
	if neg {
		s = "-" + s
	}
	return strings.ToUpper(currency) + " " + s
}

func groupThousands(n int64, sep string) string {
	raw := fmt.Sprintf("%d", n)
	if len(raw) <= 3 {
		return raw
	}
	var b strings.Builder
	head := len(raw) % 3
	if head > 0 {
		b.WriteString(raw[:head])
	}
	for i := head; i < len(raw); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(raw[i : i+3])
	}
	return b.String()
}
