package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// WizardStep is a stage of the booking wizard.
type WizardStep int

const (
	StepDetails      WizardStep = 1
	StepPayment      WizardStep = 2
	StepConfirmation WizardStep = 3
)

func (s WizardStep) String() string {
	switch s {
	case StepDetails:
		return "details"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	}
	return "unknown"
}

// DateLayout is the layout of date form values.
const DateLayout = "2006-01-02"

// BookingDraft holds the booking step form. Dates are kept as entered.
type BookingDraft struct {
	CheckIn        string `json:"checkIn"`
	CheckOut       string `json:"checkOut"`
	Guests         int    `json:"guests"`
	Rooms          int    `json:"rooms"`
	SpecialRequest string `json:"specialRequest"`
}

func NewBookingDraft() BookingDraft {
	return BookingDraft{Guests: 1, Rooms: 1}
}

// With returns a copy of d with one field replaced.
func (d BookingDraft) With(field, value string) (BookingDraft, error) {
	switch field {
	case "checkIn":
		d.CheckIn = strings.TrimSpace(value)
	case "checkOut":
		d.CheckOut = strings.TrimSpace(value)
	case "guests":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return d, fmt.Errorf("guests: %w", err)
		}
		d.Guests = n
	case "rooms":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return d, fmt.Errorf("rooms: %w", err)
		}
		d.Rooms = n
	case "specialRequest":
		d.SpecialRequest = value
	default:
		return d, fmt.Errorf("unknown booking field %q", field)
	}
	return d, nil
}

// PaymentDetails holds the in-page card form.
type PaymentDetails struct {
	CardNumber     string `json:"cardNumber"`
	Expiry         string `json:"expiry"`
	CVV            string `json:"cvv"`
	CardholderName string `json:"cardholderName"`
	BillingAddress string `json:"billingAddress"`
	City           string `json:"city"`
	PostalCode     string `json:"postalCode"`
}

// With returns a copy of p with one field replaced. Card number and expiry are masked.
func (p PaymentDetails) With(field, value string) (PaymentDetails, error) {
	switch field {
	case "cardNumber":
		p.CardNumber = FormatCardNumber(value)
	case "expiry":
		p.Expiry = FormatExpiry(value)
	case "cvv":
		p.CVV = digitsOnly(value, 4)
	case "cardholderName":
		p.CardholderName = value
	case "billingAddress":
		p.BillingAddress = value
	case "city":
		p.City = value
	case "postalCode":
		p.PostalCode = value
	default:
		return p, fmt.Errorf("unknown payment field %q", field)
	}
	return p, nil
}

// FormatCardNumber keeps up to 16 digits and groups them by four.
func FormatCardNumber(raw string) string {
	digits := digitsOnly(raw, 16)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatExpiry masks input as MM/YY.
func FormatExpiry(raw string) string {
	digits := digitsOnly(raw, 4)
	if len(digits) <= 2 {
		return digits
	}
	return digits[:2] + "/" + digits[2:]
}

// CardDigits returns the digits of a formatted card number.
func CardDigits(s string) string {
	return digitsOnly(s, -1)
}

func digitsOnly(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		if max >= 0 && b.Len() >= max {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
