// Package validation checks wizard input at step transitions.
//
// Rules run in a fixed order and every failure is collected. The first
// entry is the one a single-message UI should show.
package validation

import (
	"strings"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Message
}

// Err returns nil for an empty list so callers can use the usual err != nil check.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e *Errors) add(field, code, msg string) {
	*e = append(*e, FieldError{Field: field, Code: code, Message: msg})
}

// ValidateBooking checks the details step. today is truncated to its calendar day.
func ValidateBooking(d domain.BookingDraft, today time.Time) Errors {
	var errs Errors

	checkIn, inErr := parseDate(d.CheckIn)
	checkOut, outErr := parseDate(d.CheckOut)

	switch {
	case d.CheckIn == "":
		errs.add("checkIn", "required", "Please select a check-in date")
	case inErr != nil:
		errs.add("checkIn", "invalid", "Check-in date is not a valid date")
	}
	switch {
	case d.CheckOut == "":
		errs.add("checkOut", "required", "Please select a check-out date")
	case outErr != nil:
		errs.add("checkOut", "invalid", "Check-out date is not a valid date")
	}

	if d.CheckIn != "" && inErr == nil && checkIn.Before(startOfDay(today)) {
		errs.add("checkIn", "past", "Check-in date cannot be in the past")
	}
	if d.CheckIn != "" && d.CheckOut != "" && inErr == nil && outErr == nil && !checkOut.After(checkIn) {
		errs.add("checkOut", "order", "Check-out date must be after check-in date")
	}

	if d.Guests < 1 {
		errs.add("guests", "min", "At least one guest is required")
	}
	if d.Rooms < 1 {
		errs.add("rooms", "min", "At least one room is required")
	}
	return errs
}

// ValidatePayment checks the in-page card form.
func ValidatePayment(p domain.PaymentDetails) Errors {
	var errs Errors

	if len(domain.CardDigits(p.CardNumber)) < 16 {
		errs.add("cardNumber", "invalid", "Please enter a valid card number")
	}
	if len(p.Expiry) < 5 {
		errs.add("expiry", "invalid", "Please enter a valid expiry date")
	}
	if len(p.CVV) < 3 {
		errs.add("cvv", "invalid", "Please enter a valid CVV")
	}
	if blank(p.CardholderName) {
		errs.add("cardholderName", "required", "Please enter the cardholder name")
	}
	if blank(p.BillingAddress) {
		errs.add("billingAddress", "required", "Please enter your billing address")
	}
	if blank(p.City) {
		errs.add("city", "required", "Please enter your city")
	}
	if blank(p.PostalCode) {
		errs.add("postalCode", "required", "Please enter your postal code")
	}
	return errs
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(domain.DateLayout, s)
}

// startOfDay zeroes the time of day in t's own location, then moves to UTC
// so it compares against form dates, which parse as UTC midnight.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
