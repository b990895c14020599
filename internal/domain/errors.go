package domain

import "errors"

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrAuthRequired      = errors.New("please sign in to complete your booking")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPaymentFailed     = errors.New("payment could not be created")
)
