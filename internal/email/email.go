package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/Domenick1991/tourbooking/internal/pricing"
	"github.com/sirupsen/logrus"
)

// Message is a rendered notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender renders booking events into notifications. Delivery is a log line.
type Sender struct {
	log logrus.FieldLogger
}

func NewSender(log logrus.FieldLogger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	msg, ok := Render(event)
	if !ok {
		return nil
	}
	s.log.WithFields(logrus.Fields{
		"to":         msg.To,
		"booking_id": event.BookingID,
		"type":       event.Type,
	}).Info(msg.Subject)
	return nil
}

// Render builds the notification for event. Events without a recipient or
// without a template are skipped.
func Render(event kafka.BookingEvent) (Message, bool) {
	if event.Email == "" {
		return Message{}, false
	}
	amount := pricing.Format(event.Amount, event.Currency)

	var subject, body string
	switch event.Type {
	case "booking_created":
		subject = "Your booking is waiting for payment"
		body = fmt.Sprintf("Booking %s for %s has been created. Complete the payment before %s.",
			event.BookingID, amount, event.ExpiresAt.Format("02 Jan 2006 15:04 MST"))
	case "booking_confirmed":
		subject = "Your booking is confirmed"
		body = fmt.Sprintf("Payment of %s received. Booking %s is confirmed.", amount, event.BookingID)
	case "booking_payment_failed":
		subject = "Your payment did not go through"
		body = fmt.Sprintf("Booking %s is saved but not paid yet. You can retry the payment from your profile.", event.BookingID)
	case "booking_refund_required":
		subject = "We received a payment for a cancelled booking"
		body = fmt.Sprintf("Payment of %s arrived after booking %s was cancelled. It will be refunded.", amount, event.BookingID)
	case "booking_expired":
		subject = "Your booking has expired"
		body = fmt.Sprintf("Booking %s was cancelled because no payment was received in time.", event.BookingID)
	case "booking_cancelled":
		subject = "Your booking was cancelled"
		body = fmt.Sprintf("Booking %s has been cancelled.", event.BookingID)
	default:
		return Message{}, false
	}
	return Message{To: event.Email, Subject: subject, Body: body}, true
}
