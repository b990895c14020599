package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/draft"
	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/Domenick1991/tourbooking/internal/payment"
	"github.com/Domenick1991/tourbooking/internal/pricing"
	"github.com/Domenick1991/tourbooking/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	msgBookingFailed = "We could not save your booking. Please try again."
	msgPaymentFailed = "Your booking is saved but the payment page could not be opened. You can retry the payment from your bookings."
	msgNoPayment     = "Your booking is confirmed."
	msgRedirecting   = "Redirecting to payment."
)

type BookingUseCase interface {
	Confirm(ctx context.Context, in SubmitInput) (*Submission, error)
	Submit(ctx context.Context, in SubmitInput) (*Submission, error)
	RetryPayment(ctx context.Context, customer *Customer, bookingID string) (string, error)
	HandlePaymentCallback(ctx context.Context, cb PaymentCallback) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, bookingID string, status domain.BookingStatus) (*domain.Booking, error)
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Booking, error)
	Get(ctx context.Context, bookingID string) (*domain.Booking, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Customer is the authenticated user placing the booking.
type Customer struct {
	ID    string
	Email string
	Name  string
	Phone string
}

type SubmitInput struct {
	Customer *Customer
	Item     domain.BookableItem
	Form     *draft.FormState
}

// PaymentCallback is the provider's notification about a hosted checkout.
type PaymentCallback struct {
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
}

const (
	CallbackPaid    = "PAID"
	CallbackExpired = "EXPIRED"
	CallbackFailed  = "FAILED"
)

type BookingService struct {
	bookings           repository.BookingRepository
	activity           repository.ActivityLogRepository
	gateway            payment.Gateway
	producer           Producer
	calculator         pricing.Calculator
	bookingTopic       string
	notificationsTopic string
	pendingTTL         time.Duration
	log                logrus.FieldLogger
	now                func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithActivityLog(repo repository.ActivityLogRepository) BookingServiceOption {
	return func(s *BookingService) {
		s.activity = repo
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	gateway payment.Gateway,
	producer Producer,
	calculator pricing.Calculator,
	bookingTopic string,
	pendingTTL time.Duration,
	log logrus.FieldLogger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		gateway:      gateway,
		producer:     producer,
		calculator:   calculator,
		bookingTopic: bookingTopic,
		pendingTTL:   pendingTTL,
		log:          log,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Confirm validates the whole form and prices it for the confirmation modal.
func (s *BookingService) Confirm(ctx context.Context, in SubmitInput) (*Submission, error) {
	sub := NewSubmission()
	if in.Form == nil {
		return sub, errors.New("booking form is required")
	}
	if errs := in.Form.Ready(); len(errs) > 0 {
		sub.Errors = errs
		sub.Message = errs[0].Message
		return sub, errs
	}

	quote, err := s.calculator.Quote(in.Item, in.Form.Booking)
	if err != nil {
		return sub, err
	}
	sub.Quote = &quote
	return sub, sub.transition(StateConfirming)
}

// Submit writes the booking and hands off to the hosted checkout.
// The returned Submission is always non-nil and describes the outcome.
func (s *BookingService) Submit(ctx context.Context, in SubmitInput) (*Submission, error) {
	sub := &Submission{State: StateConfirming}

	if in.Customer == nil || in.Customer.ID == "" {
		sub.fail(domain.ErrAuthRequired.Error())
		return sub, domain.ErrAuthRequired
	}
	if in.Form == nil {
		sub.fail(msgBookingFailed)
		return sub, errors.New("booking form is required")
	}
	if errs := in.Form.Ready(); len(errs) > 0 {
		sub.Errors = errs
		sub.fail(errs[0].Message)
		return sub, errs
	}

	quote, err := s.calculator.Quote(in.Item, in.Form.Booking)
	if err != nil {
		sub.fail(err.Error())
		return sub, err
	}
	sub.Quote = &quote

	if err := sub.transition(StateSubmitting); err != nil {
		return sub, err
	}

	booking, err := s.newBooking(in, quote)
	if err != nil {
		sub.fail(msgBookingFailed)
		return sub, err
	}
	if err := s.bookings.CreatePending(ctx, booking); err != nil {
		s.log.WithFields(logrus.Fields{"user_id": in.Customer.ID, "item_id": in.Item.ID}).Errorf("insert booking: %v", err)
		sub.fail(msgBookingFailed)
		return sub, fmt.Errorf("insert booking: %w", err)
	}
	if booking.ID == "" {
		sub.fail(msgBookingFailed)
		return sub, errors.New("insert booking: no id returned")
	}
	sub.BookingID = booking.ID

	s.recordActivity(ctx, booking)
	s.publishLogged(ctx, "booking_created", booking)

	if quote.Total == 0 {
		confirmed, err := s.bookings.UpdateStatus(ctx, booking.ID, repository.StatusChange{
			FromStatus:  domain.BookingStatusPending,
			FromPayment: domain.PaymentStatusPending,
			ToStatus:    domain.BookingStatusConfirmed,
			ToPayment:   domain.PaymentStatusNotRequired,
		})
		if err != nil {
			sub.fail(msgBookingFailed)
			return sub, fmt.Errorf("confirm free booking: %w", err)
		}
		s.publishLogged(ctx, "booking_confirmed", confirmed)
		s.clearDraft(ctx, in.Form)
		sub.Message = msgNoPayment
		return sub, sub.transition(StateSucceeded)
	}

	url, err := s.gateway.CreatePayment(ctx, paymentRequest(booking))
	if err != nil {
		s.log.WithFields(logrus.Fields{"booking_id": booking.ID}).Errorf("create payment: %v", err)
		s.publishLogged(ctx, "booking_payment_failed", booking)
		sub.fail(msgPaymentFailed)
		return sub, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}

	if err := s.bookings.SetPaymentURL(ctx, booking.ID, url); err != nil {
		s.log.WithFields(logrus.Fields{"booking_id": booking.ID}).Warnf("store payment url: %v", err)
	}
	s.clearDraft(ctx, in.Form)

	sub.RedirectURL = url
	sub.Message = msgRedirecting
	return sub, sub.transition(StateSucceeded)
}

func (s *BookingService) newBooking(in SubmitInput, quote pricing.Quote) (*domain.Booking, error) {
	checkIn, err := time.Parse(domain.DateLayout, in.Form.Booking.CheckIn)
	if err != nil {
		return nil, fmt.Errorf("parse check-in: %w", err)
	}
	checkOut, err := time.Parse(domain.DateLayout, in.Form.Booking.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("parse check-out: %w", err)
	}

	itemID := in.Item.ID
	b := &domain.Booking{
		ID:           uuid.NewString(),
		UserID:       in.Customer.ID,
		BookingType:  in.Item.Type,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		Guests:       in.Form.Booking.Guests,
		Rooms:        in.Form.Booking.Rooms,
		TotalAmount:  quote.Total,
		Currency:     quote.Currency,
		ContactName:  in.Customer.Name,
		ContactEmail: in.Customer.Email,
		ContactPhone: in.Customer.Phone,
		Notes:        in.Form.Booking.SpecialRequest,
		ExpiresAt:    s.now().Add(s.pendingTTL),
	}
	if in.Item.Type == domain.ItemTypeHotel {
		b.HotelID = &itemID
	} else {
		b.DestinationID = &itemID
	}
	return b, nil
}

func paymentRequest(b *domain.Booking) payment.CreateRequest {
	return payment.CreateRequest{
		BookingID:     b.ID,
		Amount:        b.TotalAmount,
		Currency:      b.Currency,
		CustomerEmail: b.ContactEmail,
		CustomerName:  b.ContactName,
	}
}

// RetryPayment re-issues payment creation for an unpaid pending booking owned
// by customer. A booking whose last attempt failed goes back to pending payment.
func (s *BookingService) RetryPayment(ctx context.Context, customer *Customer, bookingID string) (string, error) {
	if customer == nil || customer.ID == "" {
		return "", domain.ErrAuthRequired
	}
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if current.UserID != customer.ID {
		return "", domain.ErrForbidden
	}
	if current.Status != domain.BookingStatusPending ||
		(current.PaymentStatus != domain.PaymentStatusPending && current.PaymentStatus != domain.PaymentStatusFailed) {
		return "", fmt.Errorf("%w: booking is %s/%s", domain.ErrInvalidTransition, current.Status, current.PaymentStatus)
	}
	if !current.ExpiresAt.After(s.now()) {
		return "", fmt.Errorf("%w: booking has expired", domain.ErrInvalidTransition)
	}

	req := paymentRequest(current)
	req.IdempotencyKey = fmt.Sprintf("%s-retry-%d", current.ID, s.now().Unix())
	url, err := s.gateway.CreatePayment(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}
	if current.PaymentStatus == domain.PaymentStatusFailed {
		_, err := s.bookings.UpdateStatus(ctx, current.ID, repository.StatusChange{
			FromStatus:  domain.BookingStatusPending,
			FromPayment: domain.PaymentStatusFailed,
			ToStatus:    domain.BookingStatusPending,
			ToPayment:   domain.PaymentStatusPending,
		})
		if err != nil {
			s.log.WithFields(logrus.Fields{"booking_id": current.ID}).Warnf("reset payment status: %v", err)
		}
	}
	if err := s.bookings.SetPaymentURL(ctx, current.ID, url); err != nil {
		s.log.WithFields(logrus.Fields{"booking_id": current.ID}).Warnf("store payment url: %v", err)
	}
	return url, nil
}

// HandlePaymentCallback applies the provider's verdict. Repeated callbacks
// for an already settled booking are no-ops. When the booking changes between
// the read and the guarded update, the verdict is re-evaluated once.
func (s *BookingService) HandlePaymentCallback(ctx context.Context, cb PaymentCallback) (*domain.Booking, error) {
	switch cb.Status {
	case CallbackPaid, CallbackExpired, CallbackFailed:
	default:
		return nil, fmt.Errorf("unknown payment status %q", cb.Status)
	}

	for attempt := 0; ; attempt++ {
		current, err := s.bookings.GetByID(ctx, cb.BookingID)
		if err != nil {
			return nil, err
		}
		change, event, err := callbackChange(current, cb.Status)
		if err != nil {
			return nil, err
		}
		if event == "" {
			return current, nil
		}

		updated, err := s.bookings.UpdateStatus(ctx, current.ID, change)
		if errors.Is(err, domain.ErrInvalidTransition) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, err
		}
		if current.Status == domain.BookingStatusCancelled {
			s.log.WithFields(logrus.Fields{
				"booking_id": current.ID,
				"was":        string(current.Status) + "/" + string(current.PaymentStatus),
				"now":        string(updated.Status) + "/" + string(updated.PaymentStatus),
			}).Warn("payment arrived after the booking was cancelled")
		}
		s.publishLogged(ctx, event, updated)
		return updated, nil
	}
}

// eventLatePayment flags money received for a booking that stays cancelled.
const eventLatePayment = "booking_refund_required"

// callbackChange maps a provider status onto the booking's current state. An
// empty event means the booking already reflects the verdict.
//
// A payment for a booking cancelled by the expiration sweep reinstates it. A
// payment for a booking cancelled any other way is recorded and flagged for
// refund. FAILED only marks the payment; the booking stays pending and the
// customer may retry until it expires.
func callbackChange(b *domain.Booking, status string) (repository.StatusChange, string, error) {
	change := repository.StatusChange{FromStatus: b.Status, FromPayment: b.PaymentStatus}
	unpaid := b.PaymentStatus == domain.PaymentStatusPending || b.PaymentStatus == domain.PaymentStatusFailed

	switch status {
	case CallbackPaid:
		change.ToPayment = domain.PaymentStatusPaid
		switch {
		case b.PaymentStatus == domain.PaymentStatusPaid:
			return change, "", nil
		case b.Status == domain.BookingStatusPending && unpaid:
			change.ToStatus = domain.BookingStatusConfirmed
			return change, "booking_confirmed", nil
		case b.Status == domain.BookingStatusCancelled && b.PaymentStatus == domain.PaymentStatusExpired:
			change.ToStatus = domain.BookingStatusConfirmed
			return change, "booking_confirmed", nil
		case b.Status == domain.BookingStatusCancelled:
			change.ToStatus = domain.BookingStatusCancelled
			return change, eventLatePayment, nil
		}
	case CallbackExpired:
		change.ToStatus, change.ToPayment = domain.BookingStatusCancelled, domain.PaymentStatusExpired
		switch {
		case b.Status == domain.BookingStatusCancelled && b.PaymentStatus == domain.PaymentStatusExpired:
			return change, "", nil
		case b.Status == domain.BookingStatusPending && unpaid:
			return change, "booking_expired", nil
		}
	case CallbackFailed:
		change.ToStatus, change.ToPayment = domain.BookingStatusPending, domain.PaymentStatusFailed
		switch {
		case b.Status == domain.BookingStatusPending && b.PaymentStatus == domain.PaymentStatusFailed:
			return change, "", nil
		case b.Status == domain.BookingStatusPending && b.PaymentStatus == domain.PaymentStatusPending:
			return change, "booking_payment_failed", nil
		}
	}
	return change, "", fmt.Errorf("%w: %s callback for a %s/%s booking", domain.ErrInvalidTransition, status, b.Status, b.PaymentStatus)
}

// UpdateStatus is the admin transition. Payment status is left as is.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID string, status domain.BookingStatus) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(current.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, status)
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, repository.StatusChange{
		FromStatus:  current.Status,
		FromPayment: current.PaymentStatus,
		ToStatus:    status,
		ToPayment:   current.PaymentStatus,
	})
	if err != nil {
		return nil, err
	}
	s.publishLogged(ctx, "booking_"+string(status), updated)
	return updated, nil
}

// ExpirePendingBookings cancels pending bookings whose payment never arrived.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	expired, err := s.bookings.ExpirePendingBefore(ctx, s.now())
	if err != nil {
		return nil, err
	}
	for i := range expired {
		s.publishLogged(ctx, "booking_expired", &expired[i])
	}
	return expired, nil
}

func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

func (s *BookingService) Get(ctx context.Context, bookingID string) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

func (s *BookingService) clearDraft(ctx context.Context, form *draft.FormState) {
	if err := form.Clear(ctx); err != nil {
		s.log.WithFields(logrus.Fields{"item_id": form.ItemID}).Warnf("clear draft: %v", err)
	}
}

func (s *BookingService) recordActivity(ctx context.Context, b *domain.Booking) {
	if s.activity == nil {
		return
	}
	entry := domain.ActivityLog{
		UserID:     b.UserID,
		Action:     "booking_created",
		EntityType: "booking",
		EntityID:   b.ID,
		Details: map[string]any{
			"booking_type": b.BookingType,
			"item_id":      b.ItemID(),
			"total_amount": b.TotalAmount,
			"currency":     b.Currency,
		},
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.log.WithFields(logrus.Fields{"booking_id": b.ID}).Warnf("record activity: %v", err)
	}
}

func (s *BookingService) publishLogged(ctx context.Context, eventType string, b *domain.Booking) {
	if err := s.publish(ctx, eventType, b); err != nil {
		s.log.WithFields(logrus.Fields{"booking_id": b.ID, "event": eventType}).Warnf("publish event: %v", err)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		UserID:        b.UserID,
		ItemID:        b.ItemID(),
		BookingType:   string(b.BookingType),
		Email:         b.ContactEmail,
		Name:          b.ContactName,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Amount:        b.TotalAmount,
		Currency:      b.Currency,
		ExpiresAt:     b.ExpiresAt,
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, b.ID, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, b.ID, event)
	}
	return nil
}

var _ BookingUseCase = (*BookingService)(nil)
