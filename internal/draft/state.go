// Package draft holds the in-progress booking and payment form for one item.
//
// Updates only touch memory. Persist is the single point where the state is
// written to a Store.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/validation"
)

var ErrNotFound = errors.New("draft not found")

// Store is a key-value store for serialized drafts.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}

// Key is the storage key of the draft for an item.
func Key(itemID string) string {
	return "booking-draft-" + itemID
}

// Blob is the persisted shape of a draft.
type Blob struct {
	BookingForm domain.BookingDraft   `json:"bookingForm"`
	PaymentForm domain.PaymentDetails `json:"paymentForm"`
	CurrentStep domain.WizardStep     `json:"currentStep"`
	Timestamp   int64                 `json:"timestamp"`
}

// Prefill carries the optional query parameters of the entry route.
type Prefill struct {
	CheckIn  string
	CheckOut string
	Guests   int
}

func (p Prefill) empty() bool {
	return p.CheckIn == "" && p.CheckOut == "" && p.Guests == 0
}

type FormState struct {
	ItemID  string
	Booking domain.BookingDraft
	Payment domain.PaymentDetails
	Step    domain.WizardStep

	flow  Flow
	store Store
	now   func() time.Time
}

type Option func(*FormState)

func WithClock(now func() time.Time) Option {
	return func(f *FormState) { f.now = now }
}

func WithFlow(flow Flow) Option {
	return func(f *FormState) { f.flow = flow }
}

// New returns an empty form for itemID.
func New(itemID string, store Store, opts ...Option) *FormState {
	f := &FormState{
		ItemID:  itemID,
		Booking: domain.NewBookingDraft(),
		Step:    domain.StepDetails,
		flow:    HostedCheckoutFlow,
		store:   store,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Restore builds the form for itemID. A stored draft replaces the initial
// state wholesale unless the prefill carries any value, in which case the
// prefill wins and the stored draft is ignored. The bool reports whether a
// stored draft was used.
func Restore(ctx context.Context, store Store, itemID string, prefill Prefill, opts ...Option) (*FormState, bool, error) {
	f := New(itemID, store, opts...)

	if !prefill.empty() {
		f.Booking.CheckIn = prefill.CheckIn
		f.Booking.CheckOut = prefill.CheckOut
		if prefill.Guests > 0 {
			f.Booking.Guests = prefill.Guests
		}
		return f, false, nil
	}

	raw, err := store.Load(ctx, Key(itemID))
	if errors.Is(err, ErrNotFound) {
		return f, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load draft: %w", err)
	}

	var blob Blob
	if err := json.Unmarshal(raw, &blob); err != nil {
		// An unreadable draft is discarded.
		return f, false, nil
	}
	f.Booking = blob.BookingForm
	f.Payment = blob.PaymentForm
	f.Step = f.flow.clamp(blob.CurrentStep)
	return f, true, nil
}

func (f *FormState) SetBookingField(field, value string) error {
	next, err := f.Booking.With(field, value)
	if err != nil {
		return err
	}
	f.Booking = next
	return nil
}

func (f *FormState) SetPaymentField(field, value string) error {
	next, err := f.Payment.With(field, value)
	if err != nil {
		return err
	}
	f.Payment = next
	return nil
}

func (f *FormState) Blob() Blob {
	return Blob{
		BookingForm: f.Booking,
		PaymentForm: f.Payment,
		CurrentStep: f.Step,
		Timestamp:   f.now().UnixMilli(),
	}
}

// Persist writes the current state to the store.
func (f *FormState) Persist(ctx context.Context) error {
	data, err := json.Marshal(f.Blob())
	if err != nil {
		return err
	}
	if err := f.store.Save(ctx, Key(f.ItemID), data); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Clear removes the stored draft. Called after a successful submission.
func (f *FormState) Clear(ctx context.Context) error {
	return f.store.Delete(ctx, Key(f.ItemID))
}

// Validate runs the checks of the current step.
func (f *FormState) Validate() validation.Errors {
	switch f.Step {
	case domain.StepDetails:
		return validation.ValidateBooking(f.Booking, f.now())
	case domain.StepPayment:
		return validation.ValidatePayment(f.Payment)
	}
	return nil
}

// Advance validates the current step and moves forward on success.
// The step is unchanged when validation fails.
func (f *FormState) Advance() validation.Errors {
	if errs := f.Validate(); len(errs) > 0 {
		return errs
	}
	f.Step = f.flow.next(f.Step)
	return nil
}

// Back moves one step back without validating.
func (f *FormState) Back() {
	f.Step = f.flow.prev(f.Step)
}

func (f *FormState) Flow() Flow {
	return f.flow
}

// Ready reports whether every step of the flow validates, which is what
// submission requires.
func (f *FormState) Ready() validation.Errors {
	errs := validation.ValidateBooking(f.Booking, f.now())
	if f.flow.CollectsCard() {
		errs = append(errs, validation.ValidatePayment(f.Payment)...)
	}
	return errs
}
