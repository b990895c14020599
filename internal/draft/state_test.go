package draft

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestKey(t *testing.T) {
	assert.Equal(t, "booking-draft-h-42", Key("h-42"))
}

func TestPersistRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	f := New("h-1", store, WithClock(clock), WithFlow(CardFormFlow))
	require.NoError(t, f.SetBookingField("checkIn", "2025-06-01"))
	require.NoError(t, f.SetBookingField("checkOut", "2025-06-03"))
	require.NoError(t, f.SetBookingField("guests", "3"))
	require.NoError(t, f.SetBookingField("specialRequest", "ocean view"))
	require.NoError(t, f.SetPaymentField("cardNumber", "4111111111111111"))
	require.NoError(t, f.SetPaymentField("expiry", "1229"))
	require.NoError(t, f.SetPaymentField("cardholderName", "Budi"))
	require.Nil(t, f.Advance())
	require.NoError(t, f.Persist(ctx))

	restored, used, err := Restore(ctx, store, "h-1", Prefill{}, WithClock(clock), WithFlow(CardFormFlow))
	require.NoError(t, err)

	assert.True(t, used)
	assert.Equal(t, f.Booking, restored.Booking)
	assert.Equal(t, f.Payment, restored.Payment)
	assert.Equal(t, domain.StepPayment, restored.Step)
}

func TestPersist_BlobShape(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	f := New("d-7", store, WithClock(clock))
	require.NoError(t, f.Persist(ctx))

	raw, err := store.Load(ctx, "booking-draft-d-7")
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Contains(t, generic, "bookingForm")
	assert.Contains(t, generic, "paymentForm")
	assert.Equal(t, float64(1), generic["currentStep"])
	assert.Equal(t, float64(fixedNow.UnixMilli()), generic["timestamp"])
}

func TestRestore_PrefillWinsOverStoredDraft(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	stored := New("h-1", store, WithClock(clock))
	require.NoError(t, stored.SetBookingField("checkIn", "2025-07-01"))
	require.NoError(t, stored.SetBookingField("specialRequest", "quiet room"))
	require.NoError(t, stored.Persist(ctx))

	f, used, err := Restore(ctx, store, "h-1", Prefill{CheckIn: "2025-08-01", Guests: 2}, WithClock(clock))
	require.NoError(t, err)

	assert.False(t, used)
	assert.Equal(t, "2025-08-01", f.Booking.CheckIn)
	assert.Equal(t, 2, f.Booking.Guests)
	assert.Empty(t, f.Booking.SpecialRequest, "no field-level merge with the stored draft")
}

func TestRestore_NoDraft(t *testing.T) {
	f, used, err := Restore(context.Background(), NewMemoryStore(), "h-1", Prefill{})
	require.NoError(t, err)

	assert.False(t, used)
	assert.Equal(t, domain.NewBookingDraft(), f.Booking)
	assert.Equal(t, domain.StepDetails, f.Step)
}

func TestRestore_CorruptDraftIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, Key("h-1"), []byte("{not json")))

	f, used, err := Restore(ctx, store, "h-1", Prefill{})
	require.NoError(t, err)
	assert.False(t, used)
	assert.Equal(t, domain.StepDetails, f.Step)
}

type failingStore struct{ MemoryStore }

func (*failingStore) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestRestore_StoreError(t *testing.T) {
	_, _, err := Restore(context.Background(), &failingStore{}, "h-1", Prefill{})
	assert.Error(t, err)
}

func TestRestore_StepOutsideFlowIsClamped(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	card := New("h-1", store, WithClock(clock), WithFlow(CardFormFlow))
	card.Step = domain.StepPayment
	require.NoError(t, card.Persist(ctx))

	hosted, _, err := Restore(ctx, store, "h-1", Prefill{}, WithClock(clock))
	require.NoError(t, err)
	assert.Equal(t, domain.StepDetails, hosted.Step)
}

func TestAdvance_ValidationBlocksTransition(t *testing.T) {
	f := New("h-1", NewMemoryStore(), WithClock(clock))

	errs := f.Advance()
	require.NotEmpty(t, errs)
	assert.Equal(t, "checkIn", errs[0].Field)
	assert.Equal(t, domain.StepDetails, f.Step)
}

func TestAdvance_HostedFlowSkipsPayment(t *testing.T) {
	f := New("h-1", NewMemoryStore(), WithClock(clock))
	require.NoError(t, f.SetBookingField("checkIn", "2025-06-01"))
	require.NoError(t, f.SetBookingField("checkOut", "2025-06-02"))

	require.Empty(t, f.Advance())
	assert.Equal(t, domain.StepConfirmation, f.Step)

	require.Empty(t, f.Advance())
	assert.Equal(t, domain.StepConfirmation, f.Step, "last step stays put")

	f.Back()
	assert.Equal(t, domain.StepDetails, f.Step)
	f.Back()
	assert.Equal(t, domain.StepDetails, f.Step)
}

func TestAdvance_CardFlowValidatesPayment(t *testing.T) {
	f := New("h-1", NewMemoryStore(), WithClock(clock), WithFlow(CardFormFlow))
	require.NoError(t, f.SetBookingField("checkIn", "2025-06-01"))
	require.NoError(t, f.SetBookingField("checkOut", "2025-06-02"))
	require.Empty(t, f.Advance())
	require.Equal(t, domain.StepPayment, f.Step)

	errs := f.Advance()
	require.NotEmpty(t, errs)
	assert.Equal(t, "cardNumber", errs[0].Field)
	assert.Equal(t, domain.StepPayment, f.Step)

	assert.NotEmpty(t, f.Ready())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	f := New("h-1", store, WithClock(clock))
	require.NoError(t, f.Persist(ctx))

	require.NoError(t, f.Clear(ctx))

	_, err := store.Load(ctx, Key("h-1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetField_UnknownFieldLeavesStateAlone(t *testing.T) {
	f := New("h-1", NewMemoryStore())
	before := f.Booking

	assert.Error(t, f.SetBookingField("stars", "5"))
	assert.Equal(t, before, f.Booking)
	assert.Error(t, f.SetPaymentField("pin", "1234"))
}
