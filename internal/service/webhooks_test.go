package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "curated/internal/errors"
	"curated/internal/external"
	"curated/internal/models"
)

type webhookFixture struct {
	svc       *WebhookService
	bookings  *fakeBookings
	ledger    *fakeLedger
	verifier  *fakeVerifier
	publisher *fakePublisher
}

func newWebhookFixture() *webhookFixture {
	bookings := newFakeBookings()
	ledger := &fakeLedger{bookings: bookings, seen: map[string]bool{}}
	verifier := &fakeVerifier{}
	publisher := &fakePublisher{}
	return &webhookFixture{
		svc:       NewWebhookService(verifier, ledger, publisher),
		bookings:  bookings,
		ledger:    ledger,
		verifier:  verifier,
		publisher: publisher,
	}
}

func (f *webhookFixture) pendingBooking() *models.Booking {
	return f.bookings.put(models.Booking{
		UserID:        testUserID,
		ExperienceID:  testExpID,
		TotalAmount:   10000,
		Status:        models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	})
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture()
	b := f.pendingBooking()
	f.verifier.event = &external.WebhookEvent{ID: "evt_1", Type: external.StripeEventCheckoutCompleted, BookingID: b.ID}

	err := f.svc.HandleStripe(context.Background(), []byte(`{}`), "forged")
	require.ErrorIs(t, err, apperrors.ErrInvalidSignature)

	assert.Zero(t, f.ledger.calls)
	got, _ := f.bookings.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.StatePending, got.State())
	assert.Empty(t, f.publisher.subjects())
}

func TestWebhookCheckoutCompleted(t *testing.T) {
	f := newWebhookFixture()
	b := f.pendingBooking()
	f.verifier.event = &external.WebhookEvent{
		ID: "evt_1", Type: external.StripeEventCheckoutCompleted, BookingID: b.ID, PaymentIntentID: "pi_1",
	}

	require.NoError(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))

	got, _ := f.bookings.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.StateConfirmedPaid, got.State())
	require.NotNil(t, got.StripePaymentIntentID)
	assert.Equal(t, "pi_1", *got.StripePaymentIntentID)
	assert.Equal(t, models.Money(10000), got.TotalAmount)
	assert.Equal(t, []string{models.EventBookingConfirmed}, f.publisher.subjects())
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	f := newWebhookFixture()
	b := f.pendingBooking()
	f.verifier.event = &external.WebhookEvent{
		ID: "evt_1", Type: external.StripeEventCheckoutCompleted, BookingID: b.ID, PaymentIntentID: "pi_1",
	}

	require.NoError(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))
	require.NoError(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))

	got, _ := f.bookings.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.StateConfirmedPaid, got.State())
	assert.Equal(t, []string{models.EventBookingConfirmed}, f.publisher.subjects())

	// same completion delivered under a new event id is a no-op transition
	f.verifier.event.ID = "evt_2"
	require.NoError(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))
	assert.Len(t, f.publisher.subjects(), 1)
}

func TestWebhookRefund(t *testing.T) {
	f := newWebhookFixture()
	pi := "pi_9"
	b := f.bookings.put(models.Booking{
		UserID: testUserID, ExperienceID: testExpID, TotalAmount: 10000,
		Status: models.BookingStatusConfirmed, PaymentStatus: models.PaymentStatusPaid,
		StripePaymentIntentID: &pi,
	})
	f.verifier.event = &external.WebhookEvent{ID: "evt_r", Type: external.StripeEventChargeRefunded, PaymentIntentID: pi}

	require.NoError(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))

	got, _ := f.bookings.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.StateCancelledRefund, got.State())
	assert.Equal(t, models.Money(10000), got.TotalAmount)
	assert.Equal(t, []string{models.EventBookingRefunded}, f.publisher.subjects())
}

func TestWebhookUnknownBookingAcknowledged(t *testing.T) {
	f := newWebhookFixture()
	f.verifier.event = &external.WebhookEvent{ID: "evt_x", Type: external.StripeEventChargeRefunded, PaymentIntentID: "pi_missing"}

	require.NoError(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))
	assert.True(t, f.ledger.seen["evt_x"])
	assert.Empty(t, f.publisher.subjects())
}

func TestWebhookInvalidTransitionAcknowledged(t *testing.T) {
	f := newWebhookFixture()
	b := f.bookings.put(models.Booking{
		UserID: testUserID, ExperienceID: testExpID,
		Status: models.BookingStatusCancelled, PaymentStatus: models.PaymentStatusPending,
	})
	f.verifier.event = &external.WebhookEvent{ID: "evt_c", Type: external.StripeEventCheckoutCompleted, BookingID: b.ID}

	require.NoError(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))

	got, _ := f.bookings.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.StateCancelledPending, got.State())
	assert.Empty(t, f.publisher.subjects())
}

func TestWebhookPaymentOnCancelledBookingKeepsIntent(t *testing.T) {
	f := newWebhookFixture()
	b := f.bookings.put(models.Booking{
		UserID: testUserID, ExperienceID: testExpID, TotalAmount: 10000,
		Status: models.BookingStatusCancelled, PaymentStatus: models.PaymentStatusPending,
	})
	f.verifier.event = &external.WebhookEvent{
		ID: "evt_late", Type: external.StripeEventCheckoutCompleted, BookingID: b.ID, PaymentIntentID: "pi_late",
	}

	require.NoError(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))

	got, _ := f.bookings.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.StateCancelledPending, got.State())
	require.NotNil(t, got.StripePaymentIntentID)
	assert.Equal(t, "pi_late", *got.StripePaymentIntentID)
	assert.True(t, f.ledger.seen["evt_late"])
	assert.Empty(t, f.publisher.subjects())

	// a later refund of that charge finds the booking by its intent
	f.verifier.event = &external.WebhookEvent{ID: "evt_refund", Type: external.StripeEventChargeRefunded, PaymentIntentID: "pi_late"}
	require.NoError(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))
	got, _ = f.bookings.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.StateCancelledRefund, got.State())
	assert.Equal(t, []string{models.EventBookingRefunded}, f.publisher.subjects())
}

func TestWebhookStorageErrorIsRedelivered(t *testing.T) {
	f := newWebhookFixture()
	b := f.pendingBooking()
	f.bookings.failNext = errors.New("connection reset")
	f.verifier.event = &external.WebhookEvent{ID: "evt_1", Type: external.StripeEventCheckoutCompleted, BookingID: b.ID}

	require.Error(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))
	assert.False(t, f.ledger.seen["evt_1"])

	require.NoError(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))
	got, _ := f.bookings.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.StateConfirmedPaid, got.State())
}

func TestWebhookOtherEventsAcknowledged(t *testing.T) {
	f := newWebhookFixture()
	f.verifier.event = &external.WebhookEvent{ID: "evt_o", Type: "payment_intent.created"}

	require.NoError(t, f.svc.HandleStripe(context.Background(), []byte(`{}`), "valid"))
	assert.True(t, f.ledger.seen["evt_o"])
	assert.Empty(t, f.publisher.subjects())
}
