package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "curated/internal/errors"
	"curated/internal/models"
)

const (
	testUserID    = "11111111-1111-1111-1111-111111111111"
	testCreatorID = "22222222-2222-2222-2222-222222222222"
	testExpID     = "33333333-3333-3333-3333-333333333333"
	testReqExpID  = "44444444-4444-4444-4444-444444444444"
)

type bookingFixture struct {
	svc       *BookingService
	bookings  *fakeBookings
	requests  *fakeRequests
	users     *fakeUsers
	checkout  *fakeCheckout
	publisher *fakePublisher
}

func newBookingFixture() *bookingFixture {
	bookings := newFakeBookings()
	requests := &fakeRequests{bookings: bookings, rows: map[string]*models.BookingRequest{}}
	bookings.requests = requests
	account := "acct_123"
	users := &fakeUsers{
		users: map[string]*models.User{},
		profiles: map[string]*models.CreatorProfile{
			testCreatorID: {UserID: testCreatorID, DisplayName: "Ana", StripeAccountID: &account},
		},
	}
	exps := &fakeExperiences{rows: map[string]*models.Experience{
		testExpID: {
			ID: testExpID, CreatorID: testCreatorID, Title: "Night kayak", Description: "Paddle under the stars",
			Price: 5000, MaxParticipants: 4, BookingType: models.BookingTypeInstant, Status: models.ExperienceStatusApproved,
		},
		testReqExpID: {
			ID: testReqExpID, CreatorID: testCreatorID, Title: "Private dinner",
			Price: 12000, MaxParticipants: 2, BookingType: models.BookingTypeRequest, Status: models.ExperienceStatusApproved,
		},
	}}
	checkout := &fakeCheckout{}
	publisher := &fakePublisher{}

	return &bookingFixture{
		svc:       NewBookingService(bookings, requests, exps, users, checkout, publisher, "https://curated.test"),
		bookings:  bookings,
		requests:  requests,
		users:     users,
		checkout:  checkout,
		publisher: publisher,
	}
}

func checkoutRequest(expID string, qty int) *models.CreateCheckoutSessionRequest {
	return &models.CreateCheckoutSessionRequest{
		ExperienceID: expID,
		Quantity:     qty,
		Date:         "2026-11-20",
		UserID:       testUserID,
		CreatorID:    testCreatorID,
	}
}

func TestCreateCheckoutInstant(t *testing.T) {
	f := newBookingFixture()

	resp, err := f.svc.CreateCheckout(context.Background(), testUserID, checkoutRequest(testExpID, 3))
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", resp.SessionID)
	assert.Equal(t, "https://checkout.stripe.test/1", resp.URL)
	require.NotEmpty(t, resp.BookingID)

	require.Len(t, f.checkout.calls, 1)
	in := f.checkout.calls[0]
	assert.Equal(t, int64(5000), in.UnitAmount)
	assert.Equal(t, int64(3), in.Quantity)
	assert.Equal(t, int64(750), in.ApplicationFee) // 5% of 150.00
	assert.Equal(t, "acct_123", in.DestinationAccount)
	assert.Equal(t, resp.BookingID, in.BookingID)
	assert.Equal(t, "https://curated.test/bookings?success=true&session_id={CHECKOUT_SESSION_ID}", in.SuccessURL)
	assert.Equal(t, "https://curated.test/experiences/"+testExpID+"/book?canceled=true", in.CancelURL)
	assert.Equal(t, "checkout:"+resp.BookingID, in.IdempotencyKey)

	b, _ := f.bookings.GetByID(context.Background(), resp.BookingID)
	require.NotNil(t, b)
	assert.Equal(t, models.StatePending, b.State())
	assert.Equal(t, models.Money(15000), b.TotalAmount)
	require.NotNil(t, b.StripeCheckoutSessionID)
	assert.Equal(t, "cs_test_1", *b.StripeCheckoutSessionID)

	assert.Equal(t, []string{models.EventBookingCreated}, f.publisher.subjects())
}

func TestCreateCheckoutFeeRounding(t *testing.T) {
	f := newBookingFixture()
	f.svc.experiences.(*fakeExperiences).rows[testExpID].Price = 1999

	_, err := f.svc.CreateCheckout(context.Background(), testUserID, checkoutRequest(testExpID, 1))
	require.NoError(t, err)

	// 5% of 19.99 = 0.9995 -> 1.00
	assert.Equal(t, int64(100), f.checkout.calls[0].ApplicationFee)
}

func TestCreateCheckoutMissingPaymentAccount(t *testing.T) {
	f := newBookingFixture()
	delete(f.users.profiles, testCreatorID)

	_, err := f.svc.CreateCheckout(context.Background(), testUserID, checkoutRequest(testExpID, 1))
	require.ErrorIs(t, err, apperrors.ErrPaymentAccountMissing)
	assert.Equal(t, "Creator payment account not found", err.Error())

	assert.Empty(t, f.bookings.rows)
	assert.Empty(t, f.checkout.calls)
	assert.Empty(t, f.publisher.subjects())
}

func TestCreateCheckoutIdempotentReplay(t *testing.T) {
	f := newBookingFixture()
	req := checkoutRequest(testExpID, 2)
	req.IdempotencyKey = "client-key-1"

	first, err := f.svc.CreateCheckout(context.Background(), testUserID, req)
	require.NoError(t, err)
	second, err := f.svc.CreateCheckout(context.Background(), testUserID, req)
	require.NoError(t, err)

	assert.Equal(t, first.BookingID, second.BookingID)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Len(t, f.bookings.rows, 1)
	assert.Len(t, f.checkout.calls, 1)
	assert.Equal(t, []string{models.EventBookingCreated}, f.publisher.subjects())
}

func TestCreateCheckoutRetryAfterProviderFailure(t *testing.T) {
	f := newBookingFixture()
	req := checkoutRequest(testExpID, 1)
	req.IdempotencyKey = "client-key-2"

	f.checkout.err = errProvider
	_, err := f.svc.CreateCheckout(context.Background(), testUserID, req)
	require.Error(t, err)
	require.Len(t, f.bookings.rows, 1)

	f.checkout.err = nil
	resp, err := f.svc.CreateCheckout(context.Background(), testUserID, req)
	require.NoError(t, err)

	assert.Len(t, f.bookings.rows, 1)
	require.Len(t, f.checkout.calls, 2)
	assert.Equal(t, f.checkout.calls[0].IdempotencyKey, f.checkout.calls[1].IdempotencyKey)
	assert.Equal(t, "cs_test_2", resp.SessionID)
}

func TestCreateCheckoutValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CreateCheckoutSessionRequest)
		auth   string
		want   error
	}{
		{"over capacity", func(r *models.CreateCheckoutSessionRequest) { r.Quantity = 5 }, testUserID, apperrors.ErrValidation},
		{"zero quantity", func(r *models.CreateCheckoutSessionRequest) { r.Quantity = 0 }, testUserID, apperrors.ErrValidation},
		{"bad date", func(r *models.CreateCheckoutSessionRequest) { r.Date = "20/11/2026" }, testUserID, apperrors.ErrValidation},
		{"wrong creator", func(r *models.CreateCheckoutSessionRequest) { r.CreatorID = testUserID }, testUserID, apperrors.ErrValidation},
		{"unknown experience", func(r *models.CreateCheckoutSessionRequest) { r.ExperienceID = testUserID }, testUserID, apperrors.ErrNotFound},
		{"other user", func(r *models.CreateCheckoutSessionRequest) {}, testCreatorID, apperrors.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture()
			req := checkoutRequest(testExpID, 1)
			tt.mutate(req)

			_, err := f.svc.CreateCheckout(context.Background(), tt.auth, req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.bookings.rows)
			assert.Empty(t, f.checkout.calls)
		})
	}
}

func TestCreateCheckoutUnapprovedExperience(t *testing.T) {
	f := newBookingFixture()
	f.svc.experiences.(*fakeExperiences).rows[testExpID].Status = models.ExperienceStatusPending

	_, err := f.svc.CreateCheckout(context.Background(), testUserID, checkoutRequest(testExpID, 1))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreateCheckoutRequestPath(t *testing.T) {
	f := newBookingFixture()

	resp, err := f.svc.CreateCheckout(context.Background(), testUserID, checkoutRequest(testReqExpID, 2))
	require.NoError(t, err)

	assert.Empty(t, resp.SessionID)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, models.RequestStatusPending, resp.Status)
	assert.Empty(t, f.checkout.calls)

	b, _ := f.bookings.GetByID(context.Background(), resp.BookingID)
	require.NotNil(t, b)
	assert.Equal(t, models.StatePending, b.State())
	assert.Equal(t, []string{models.EventBookingRequested}, f.publisher.subjects())
}

func TestApproveRequestCreatesSession(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	resp, err := f.svc.CreateCheckout(ctx, testUserID, checkoutRequest(testReqExpID, 2))
	require.NoError(t, err)

	_, err = f.svc.ApproveRequest(ctx, testUserID, resp.RequestID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	approved, err := f.svc.ApproveRequest(ctx, testCreatorID, resp.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", approved.SessionID)
	assert.Equal(t, models.RequestStatusApproved, approved.Status)
	require.Len(t, f.checkout.calls, 1)
	assert.Equal(t, int64(1200), f.checkout.calls[0].ApplicationFee)

	b, _ := f.bookings.GetByID(ctx, resp.BookingID)
	assert.Equal(t, models.StatePending, b.State())

	_, err = f.svc.ApproveRequest(ctx, testCreatorID, resp.RequestID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, []string{models.EventBookingRequested, models.EventBookingRequestApproved}, f.publisher.subjects())
}

func TestDeclineRequestCancelsBooking(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	resp, err := f.svc.CreateCheckout(ctx, testUserID, checkoutRequest(testReqExpID, 1))
	require.NoError(t, err)

	b, err := f.svc.DeclineRequest(ctx, testCreatorID, resp.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelledPending, b.State())
	assert.Empty(t, f.checkout.calls)
}

func TestCancelBooking(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	pending := f.bookings.put(models.Booking{UserID: testUserID, ExperienceID: testExpID,
		Status: models.BookingStatusPending, PaymentStatus: models.PaymentStatusPending})
	paid := f.bookings.put(models.Booking{UserID: testUserID, ExperienceID: testExpID,
		Status: models.BookingStatusConfirmed, PaymentStatus: models.PaymentStatusPaid})

	_, err := f.svc.Cancel(ctx, testCreatorID, pending.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	b, err := f.svc.Cancel(ctx, testUserID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelledPending, b.State())

	_, err = f.svc.Cancel(ctx, testUserID, paid.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.True(t, IsInvalidTransition(err))
}

func TestApproveAfterCancelIsRejected(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	resp, err := f.svc.CreateCheckout(ctx, testUserID, checkoutRequest(testReqExpID, 1))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, testUserID, resp.BookingID)
	require.NoError(t, err)
	req, _ := f.requests.GetByID(ctx, resp.RequestID)
	assert.Equal(t, models.RequestStatusDeclined, req.Status)

	_, err = f.svc.ApproveRequest(ctx, testCreatorID, resp.RequestID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, f.checkout.calls)

	b, _ := f.bookings.GetByID(ctx, resp.BookingID)
	assert.Equal(t, models.StateCancelledPending, b.State())
}

func TestApproveRequestForNonPendingBooking(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	resp, err := f.svc.CreateCheckout(ctx, testUserID, checkoutRequest(testReqExpID, 1))
	require.NoError(t, err)

	// request row left pending while the booking already moved on
	f.bookings.rows[resp.BookingID].Status = models.BookingStatusCancelled

	_, err = f.svc.ApproveRequest(ctx, testCreatorID, resp.RequestID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Empty(t, f.checkout.calls)
	assert.Equal(t, []string{models.EventBookingRequested}, f.publisher.subjects())
}

func TestDeclineAfterApproveIsRejected(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	resp, err := f.svc.CreateCheckout(ctx, testUserID, checkoutRequest(testReqExpID, 1))
	require.NoError(t, err)
	_, err = f.svc.ApproveRequest(ctx, testCreatorID, resp.RequestID)
	require.NoError(t, err)

	_, err = f.svc.DeclineRequest(ctx, testCreatorID, resp.RequestID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	b, _ := f.bookings.GetByID(ctx, resp.BookingID)
	assert.Equal(t, models.StatePending, b.State())
	assert.Empty(t, f.checkout.expired)
}

func TestDeclineRequestMarksRequestDeclined(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	resp, err := f.svc.CreateCheckout(ctx, testUserID, checkoutRequest(testReqExpID, 1))
	require.NoError(t, err)

	_, err = f.svc.DeclineRequest(ctx, testCreatorID, resp.RequestID)
	require.NoError(t, err)

	req, _ := f.requests.GetByID(ctx, resp.RequestID)
	assert.Equal(t, models.RequestStatusDeclined, req.Status)

	_, err = f.svc.DeclineRequest(ctx, testCreatorID, resp.RequestID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCreateCheckoutReplayWithDifferentDetails(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CreateCheckoutSessionRequest)
	}{
		{"quantity", func(r *models.CreateCheckoutSessionRequest) { r.Quantity = 3 }},
		{"date", func(r *models.CreateCheckoutSessionRequest) { r.Date = "2026-12-01" }},
		{"experience", func(r *models.CreateCheckoutSessionRequest) { r.ExperienceID = testReqExpID }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture()
			ctx := context.Background()
			req := checkoutRequest(testExpID, 2)
			req.IdempotencyKey = "client-key-3"
			first, err := f.svc.CreateCheckout(ctx, testUserID, req)
			require.NoError(t, err)

			changed := *req
			tt.mutate(&changed)
			_, err = f.svc.CreateCheckout(ctx, testUserID, &changed)
			assert.ErrorIs(t, err, apperrors.ErrConflict)

			assert.Len(t, f.bookings.rows, 1)
			assert.Len(t, f.checkout.calls, 1)
			b, _ := f.bookings.GetByID(ctx, first.BookingID)
			assert.Equal(t, 2, b.ParticipantCount)
			assert.Equal(t, models.Money(10000), b.TotalAmount)
		})
	}
}

func TestCreateCheckoutReplayOfCancelledBooking(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	req := checkoutRequest(testExpID, 1)
	req.IdempotencyKey = "client-key-4"

	f.checkout.err = errProvider
	_, err := f.svc.CreateCheckout(ctx, testUserID, req)
	require.Error(t, err)
	var bookingID string
	for id := range f.bookings.rows {
		bookingID = id
	}
	_, err = f.svc.Cancel(ctx, testUserID, bookingID)
	require.NoError(t, err)

	f.checkout.err = nil
	_, err = f.svc.CreateCheckout(ctx, testUserID, req)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Len(t, f.checkout.calls, 1)
}

func TestCreateCheckoutRetryChargesStoredTotal(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	req := checkoutRequest(testExpID, 2)
	req.IdempotencyKey = "client-key-5"

	f.checkout.err = errProvider
	_, err := f.svc.CreateCheckout(ctx, testUserID, req)
	require.Error(t, err)

	f.checkout.err = nil
	f.svc.experiences.(*fakeExperiences).rows[testExpID].Price = 9000
	_, err = f.svc.CreateCheckout(ctx, testUserID, req)
	require.NoError(t, err)

	require.Len(t, f.checkout.calls, 2)
	retry := f.checkout.calls[1]
	assert.Equal(t, int64(5000), retry.UnitAmount)
	assert.Equal(t, int64(2), retry.Quantity)
	assert.Equal(t, int64(500), retry.ApplicationFee)
}

func TestCancelExpiresCheckoutSession(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	resp, err := f.svc.CreateCheckout(ctx, testUserID, checkoutRequest(testExpID, 1))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, testUserID, resp.BookingID)
	require.NoError(t, err)
	assert.Equal(t, []string{resp.SessionID}, f.checkout.expired)
}

func TestCancelSucceedsWhenExpireFails(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	resp, err := f.svc.CreateCheckout(ctx, testUserID, checkoutRequest(testExpID, 1))
	require.NoError(t, err)
	f.checkout.expireErr = errProvider

	b, err := f.svc.Cancel(ctx, testUserID, resp.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelledPending, b.State())
	assert.Len(t, f.checkout.expired, 1)
}
