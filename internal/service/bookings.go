package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "curated/internal/errors"
	"curated/internal/external"
	"curated/internal/logger"
	"curated/internal/metrics"
	"curated/internal/models"
)

// PlatformFeePercent is the marketplace's cut of every instant booking
const PlatformFeePercent = 5

const bookingDateLayout = "2006-01-02"

type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]models.Booking, error)
	SetCheckoutSession(ctx context.Context, id, sessionID string) error
	ApplyTransition(ctx context.Context, id string, ev models.BookingEvent, paymentIntentID *string) (*models.Booking, error)
}

type BookingRequestStore interface {
	CreateWithBooking(ctx context.Context, booking *models.Booking, req *models.BookingRequest) (bool, error)
	GetByID(ctx context.Context, id string) (*models.BookingRequest, error)
	Approve(ctx context.Context, id string) (*models.BookingRequest, error)
	ListForCreator(ctx context.Context, creatorID string) ([]models.BookingRequest, error)
}

type ExperienceReader interface {
	GetByID(ctx context.Context, id string) (*models.Experience, error)
}

type CreatorProfileReader interface {
	GetCreatorProfile(ctx context.Context, userID string) (*models.CreatorProfile, error)
}

type BookingService struct {
	bookings    BookingStore
	requests    BookingRequestStore
	experiences ExperienceReader
	creators    CreatorProfileReader
	checkout    CheckoutProvider
	publisher   EventPublisher
	appURL      string
	now         func() time.Time
}

func NewBookingService(bookings BookingStore, requests BookingRequestStore, experiences ExperienceReader,
	creators CreatorProfileReader, checkout CheckoutProvider, publisher EventPublisher, appURL string) *BookingService {
	return &BookingService{
		bookings:    bookings,
		requests:    requests,
		experiences: experiences,
		creators:    creators,
		checkout:    checkout,
		publisher:   publisher,
		appURL:      appURL,
		now:         time.Now,
	}
}

// CreateCheckout creates a pending booking and either a Stripe Checkout
// session (instant) or a booking request awaiting the creator (request).
func (s *BookingService) CreateCheckout(ctx context.Context, authUserID string, req *models.CreateCheckoutSessionRequest) (*models.CreateCheckoutSessionResponse, error) {
	if req.UserID != authUserID {
		return nil, fmt.Errorf("booking for another user: %w", apperrors.ErrForbidden)
	}

	bookingDate, err := time.Parse(bookingDateLayout, req.Date)
	if err != nil {
		return nil, apperrors.Validation("date must be in YYYY-MM-DD format")
	}
	if req.Quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}

	exp, err := s.experiences.GetByID(ctx, req.ExperienceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get experience: %w", err)
	}
	if exp == nil || exp.Status != models.ExperienceStatusApproved {
		return nil, apperrors.NotFound("Experience not found")
	}
	if exp.CreatorID != req.CreatorID {
		return nil, apperrors.Validation("creator does not match experience")
	}
	if req.Quantity > exp.MaxParticipants {
		return nil, apperrors.Validation(fmt.Sprintf("quantity exceeds the maximum of %d participants", exp.MaxParticipants))
	}

	account, err := s.payoutAccount(ctx, exp.CreatorID)
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues(exp.BookingType, "no_account").Inc()
		return nil, err
	}

	booking := &models.Booking{
		ExperienceID:     exp.ID,
		UserID:           req.UserID,
		ParticipantCount: req.Quantity,
		BookingDate:      bookingDate,
		TotalAmount:      exp.Price.Times(req.Quantity),
		Status:           models.BookingStatusPending,
		PaymentStatus:    models.PaymentStatusPending,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		booking.IdempotencyKey = &key
	}

	if exp.BookingType == models.BookingTypeRequest {
		return s.createRequest(ctx, exp, booking)
	}
	return s.createInstant(ctx, exp, booking, account)
}

func (s *BookingService) payoutAccount(ctx context.Context, creatorID string) (string, error) {
	profile, err := s.creators.GetCreatorProfile(ctx, creatorID)
	if err != nil {
		return "", fmt.Errorf("failed to get creator profile: %w", err)
	}
	if profile == nil || profile.StripeAccountID == nil || *profile.StripeAccountID == "" {
		return "", apperrors.ErrPaymentAccountMissing
	}
	return *profile.StripeAccountID, nil
}

func (s *BookingService) createRequest(ctx context.Context, exp *models.Experience, booking *models.Booking) (*models.CreateCheckoutSessionResponse, error) {
	request := &models.BookingRequest{
		ExperienceID: exp.ID,
		UserID:       booking.UserID,
		CreatorID:    exp.CreatorID,
	}

	requested := *booking
	created, err := s.requests.CreateWithBooking(ctx, booking, request)
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues(models.BookingTypeRequest, "error").Inc()
		return nil, fmt.Errorf("failed to create booking request: %w", err)
	}
	if !created {
		if err := sameBooking(&requested, booking); err != nil {
			return nil, err
		}
	} else {
		metrics.CheckoutSessions.WithLabelValues(models.BookingTypeRequest, "requested").Inc()
		publish(ctx, s.publisher, models.EventBookingRequested, s.lifecycleEvent(booking, exp.CreatorID, request.ID, ""))
	}

	return &models.CreateCheckoutSessionResponse{
		BookingID: booking.ID,
		RequestID: request.ID,
		Status:    request.Status,
	}, nil
}

func (s *BookingService) createInstant(ctx context.Context, exp *models.Experience, booking *models.Booking, account string) (*models.CreateCheckoutSessionResponse, error) {
	requested := *booking
	created, err := s.bookings.Create(ctx, booking)
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues(models.BookingTypeInstant, "error").Inc()
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	if !created {
		if err := sameBooking(&requested, booking); err != nil {
			return nil, err
		}
		if booking.State() != models.StatePending {
			return nil, fmt.Errorf("booking %s is %s: %w", booking.ID, booking.State(), apperrors.ErrInvalidTransition)
		}
	}

	// Replay of an idempotency key that already has a session
	if !created && booking.StripeCheckoutSessionID != nil {
		metrics.CheckoutSessions.WithLabelValues(models.BookingTypeInstant, "replayed").Inc()
		return &models.CreateCheckoutSessionResponse{
			SessionID: *booking.StripeCheckoutSessionID,
			BookingID: booking.ID,
		}, nil
	}

	session, err := s.openSession(ctx, exp, booking, account)
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues(models.BookingTypeInstant, "error").Inc()
		return nil, err
	}

	publish(ctx, s.publisher, models.EventBookingCreated, s.lifecycleEvent(booking, exp.CreatorID, "", session.URL))
	metrics.CheckoutSessions.WithLabelValues(models.BookingTypeInstant, "created").Inc()

	return &models.CreateCheckoutSessionResponse{
		SessionID: session.ID,
		URL:       session.URL,
		BookingID: booking.ID,
	}, nil
}

// sameBooking rejects reuse of an idempotency key for a different booking
func sameBooking(requested, stored *models.Booking) error {
	if requested.ExperienceID != stored.ExperienceID ||
		requested.ParticipantCount != stored.ParticipantCount ||
		requested.BookingDate.Format(bookingDateLayout) != stored.BookingDate.Format(bookingDateLayout) {
		return fmt.Errorf("idempotency key already used for booking %s with different details: %w",
			stored.ID, apperrors.ErrConflict)
	}
	return nil
}

// openSession creates the Checkout session for an existing pending booking
// and stores its id. The amount comes from the stored booking, never from the
// current price. The Stripe idempotency key is derived from the booking,
// so retrying the same booking never opens a second session.
func (s *BookingService) openSession(ctx context.Context, exp *models.Experience, booking *models.Booking, account string) (*external.CheckoutSession, error) {
	gross := booking.TotalAmount

	session, err := s.checkout.CreateCheckoutSession(ctx, external.CheckoutSessionInput{
		BookingID:          booking.ID,
		ExperienceID:       exp.ID,
		UserID:             booking.UserID,
		Title:              exp.Title,
		Description:        exp.Description,
		UnitAmount:         gross.Cents() / int64(booking.ParticipantCount),
		Quantity:           int64(booking.ParticipantCount),
		ApplicationFee:     gross.Percent(PlatformFeePercent).Cents(),
		DestinationAccount: account,
		SuccessURL:         fmt.Sprintf("%s/bookings?success=true&session_id={CHECKOUT_SESSION_ID}", s.appURL),
		CancelURL:          fmt.Sprintf("%s/experiences/%s/book?canceled=true", s.appURL, exp.ID),
		IdempotencyKey:     "checkout:" + booking.ID,
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to create checkout session",
			"error", err, "booking_id", booking.ID, "experience_id", exp.ID)
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if err := s.bookings.SetCheckoutSession(ctx, booking.ID, session.ID); err != nil {
		return nil, fmt.Errorf("failed to store checkout session: %w", err)
	}
	booking.StripeCheckoutSessionID = &session.ID
	return session, nil
}

func (s *BookingService) List(ctx context.Context, userID string) (models.ListBookingsResponse, error) {
	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	return bookings, nil
}

// Cancel cancels the caller's own booking while it is still pending
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil || booking.UserID != userID {
		return nil, apperrors.NotFound("booking not found")
	}

	updated, err := s.bookings.ApplyTransition(ctx, bookingID, models.EventUserCancelled, nil)
	if err != nil {
		return nil, err
	}
	s.expireSession(ctx, updated)

	publish(ctx, s.publisher, models.EventBookingCancelled, s.lifecycleEvent(updated, "", "", ""))
	return updated, nil
}

func (s *BookingService) ListRequests(ctx context.Context, creatorID string) ([]models.BookingRequest, error) {
	reqs, err := s.requests.ListForCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking requests: %w", err)
	}
	return reqs, nil
}

// ApproveRequest accepts a request-to-join booking and opens its Checkout
// session. The booking stays pending until the payment webhook arrives.
func (s *BookingService) ApproveRequest(ctx context.Context, creatorID, requestID string) (*models.CreateCheckoutSessionResponse, error) {
	req, err := s.ownedRequest(ctx, creatorID, requestID)
	if err != nil {
		return nil, err
	}

	if req.Status != models.RequestStatusPending {
		return nil, fmt.Errorf("booking request %s is %s: %w", requestID, req.Status, apperrors.ErrConflict)
	}

	booking, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}
	if booking.State() != models.StatePending {
		return nil, fmt.Errorf("booking %s is %s: %w", booking.ID, booking.State(), apperrors.ErrInvalidTransition)
	}
	exp, err := s.experiences.GetByID(ctx, req.ExperienceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get experience: %w", err)
	}
	if exp == nil {
		return nil, apperrors.NotFound("Experience not found")
	}
	account, err := s.payoutAccount(ctx, exp.CreatorID)
	if err != nil {
		return nil, err
	}

	// условие на состояние брони повторяется в UPDATE: отмена могла успеть раньше
	if _, err := s.requests.Approve(ctx, requestID); err != nil {
		return nil, err
	}

	session, err := s.openSession(ctx, exp, booking, account)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, models.EventBookingRequestApproved,
		s.lifecycleEvent(booking, exp.CreatorID, requestID, session.URL))

	return &models.CreateCheckoutSessionResponse{
		SessionID: session.ID,
		URL:       session.URL,
		BookingID: booking.ID,
		RequestID: requestID,
		Status:    models.RequestStatusApproved,
	}, nil
}

// DeclineRequest rejects a request and cancels its booking. The request row
// is declined by the same transition.
func (s *BookingService) DeclineRequest(ctx context.Context, creatorID, requestID string) (*models.Booking, error) {
	req, err := s.ownedRequest(ctx, creatorID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, fmt.Errorf("booking request %s is %s: %w", requestID, req.Status, apperrors.ErrConflict)
	}

	booking, err := s.bookings.ApplyTransition(ctx, req.BookingID, models.EventCreatorDeclined, nil)
	if err != nil {
		if IsInvalidTransition(err) {
			return nil, fmt.Errorf("booking request %s is no longer pending: %w", requestID, apperrors.ErrConflict)
		}
		return nil, err
	}
	s.expireSession(ctx, booking)

	publish(ctx, s.publisher, models.EventBookingCancelled, s.lifecycleEvent(booking, creatorID, requestID, ""))
	return booking, nil
}

// expireSession closes the Checkout session of a cancelled booking. A payment
// that still slips through is caught by the webhook and flagged for refund.
func (s *BookingService) expireSession(ctx context.Context, b *models.Booking) {
	if b.StripeCheckoutSessionID == nil || *b.StripeCheckoutSessionID == "" {
		return
	}
	if err := s.checkout.ExpireCheckoutSession(ctx, *b.StripeCheckoutSessionID); err != nil {
		logger.WithContext(ctx).Error("Failed to expire checkout session of cancelled booking",
			"error", err, "booking_id", b.ID, "session_id", *b.StripeCheckoutSessionID)
	}
}

func (s *BookingService) ownedRequest(ctx context.Context, creatorID, requestID string) (*models.BookingRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking request: %w", err)
	}
	if req == nil {
		return nil, apperrors.NotFound("booking request not found")
	}
	if req.CreatorID != creatorID {
		return nil, fmt.Errorf("request belongs to another creator: %w", apperrors.ErrForbidden)
	}
	return req, nil
}

func (s *BookingService) lifecycleEvent(b *models.Booking, creatorID, requestID, checkoutURL string) models.BookingLifecycleEvent {
	return models.BookingLifecycleEvent{
		BookingID:    b.ID,
		ExperienceID: b.ExperienceID,
		UserID:       b.UserID,
		CreatorID:    creatorID,
		RequestID:    requestID,
		CheckoutURL:  checkoutURL,
		Status:       b.State().String(),
		Timestamp:    s.now(),
	}
}

// IsInvalidTransition reports whether err is a rejected status change
func IsInvalidTransition(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidTransition)
}
