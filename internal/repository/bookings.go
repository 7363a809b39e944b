package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "curated/internal/errors"
	"curated/internal/models"
)

const bookingColumns = `id, experience_id, user_id, participant_count, booking_date, total_amount,
	status, payment_status, stripe_payment_intent_id, stripe_checkout_session_id,
	idempotency_key, created_at, updated_at`

// BookingRepository works over *sqlx.DB or *sqlx.Tx
type BookingRepository struct {
	db sqlx.ExtContext
}

func NewBookingRepository(db sqlx.ExtContext) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a pending booking. With an idempotency key already used by
// the same user no row is inserted: booking is filled with the existing row
// and created is false.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) (bool, error) {
	query := `
		INSERT INTO bookings (experience_id, user_id, participant_count, booking_date,
		                      total_amount, status, payment_status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING ` + bookingColumns

	err := sqlx.GetContext(ctx, r.db, booking, query,
		booking.ExperienceID,
		booking.UserID,
		booking.ParticipantCount,
		booking.BookingDate,
		booking.TotalAmount,
		booking.Status,
		booking.PaymentStatus,
		booking.IdempotencyKey,
	)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || booking.IdempotencyKey == nil {
		return false, fmt.Errorf("failed to insert booking: %w", err)
	}

	existing, err := r.GetByIdempotencyKey(ctx, booking.UserID, *booking.IdempotencyKey)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, fmt.Errorf("idempotent booking vanished for key %s", *booking.IdempotencyKey)
	}
	*booking = *existing
	return false, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.Booking, error) {
	return r.getOne(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 AND idempotency_key = $2`,
		userID, key)
}

func (r *BookingRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Booking, error) {
	return r.getOne(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE stripe_payment_intent_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		paymentIntentID)
}

func (r *BookingRepository) getOne(ctx context.Context, query string, args ...any) (*models.Booking, error) {
	booking := &models.Booking{}
	err := sqlx.GetContext(ctx, r.db, booking, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`
	if err := sqlx.SelectContext(ctx, r.db, &bookings, query, userID); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ConfirmedUserIDs returns distinct users holding a confirmed booking of the experience
func (r *BookingRepository) ConfirmedUserIDs(ctx context.Context, experienceID string) ([]string, error) {
	var ids []string
	query := `
		SELECT DISTINCT user_id FROM bookings
		WHERE experience_id = $1 AND status = $2 AND payment_status = $3`
	err := sqlx.SelectContext(ctx, r.db, &ids, query,
		experienceID, models.BookingStatusConfirmed, models.PaymentStatusPaid)
	return ids, err
}

// SetPaymentIntent stores the payment intent of a booking whose payment
// arrived but could not be applied, so a refund can be traced to it
func (r *BookingRepository) SetPaymentIntent(ctx context.Context, id, paymentIntentID string) error {
	query := `UPDATE bookings SET stripe_payment_intent_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, paymentIntentID)
	return err
}

func (r *BookingRepository) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	query := `UPDATE bookings SET stripe_checkout_session_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, sessionID)
	return err
}

// ApplyTransition moves the booking along ev only if its current state is a
// legal source, in a single conditional UPDATE. total_amount is never touched.
// A transition into cancelled declines the pending booking request in the same
// statement; a creator decline additionally requires that request to exist.
// Returns an ErrNotFound error for a missing booking and ErrInvalidTransition
// when the row is in a state the event cannot leave.
func (r *BookingRepository) ApplyTransition(ctx context.Context, id string, ev models.BookingEvent, paymentIntentID *string) (*models.Booking, error) {
	t, err := models.TransitionFor(ev)
	if err != nil {
		return nil, err
	}

	query := `
		WITH moved AS (
			UPDATE bookings
			SET status = $2,
			    payment_status = $3,
			    stripe_payment_intent_id = COALESCE($4, stripe_payment_intent_id),
			    updated_at = NOW()
			WHERE id = $1 AND (status || '/' || payment_status) = ANY($5)
			  AND (NOT $7::boolean OR EXISTS (
			      SELECT 1 FROM booking_requests WHERE booking_id = $1 AND status = $8))
			RETURNING ` + bookingColumns + `
		), declined AS (
			UPDATE booking_requests SET status = $9, updated_at = NOW()
			WHERE booking_id IN (SELECT id FROM moved) AND status = $8 AND $6::boolean
		)
		SELECT ` + bookingColumns + ` FROM moved`

	booking := &models.Booking{}
	err = sqlx.GetContext(ctx, r.db, booking, query,
		id, t.Target.Status, t.Target.PaymentStatus, paymentIntentID, pq.Array(t.SourceKeys()),
		t.Target.Status == models.BookingStatusCancelled,
		ev == models.EventCreatorDeclined,
		models.RequestStatusPending, models.RequestStatusDeclined)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperrors.NotFound("booking not found")
	}
	return nil, fmt.Errorf("booking %s is %s, cannot apply %s: %w",
		id, current.State(), ev, apperrors.ErrInvalidTransition)
}
