package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"curated/internal/database"
	apperrors "curated/internal/errors"
	"curated/internal/models"
)

const bookingRequestColumns = `id, booking_id, experience_id, user_id, creator_id, status, created_at, updated_at`

type BookingRequestRepository struct {
	db *database.DB
}

func NewBookingRequestRepository(db *database.DB) *BookingRequestRepository {
	return &BookingRequestRepository{db: db}
}

// CreateWithBooking inserts the pending booking and its request row in one
// transaction. On an idempotent replay both are loaded instead and created is false.
func (r *BookingRequestRepository) CreateWithBooking(ctx context.Context, booking *models.Booking, req *models.BookingRequest) (bool, error) {
	created := false
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		created, err = NewBookingRepository(tx).Create(ctx, booking)
		if err != nil {
			return err
		}

		if !created {
			existing := &models.BookingRequest{}
			err := sqlx.GetContext(ctx, tx, existing,
				`SELECT `+bookingRequestColumns+` FROM booking_requests WHERE booking_id = $1`, booking.ID)
			if err != nil {
				return fmt.Errorf("failed to load booking request: %w", err)
			}
			*req = *existing
			return nil
		}

		req.BookingID = booking.ID
		query := `
			INSERT INTO booking_requests (booking_id, experience_id, user_id, creator_id, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + bookingRequestColumns
		if err := sqlx.GetContext(ctx, tx, req, query,
			req.BookingID, req.ExperienceID, req.UserID, req.CreatorID, models.RequestStatusPending,
		); err != nil {
			return fmt.Errorf("failed to insert booking request: %w", err)
		}
		return nil
	})
	return created, err
}

func (r *BookingRequestRepository) GetByID(ctx context.Context, id string) (*models.BookingRequest, error) {
	req := &models.BookingRequest{}
	err := r.db.GetContext(ctx, req, `SELECT `+bookingRequestColumns+` FROM booking_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Approve moves a pending request to approved while its booking is still
// pending/pending. A cancelled booking or a request that is no longer pending
// yields ErrConflict.
func (r *BookingRequestRepository) Approve(ctx context.Context, id string) (*models.BookingRequest, error) {
	req := &models.BookingRequest{}
	query := `
		UPDATE booking_requests r SET status = $2, updated_at = NOW()
		FROM bookings b
		WHERE r.id = $1 AND r.status = $3
		  AND b.id = r.booking_id AND b.status = $4 AND b.payment_status = $5
		RETURNING r.id, r.booking_id, r.experience_id, r.user_id, r.creator_id, r.status, r.created_at, r.updated_at`
	err := r.db.GetContext(ctx, req, query, id, models.RequestStatusApproved, models.RequestStatusPending,
		models.BookingStatusPending, models.PaymentStatusPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking request %s cannot be approved: %w", id, apperrors.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *BookingRequestRepository) ListForCreator(ctx context.Context, creatorID string) ([]models.BookingRequest, error) {
	reqs := []models.BookingRequest{}
	query := `SELECT ` + bookingRequestColumns + ` FROM booking_requests
		WHERE creator_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &reqs, query, creatorID); err != nil {
		return nil, err
	}
	return reqs, nil
}
