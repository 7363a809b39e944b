package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"curated/internal/database"
	"curated/internal/models"
)

// BookingTransitions is the part of the booking store available to a
// webhook handler inside the ledger transaction.
type BookingTransitions interface {
	ApplyTransition(ctx context.Context, id string, ev models.BookingEvent, paymentIntentID *string) (*models.Booking, error)
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Booking, error)
	SetPaymentIntent(ctx context.Context, id, paymentIntentID string) error
}

// WebhookEventRepository - журнал обработанных событий провайдера
type WebhookEventRepository struct {
	db *database.DB
}

func NewWebhookEventRepository(db *database.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// ApplyOnce records eventID and runs fn in the same transaction. When the
// event was already recorded fn is not called and applied is false. An error
// from fn rolls back the ledger row too, so a redelivery is processed again.
func (r *WebhookEventRepository) ApplyOnce(ctx context.Context, eventID, eventType string,
	fn func(ctx context.Context, bookings BookingTransitions) error) (bool, error) {

	applied := false
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO webhook_events (event_id, event_type) VALUES ($1, $2)
			ON CONFLICT (event_id) DO NOTHING`, eventID, eventType)
		if err != nil {
			return fmt.Errorf("failed to record webhook event: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		applied = true
		return fn(ctx, NewBookingRepository(tx))
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
