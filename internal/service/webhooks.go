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
	"curated/internal/repository"
)

// WebhookLedger runs fn at most once per provider event id
type WebhookLedger interface {
	ApplyOnce(ctx context.Context, eventID, eventType string,
		fn func(ctx context.Context, bookings repository.BookingTransitions) error) (bool, error)
}

type WebhookService struct {
	verifier  WebhookVerifier
	ledger    WebhookLedger
	publisher EventPublisher
	now       func() time.Time
}

func NewWebhookService(verifier WebhookVerifier, ledger WebhookLedger, publisher EventPublisher) *WebhookService {
	return &WebhookService{verifier: verifier, ledger: ledger, publisher: publisher, now: time.Now}
}

// HandleStripe verifies and applies one Stripe event. A returned error means
// the provider should redeliver; everything else is acknowledged.
func (s *WebhookService) HandleStripe(ctx context.Context, payload []byte, signature string) error {
	log := logger.WithContext(ctx)

	event, err := s.verifier.ParseWebhook(payload, signature)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		log.Warn("Rejected webhook", "error", err)
		return err
	}
	log = log.With("event_id", event.ID, "event_type", event.Type)

	var (
		subject string
		changed *models.Booking
	)

	applied, err := s.ledger.ApplyOnce(ctx, event.ID, event.Type,
		func(ctx context.Context, bookings repository.BookingTransitions) error {
			var err error
			switch event.Type {
			case external.StripeEventCheckoutCompleted:
				subject = models.EventBookingConfirmed
				changed, err = s.confirm(ctx, bookings, event)
			case external.StripeEventChargeRefunded:
				subject = models.EventBookingRefunded
				changed, err = s.refund(ctx, bookings, event)
			default:
				// recorded in the ledger and acknowledged
				return nil
			}

			if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidTransition) {
				// повтор доставки этого не исправит
				log.Warn("Webhook event not applied", "error", err)
				changed = nil
				return nil
			}
			return err
		})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(event.Type, "error").Inc()
		log.Error("Failed to apply webhook event", "error", err)
		return fmt.Errorf("failed to apply webhook event: %w", err)
	}

	if !applied {
		metrics.WebhookEvents.WithLabelValues(event.Type, "duplicate").Inc()
		log.Info("Duplicate webhook event acknowledged")
		return nil
	}
	metrics.WebhookEvents.WithLabelValues(event.Type, "applied").Inc()

	if changed != nil {
		publish(ctx, s.publisher, subject, models.BookingLifecycleEvent{
			BookingID:    changed.ID,
			ExperienceID: changed.ExperienceID,
			UserID:       changed.UserID,
			Status:       changed.State().String(),
			Timestamp:    s.now(),
		})
	}
	return nil
}

// confirm returns the booking only when its state actually changed
func (s *WebhookService) confirm(ctx context.Context, bookings repository.BookingTransitions, event *external.WebhookEvent) (*models.Booking, error) {
	if event.BookingID == "" {
		return nil, apperrors.NotFound("checkout session has no booking_id")
	}
	before, err := bookings.GetByID(ctx, event.BookingID)
	if err != nil {
		return nil, err
	}
	if before == nil {
		return nil, apperrors.NotFound("booking not found")
	}

	var pi *string
	if event.PaymentIntentID != "" {
		pi = &event.PaymentIntentID
	}
	after, err := bookings.ApplyTransition(ctx, event.BookingID, models.EventCheckoutCompleted, pi)
	if errors.Is(err, apperrors.ErrInvalidTransition) && pi != nil {
		// деньги списаны, а бронь уже отменена: сохраняем intent для возврата
		if serr := bookings.SetPaymentIntent(ctx, event.BookingID, *pi); serr != nil {
			return nil, fmt.Errorf("failed to store payment intent: %w", serr)
		}
		logger.WithContext(ctx).Error("Payment received for a booking that cannot be confirmed, refund required",
			"booking_id", event.BookingID, "payment_intent_id", *pi, "state", before.State().String())
		metrics.WebhookEvents.WithLabelValues(event.Type, "refund_required").Inc()
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if before.State() == after.State() {
		return nil, nil
	}
	return after, nil
}

func (s *WebhookService) refund(ctx context.Context, bookings repository.BookingTransitions, event *external.WebhookEvent) (*models.Booking, error) {
	if event.PaymentIntentID == "" {
		return nil, apperrors.NotFound("charge has no payment_intent")
	}
	before, err := bookings.GetByPaymentIntent(ctx, event.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if before == nil {
		return nil, apperrors.NotFound("booking not found for payment intent")
	}

	after, err := bookings.ApplyTransition(ctx, before.ID, models.EventRefunded, nil)
	if err != nil {
		return nil, err
	}
	if before.State() == after.State() {
		return nil, nil
	}
	return after, nil
}
