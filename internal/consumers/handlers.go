package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/stan.go"

	apperrors "curated/internal/errors"
	"curated/internal/models"
	"curated/internal/notify"
)

const handleTimeout = 20 * time.Second

// UserNotifier доставляет уведомление пользователю на его основной канал
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, msg notify.Message) (notify.Result, error)
}

type ExperienceReader interface {
	GetByID(ctx context.Context, id string) (*models.Experience, error)
}

type Handlers struct {
	notifier    UserNotifier
	experiences ExperienceReader
}

func NewHandlers(notifier UserNotifier, experiences ExperienceReader) *Handlers {
	return &Handlers{notifier: notifier, experiences: experiences}
}

// Handler returns the stan callback for subject. The message is acked when
// handled or when it can never be handled; otherwise it is redelivered
// after AckWait.
func (h *Handlers) Handler(subject string) stan.MsgHandler {
	return func(m *stan.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()

		if err := h.Handle(ctx, subject, m.Data); err != nil {
			slog.Error("Failed to handle event, will be redelivered",
				"subject", subject, "sequence", m.Sequence, "error", err)
			return
		}
		if err := m.Ack(); err != nil {
			slog.Error("Failed to ack event", "subject", subject, "sequence", m.Sequence, "error", err)
		}
	}
}

// Handle turns one booking lifecycle event into a notification
func (h *Handlers) Handle(ctx context.Context, subject string, data []byte) error {
	var event models.BookingLifecycleEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// повтор не поможет
		slog.Error("Dropping malformed event", "subject", subject, "error", err)
		return nil
	}

	title := h.experienceTitle(ctx, event.ExperienceID)
	recipient, msg, ok := compose(subject, event, title)
	if !ok {
		slog.Debug("No notification for event", "subject", subject, "booking_id", event.BookingID)
		return nil
	}

	res, err := h.notifier.NotifyUser(ctx, recipient, msg)
	if errors.Is(err, apperrors.ErrNotFound) {
		slog.Warn("Notification recipient not found", "subject", subject, "user_id", recipient)
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("Processed booking event",
		"subject", subject, "booking_id", event.BookingID, "recipient_id", recipient,
		"channel", res.Channel, "status", res.Status)
	return nil
}

func (h *Handlers) experienceTitle(ctx context.Context, id string) string {
	if id == "" || h.experiences == nil {
		return "your experience"
	}
	exp, err := h.experiences.GetByID(ctx, id)
	if err != nil || exp == nil {
		return "your experience"
	}
	return exp.Title
}

// compose выбирает получателя и текст для события
func compose(subject string, e models.BookingLifecycleEvent, title string) (string, notify.Message, bool) {
	switch subject {
	case models.EventBookingConfirmed:
		return e.UserID, notify.Message{
			Subject: "Booking confirmed",
			Body:    fmt.Sprintf("Your booking for %s is confirmed. See you there!", title),
		}, true
	case models.EventBookingRefunded:
		return e.UserID, notify.Message{
			Subject: "Booking refunded",
			Body:    fmt.Sprintf("Your payment for %s has been refunded.", title),
		}, true
	case models.EventBookingCancelled:
		return e.UserID, notify.Message{
			Subject: "Booking cancelled",
			Body:    fmt.Sprintf("Your booking for %s was cancelled.", title),
		}, true
	case models.EventBookingRequested:
		if e.CreatorID == "" {
			return "", notify.Message{}, false
		}
		return e.CreatorID, notify.Message{
			Subject: "New booking request",
			Body:    fmt.Sprintf("You have a new booking request for %s.", title),
		}, true
	case models.EventBookingRequestApproved:
		return e.UserID, notify.Message{
			Subject: "Booking request approved",
			Body:    fmt.Sprintf("Your request for %s was approved. Complete your payment: %s", title, e.CheckoutURL),
		}, true
	}
	return "", notify.Message{}, false
}
