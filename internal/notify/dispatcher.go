package notify

import (
	"context"
	"fmt"

	"curated/internal/logger"
	"curated/internal/metrics"
	"curated/internal/models"
)

// PhoneSender sends SMS and WhatsApp messages (Twilio)
type PhoneSender interface {
	SendSMS(to, body string) (string, error)
	SendWhatsApp(to, body string) (string, error)
}

// EmailSender sends transactional email
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

type Recipient struct {
	UserID      string
	Email       string
	Preferences models.CommunicationPreferences
}

type Message struct {
	Subject string
	Body    string
}

const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Result of delivering to one recipient
type Result struct {
	UserID     string
	Channel    models.Channel
	ExternalID string
	Status     string
	Err        error
}

// Dispatcher sends a message through exactly one channel per recipient:
// the preferred one. There is no fallback to other opted-in channels.
type Dispatcher struct {
	phone PhoneSender
	email EmailSender
}

func NewDispatcher(phone PhoneSender, email EmailSender) *Dispatcher {
	return &Dispatcher{phone: phone, email: email}
}

// Send is the single-channel send primitive
func (d *Dispatcher) Send(ctx context.Context, ch models.Channel, address string, msg Message) (string, error) {
	switch ch {
	case models.ChannelSMS:
		return d.phone.SendSMS(address, msg.Body)
	case models.ChannelWhatsApp:
		return d.phone.SendWhatsApp(address, msg.Body)
	case models.ChannelEmail:
		return d.email.Send(ctx, address, msg.Subject, msg.Body)
	default:
		return "", fmt.Errorf("unsupported channel %q", ch)
	}
}

// Deliver sends to the recipient's preferred channel. A missing opt-in or
// address skips the recipient without error.
func (d *Dispatcher) Deliver(ctx context.Context, r Recipient, msg Message) Result {
	ch := r.Preferences.PreferredChannel
	res := Result{UserID: r.UserID, Channel: ch, Status: StatusSkipped}

	if !ch.Valid() || !r.Preferences.OptedIn(ch) {
		metrics.NotificationsSent.WithLabelValues(string(ch), StatusSkipped).Inc()
		return res
	}
	address := r.Preferences.Address(ch, r.Email)
	if address == "" {
		metrics.NotificationsSent.WithLabelValues(string(ch), StatusSkipped).Inc()
		return res
	}

	externalID, err := d.Send(ctx, ch, address, msg)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to deliver notification",
			"recipient_id", r.UserID, "channel", ch, "error", err)
		metrics.NotificationsSent.WithLabelValues(string(ch), StatusFailed).Inc()
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	metrics.NotificationsSent.WithLabelValues(string(ch), StatusSent).Inc()
	res.Status = StatusSent
	res.ExternalID = externalID
	return res
}

// Fanout delivers to every recipient; one failure does not stop the loop
func (d *Dispatcher) Fanout(ctx context.Context, recipients []Recipient, msg Message) []Result {
	results := make([]Result, 0, len(recipients))
	for _, r := range recipients {
		results = append(results, d.Deliver(ctx, r, msg))
	}
	return results
}
