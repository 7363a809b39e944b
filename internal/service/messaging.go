package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "curated/internal/errors"
	"curated/internal/logger"
	"curated/internal/models"
	"curated/internal/notify"
)

type UserReader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	MarkSent(ctx context.Context, id, externalID string, channel models.Channel) error
}

type AttendeeLister interface {
	ConfirmedUserIDs(ctx context.Context, experienceID string) ([]string, error)
}

type MessagingService struct {
	users       UserReader
	messages    MessageStore
	attendees   AttendeeLister
	experiences ExperienceReader
	notifier    Notifier
}

func NewMessagingService(users UserReader, messages MessageStore, attendees AttendeeLister,
	experiences ExperienceReader, notifier Notifier) *MessagingService {
	return &MessagingService{
		users:       users,
		messages:    messages,
		attendees:   attendees,
		experiences: experiences,
		notifier:    notifier,
	}
}

// SendMessage delivers an already stored message over one channel and marks
// the row sent. Without an explicit channel the recipient's preferred one is
// used, falling back to SMS.
func (s *MessagingService) SendMessage(ctx context.Context, authUserID string, req *models.SendMessageRequest) error {
	if req.UserID != authUserID {
		return fmt.Errorf("sending as another user: %w", apperrors.ErrForbidden)
	}

	recipient, err := s.users.GetByID(ctx, req.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to get recipient: %w", err)
	}
	if recipient == nil {
		return apperrors.NotFound("Recipient not found")
	}

	msg, err := s.messages.GetByID(ctx, req.MessageID)
	if err != nil {
		return fmt.Errorf("failed to get message: %w", err)
	}
	if msg == nil {
		return apperrors.NotFound("Message not found")
	}
	if msg.SenderID != authUserID {
		return fmt.Errorf("message %s belongs to another sender: %w", msg.ID, apperrors.ErrForbidden)
	}

	ch := req.Channel
	if ch == "" {
		ch = recipient.Preferences.PreferredChannel
	}
	if ch == "" {
		ch = models.ChannelSMS
	}
	if !ch.Valid() {
		return apperrors.Validation(fmt.Sprintf("unsupported channel %q", ch))
	}
	if !recipient.Preferences.OptedIn(ch) {
		return apperrors.Validation(fmt.Sprintf("recipient has not enabled %s", ch))
	}
	address := recipient.Preferences.Address(ch, recipient.Email)
	if address == "" {
		return apperrors.Validation(fmt.Sprintf("recipient has no %s address", ch))
	}

	externalID, err := s.notifier.Send(ctx, ch, address, notify.Message{
		Subject: "New message",
		Body:    req.Content,
	})
	if err != nil {
		return fmt.Errorf("failed to send %s message: %w", ch, err)
	}

	if err := s.messages.MarkSent(ctx, msg.ID, externalID, ch); err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	logger.WithContext(ctx).Info("Message sent",
		"message_id", msg.ID, "recipient_id", recipient.ID, "channel", ch)
	return nil
}

// Announce fans a creator's announcement out to every confirmed attendee of
// the experience, each on their preferred channel.
func (s *MessagingService) Announce(ctx context.Context, creatorID, experienceID string, req *models.AnnouncementRequest) (*models.Broadcast, error) {
	exp, err := s.experiences.GetByID(ctx, experienceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get experience: %w", err)
	}
	if exp == nil {
		return nil, apperrors.NotFound("Experience not found")
	}
	if exp.CreatorID != creatorID {
		return nil, fmt.Errorf("experience belongs to another creator: %w", apperrors.ErrForbidden)
	}

	userIDs, err := s.attendees.ConfirmedUserIDs(ctx, experienceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendees: %w", err)
	}

	recipients := make([]notify.Recipient, 0, len(userIDs))
	for _, id := range userIDs {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			logger.WithContext(ctx).Error("Failed to load attendee", "user_id", id, "error", err)
			continue
		}
		if u == nil {
			continue
		}
		recipients = append(recipients, notify.Recipient{UserID: u.ID, Email: u.Email, Preferences: u.Preferences})
	}

	msgType := req.Type
	if msgType == "" {
		msgType = "announcement"
	}

	results := s.notifier.Fanout(ctx, recipients, notify.Message{Subject: req.Subject, Body: req.Content})

	broadcast := &models.Broadcast{
		ID:           uuid.NewString(),
		ExperienceID: experienceID,
		CreatorID:    creatorID,
		Subject:      req.Subject,
		Content:      req.Content,
		Type:         msgType,
		SentVia:      []models.Channel{},
		Recipients:   make([]models.BroadcastRecipient, 0, len(results)),
		Status:       notify.StatusSent,
	}
	seen := map[models.Channel]bool{}
	for _, r := range results {
		broadcast.Recipients = append(broadcast.Recipients, models.BroadcastRecipient{
			UserID:  r.UserID,
			Channel: r.Channel,
			Status:  r.Status,
		})
		if r.Status == notify.StatusSent && !seen[r.Channel] {
			seen[r.Channel] = true
			broadcast.SentVia = append(broadcast.SentVia, r.Channel)
		}
	}

	record := &models.Message{
		SenderID: creatorID,
		Content:  req.Content,
		Type:     models.MessageTypeSystem,
		Status:   models.MessageStatusSent,
		Metadata: models.JSONMap{
			"broadcast_id":  broadcast.ID,
			"experience_id": experienceID,
			"subject":       req.Subject,
			"type":          msgType,
			"sent_via":      broadcast.SentVia,
			"recipients":    len(broadcast.Recipients),
		},
	}
	if err := s.messages.Create(ctx, record); err != nil {
		// рассылка уже ушла, запись в журнал не должна её отменять
		logger.WithContext(ctx).Error("Failed to store broadcast", "broadcast_id", broadcast.ID, "error", err)
	}

	return broadcast, nil
}

// NotifyUser delivers a system notification to one user (used by the event consumers)
func (s *MessagingService) NotifyUser(ctx context.Context, userID string, msg notify.Message) (notify.Result, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notify.Result{}, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return notify.Result{}, apperrors.NotFound("user not found")
	}
	return s.notifier.Deliver(ctx, notify.Recipient{UserID: u.ID, Email: u.Email, Preferences: u.Preferences}, msg), nil
}
