package service

import (
	"context"

	"curated/internal/external"
	"curated/internal/logger"
	"curated/internal/models"
	"curated/internal/notify"
	"curated/internal/repository"
)

// EventPublisher publishes booking lifecycle events (NATS Streaming)
type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

// CheckoutProvider creates hosted payment pages (Stripe Checkout)
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, in external.CheckoutSessionInput) (*external.CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, sessionID string) error
}

// WebhookVerifier authenticates and decodes provider webhooks
type WebhookVerifier interface {
	ParseWebhook(payload []byte, signature string) (*external.WebhookEvent, error)
}

// Notifier delivers notifications over SMS, WhatsApp and email
type Notifier interface {
	Send(ctx context.Context, ch models.Channel, address string, msg notify.Message) (string, error)
	Deliver(ctx context.Context, r notify.Recipient, msg notify.Message) notify.Result
	Fanout(ctx context.Context, recipients []notify.Recipient, msg notify.Message) []notify.Result
}

// RealtimePublisher pushes conversation events to websocket subscribers
type RealtimePublisher interface {
	Publish(conversationID, eventType string, payload interface{})
}

type Services struct {
	Bookings      *BookingService
	Webhooks      *WebhookService
	Messaging     *MessagingService
	Conversations *ConversationService
	Experiences   *ExperienceService
	Creators      *CreatorService
	Users         *UserService
	Admin         *AdminService
}

// Deps - внешние клиенты, созданные в main и переданные явно
type Deps struct {
	AppURL    string
	Checkout  CheckoutProvider
	Verifier  WebhookVerifier
	Notifier  Notifier
	Publisher EventPublisher
	Realtime  RealtimePublisher
	ListCache ListCache
	Search    SearchIndex
	Media     MediaUploader
}

func NewServices(repos *repository.Repositories, deps Deps) *Services {
	bookingService := NewBookingService(repos.Bookings, repos.BookingRequests, repos.Experiences, repos.Users,
		deps.Checkout, deps.Publisher, deps.AppURL)
	webhookService := NewWebhookService(deps.Verifier, repos.WebhookEvents, deps.Publisher)
	messagingService := NewMessagingService(repos.Users, repos.Messages, repos.Bookings, repos.Experiences, deps.Notifier)
	conversationService := NewConversationService(repos.Conversations, repos.Messages, repos.Users, deps.Realtime)
	experienceService := NewExperienceService(repos.Experiences, deps.ListCache, deps.Search, deps.Media)
	creatorService := NewCreatorService(repos.Users)
	userService := NewUserService(repos.Users)
	adminService := NewAdminService(repos.Experiences, repos.Users, repos.AdminActions, experienceService, creatorService)

	return &Services{
		Bookings:      bookingService,
		Webhooks:      webhookService,
		Messaging:     messagingService,
		Conversations: conversationService,
		Experiences:   experienceService,
		Creators:      creatorService,
		Users:         userService,
		Admin:         adminService,
	}
}

func publish(ctx context.Context, p EventPublisher, subject string, data interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(subject, data); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish event", "error", err, "event_type", subject)
	}
}
