package consumers

import (
	"context"
	"log/slog"

	"github.com/nats-io/stan.go"

	"curated/internal/config"
	"curated/internal/database"
	"curated/internal/external"
	"curated/internal/messaging"
	"curated/internal/models"
	"curated/internal/notify"
	"curated/internal/repository"
	"curated/internal/service"
)

const queueGroup = "notifications"

// Subjects the notification consumers subscribe to
var Subjects = []string{
	models.EventBookingConfirmed,
	models.EventBookingRefunded,
	models.EventBookingCancelled,
	models.EventBookingRequested,
	models.EventBookingRequestApproved,
}

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		db.Close()
		return nil, err
	}

	repos := repository.NewRepositories(db)
	dispatcher := notify.NewDispatcher(external.NewTwilioClient(cfg.Twilio), external.NewEmailClient(cfg.Email))
	notifier := service.NewMessagingService(repos.Users, repos.Messages, repos.Bookings, repos.Experiences, dispatcher)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		handlers: NewHandlers(notifier, repos.Experiences),
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	for _, subject := range Subjects {
		sub, err := cs.nats.SubscribeQueue(subject, queueGroup, cs.handlers.Handler(subject))
		if err != nil {
			return err
		}
		cs.subs = append(cs.subs, sub)
	}

	slog.Info("All consumers started successfully", "subjects", len(cs.subs))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			slog.Error("Error closing subscription", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
