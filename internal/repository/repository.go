package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"curated/internal/database"
	apperrors "curated/internal/errors"
)

// rpcError wraps an RPC failure. no_data_found (P0002), raised by the RPCs
// for a missing target, becomes ErrNotFound.
func rpcError(rpc string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "P0002" {
		return apperrors.NotFound(pqErr.Message)
	}
	return fmt.Errorf("%s failed: %w", rpc, err)
}

type Repositories struct {
	Bookings        *BookingRepository
	BookingRequests *BookingRequestRepository
	Experiences     *ExperienceRepository
	Users           *UserRepository
	Conversations   *ConversationRepository
	Messages        *MessageRepository
	AdminActions    *AdminActionRepository
	WebhookEvents   *WebhookEventRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Bookings:        NewBookingRepository(db),
		BookingRequests: NewBookingRequestRepository(db),
		Experiences:     NewExperienceRepository(db),
		Users:           NewUserRepository(db),
		Conversations:   NewConversationRepository(db),
		Messages:        NewMessageRepository(db),
		AdminActions:    NewAdminActionRepository(db),
		WebhookEvents:   NewWebhookEventRepository(db),
	}
}
