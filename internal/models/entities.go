package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	RoleUser    = "user"
	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

// User represents a user in the system
type User struct {
	ID          string                   `json:"id" db:"id"`
	Email       string                   `json:"email" db:"email"`
	FullName    *string                  `json:"fullName" db:"full_name"`
	Role        string                   `json:"role" db:"role"`
	Preferences CommunicationPreferences `json:"communicationPreferences" db:"communication_preferences"`
	CreatedAt   time.Time                `json:"createdAt" db:"created_at"`
}

// CreatorProfile holds the creator-facing profile and payout account
type CreatorProfile struct {
	UserID          string    `json:"userId" db:"user_id"`
	DisplayName     string    `json:"displayName" db:"display_name"`
	Bio             *string   `json:"bio" db:"bio"`
	AvatarURL       *string   `json:"avatarUrl" db:"avatar_url"`
	StripeAccountID *string   `json:"-" db:"stripe_account_id"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// Creator is a creator user joined with its profile, as listed publicly
type Creator struct {
	ID          string  `json:"id" db:"id"`
	Email       string  `json:"email" db:"email"`
	FullName    *string `json:"fullName" db:"full_name"`
	DisplayName string  `json:"displayName" db:"display_name"`
	Bio         *string `json:"bio" db:"bio"`
	AvatarURL   *string `json:"avatarUrl" db:"avatar_url"`
}

const (
	BookingTypeInstant = "instant"
	BookingTypeRequest = "request"

	ExperienceStatusPending  = "pending"
	ExperienceStatusApproved = "approved"
	ExperienceStatusRejected = "rejected"
)

// Experience represents a bookable experience listed by a creator
type Experience struct {
	ID               string            `json:"id" db:"id"`
	CreatorID        string            `json:"creatorId" db:"creator_id"`
	Title            string            `json:"title" db:"title"`
	Description      string            `json:"description" db:"description"`
	Price            Money             `json:"price" db:"price"`
	Duration         int               `json:"duration" db:"duration"`
	MaxParticipants  int               `json:"maxParticipants" db:"max_participants"`
	BookingType      string            `json:"bookingType" db:"booking_type"`
	ApprovalRequired bool              `json:"approvalRequired" db:"approval_required"`
	Location         *string           `json:"location" db:"location"`
	Category         *string           `json:"category" db:"category"`
	Status           string            `json:"status" db:"status"`
	CreatedAt        time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time         `json:"updatedAt" db:"updated_at"`
	Media            []ExperienceMedia `json:"media" db:"-"` // Not from DB, filled separately
}

// ExperienceMedia - элемент медиа галереи
type ExperienceMedia struct {
	ID           string `json:"id" db:"id"`
	ExperienceID string `json:"experienceId" db:"experience_id"`
	URL          string `json:"url" db:"url"`
	Type         string `json:"type" db:"type"`
	OrderIndex   int    `json:"orderIndex" db:"order_index"`
}

// Booking represents a booking in the system
type Booking struct {
	ID                      string        `json:"id" db:"id"`
	ExperienceID            string        `json:"experienceId" db:"experience_id"`
	UserID                  string        `json:"userId" db:"user_id"`
	ParticipantCount        int           `json:"participantCount" db:"participant_count"`
	BookingDate             time.Time     `json:"bookingDate" db:"booking_date"`
	TotalAmount             Money         `json:"totalAmount" db:"total_amount"`
	Status                  BookingStatus `json:"status" db:"status"`
	PaymentStatus           PaymentStatus `json:"paymentStatus" db:"payment_status"`
	StripePaymentIntentID   *string       `json:"stripePaymentIntentId" db:"stripe_payment_intent_id"`
	StripeCheckoutSessionID *string       `json:"stripeCheckoutSessionId" db:"stripe_checkout_session_id"`
	IdempotencyKey          *string       `json:"-" db:"idempotency_key"`
	CreatedAt               time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt               time.Time     `json:"updatedAt" db:"updated_at"`
}

// State returns the (status, payment_status) pair of the booking
func (b *Booking) State() BookingState {
	return BookingState{Status: b.Status, PaymentStatus: b.PaymentStatus}
}

const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusDeclined = "declined"
)

// BookingRequest - заявка на участие, ожидающая решения создателя
type BookingRequest struct {
	ID           string    `json:"id" db:"id"`
	BookingID    string    `json:"bookingId" db:"booking_id"`
	ExperienceID string    `json:"experienceId" db:"experience_id"`
	UserID       string    `json:"userId" db:"user_id"`
	CreatorID    string    `json:"creatorId" db:"creator_id"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Conversation is unique per (creator, user, experience)
type Conversation struct {
	ID            string     `json:"id" db:"id"`
	CreatorID     string     `json:"creatorId" db:"creator_id"`
	UserID        string     `json:"userId" db:"user_id"`
	ExperienceID  *string    `json:"experienceId" db:"experience_id"`
	LastMessageAt *time.Time `json:"lastMessageAt" db:"last_message_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// HasParticipant reports whether userID is the creator or the user
func (c *Conversation) HasParticipant(userID string) bool {
	return c.CreatorID == userID || c.UserID == userID
}

// AdminAction - запись журнала аудита
type AdminAction struct {
	ID         string    `json:"id" db:"id"`
	AdminID    *string   `json:"adminId" db:"admin_id"` // NULL после удаления администратора
	ActionType string    `json:"actionType" db:"action_type"`
	TargetType string    `json:"targetType" db:"target_type"`
	TargetID   string    `json:"targetId" db:"target_id"`
	Details    JSONMap   `json:"details" db:"details"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// JSONMap maps a JSONB column
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}
	return json.Unmarshal(data, m)
}
