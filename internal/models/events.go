package models

import "time"

// NATS Event Types
const (
	EventBookingCreated         = "booking.created"
	EventBookingRequested       = "booking.requested"
	EventBookingRequestApproved = "booking.request_approved"
	EventBookingConfirmed       = "booking.confirmed"
	EventBookingRefunded        = "booking.refunded"
	EventBookingCancelled       = "booking.cancelled"
)

// BookingLifecycleEvent is published for every booking state change
type BookingLifecycleEvent struct {
	BookingID    string    `json:"booking_id"`
	ExperienceID string    `json:"experience_id"`
	UserID       string    `json:"user_id"`
	CreatorID    string    `json:"creator_id,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	CheckoutURL  string    `json:"checkout_url,omitempty"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}
