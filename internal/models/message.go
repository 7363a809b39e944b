package models

import "time"

type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusError     MessageStatus = "error"
)

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

var messageTransitions = map[MessageStatus][]MessageStatus{
	MessageStatusPending:   {MessageStatusSent, MessageStatusError},
	MessageStatusSent:      {MessageStatusDelivered, MessageStatusRead},
	MessageStatusDelivered: {MessageStatusRead},
}

// CanTransition reports whether a message may move from one status to another
func (s MessageStatus) CanTransition(to MessageStatus) bool {
	for _, next := range messageTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Message represents a chat message or an outbound notification record
type Message struct {
	ID             string        `json:"id" db:"id"`
	ConversationID *string       `json:"conversationId" db:"conversation_id"`
	SenderID       string        `json:"senderId" db:"sender_id"`
	RecipientID    *string       `json:"recipientId" db:"recipient_id"`
	Content        string        `json:"content" db:"content"`
	Type           string        `json:"type" db:"type"`
	Status         MessageStatus `json:"status" db:"status"`
	ExternalID     *string       `json:"externalId,omitempty" db:"external_id"`
	Metadata       JSONMap       `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
}
