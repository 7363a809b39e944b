package service

import (
	"context"
	"fmt"

	apperrors "curated/internal/errors"
	"curated/internal/models"
	"curated/internal/realtime"
)

type ConversationStore interface {
	GetOrCreate(ctx context.Context, creatorID, userID string, experienceID *string) (*models.Conversation, error)
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

type ChatStore interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string) ([]string, error)
}

// MessageStatusEvent is pushed when messages of a conversation change status
type MessageStatusEvent struct {
	MessageIDs []string             `json:"messageIds"`
	Status     models.MessageStatus `json:"status"`
	UserID     string               `json:"userId"`
}

type ConversationService struct {
	conversations ConversationStore
	messages      ChatStore
	users         UserReader
	realtime      RealtimePublisher
}

func NewConversationService(conversations ConversationStore, messages ChatStore, users UserReader, rt RealtimePublisher) *ConversationService {
	return &ConversationService{conversations: conversations, messages: messages, users: users, realtime: rt}
}

// Start returns the conversation between the creator and the user, creating it once
func (s *ConversationService) Start(ctx context.Context, creatorID string, req *models.CreateConversationRequest) (*models.Conversation, error) {
	if req.UserID == creatorID {
		return nil, apperrors.Validation("cannot start a conversation with yourself")
	}
	u, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, apperrors.NotFound("user not found")
	}
	return s.conversations.GetOrCreate(ctx, creatorID, req.UserID, req.ExperienceID)
}

// Get returns the conversation when userID takes part in it
func (s *ConversationService) Get(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, apperrors.NotFound("conversation not found")
	}
	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("not a participant: %w", apperrors.ErrForbidden)
	}
	return conv, nil
}

func (s *ConversationService) List(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.conversations.ListForUser(ctx, userID)
}

func (s *ConversationService) Messages(ctx context.Context, userID, conversationID string, limit int) ([]models.Message, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.messages.ListByConversation(ctx, conversationID, limit)
}

// Post stores a chat message and pushes it to the conversation's subscribers
func (s *ConversationService) Post(ctx context.Context, userID, conversationID string, req *models.PostMessageRequest) (*models.Message, error) {
	conv, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	recipient := conv.UserID
	if userID == conv.UserID {
		recipient = conv.CreatorID
	}
	msgType := req.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	msg := &models.Message{
		ConversationID: &conv.ID,
		SenderID:       userID,
		RecipientID:    &recipient,
		Content:        req.Content,
		Type:           msgType,
		Status:         models.MessageStatusSent,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if s.realtime != nil {
		s.realtime.Publish(conv.ID, realtime.EventMessageCreated, msg)
	}
	return msg, nil
}

// MarkRead marks the other participant's messages read and returns their ids
func (s *ConversationService) MarkRead(ctx context.Context, userID, conversationID string) ([]string, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	ids, err := s.messages.MarkRead(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark messages read: %w", err)
	}
	if len(ids) > 0 && s.realtime != nil {
		s.realtime.Publish(conversationID, realtime.EventMessageStatus, MessageStatusEvent{
			MessageIDs: ids,
			Status:     models.MessageStatusRead,
			UserID:     userID,
		})
	}
	return ids, nil
}

func (s *ConversationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.conversations.UnreadCount(ctx, userID)
}
