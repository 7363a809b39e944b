package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"curated/internal/database"
	"curated/internal/models"
)

const conversationColumns = `id, creator_id, user_id, experience_id, last_message_at, created_at`

type ConversationRepository struct {
	db *database.DB
}

func NewConversationRepository(db *database.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetOrCreate returns the single conversation for (creator, user, experience).
// The unique index treats a NULL experience as the nil uuid, and the no-op
// update makes RETURNING yield the existing row on conflict.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, creatorID, userID string, experienceID *string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	query := `
		INSERT INTO conversations (creator_id, user_id, experience_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (creator_id, user_id, COALESCE(experience_id, '00000000-0000-0000-0000-000000000000'::uuid))
		DO UPDATE SET creator_id = EXCLUDED.creator_id
		RETURNING ` + conversationColumns

	if err := r.db.GetContext(ctx, conv, query, creatorID, userID, experienceID); err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return conv, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := r.db.GetContext(ctx, conv, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	convs := []models.Conversation{}
	query := `SELECT ` + conversationColumns + ` FROM conversations
		WHERE creator_id = $1 OR user_id = $1
		ORDER BY COALESCE(last_message_at, created_at) DESC`
	if err := r.db.SelectContext(ctx, &convs, query, userID); err != nil {
		return nil, err
	}
	return convs, nil
}

// UnreadCount uses get_unread_message_count
func (r *ConversationRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT get_unread_message_count($1)`, userID)
	return n, err
}
