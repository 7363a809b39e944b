package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"curated/internal/database"
	"curated/internal/models"
)

const messageColumns = `id, conversation_id, sender_id, recipient_id, content, type, status,
	external_id, metadata, created_at`

type MessageRepository struct {
	db *database.DB
}

func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts the message; for chat messages it also bumps the
// conversation's last_message_at in the same transaction.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.Metadata == nil {
		msg.Metadata = models.JSONMap{}
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO messages (conversation_id, sender_id, recipient_id, content, type, status, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING ` + messageColumns
		if err := sqlx.GetContext(ctx, tx, msg, query,
			msg.ConversationID, msg.SenderID, msg.RecipientID, msg.Content, msg.Type, msg.Status, msg.Metadata,
		); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		if msg.ConversationID != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE conversations SET last_message_at = $2 WHERE id = $1`,
				*msg.ConversationID, msg.CreatedAt); err != nil {
				return fmt.Errorf("failed to touch conversation: %w", err)
			}
		}
		return nil
	})
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	msg := &models.Message{}
	err := r.db.GetContext(ctx, msg, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	msgs := []models.Message{}
	query := `SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + ` FROM messages
			WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2
		) m ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &msgs, query, conversationID, limit); err != nil {
		return nil, err
	}
	return msgs, nil
}

// markSentQuery merges delivery fields into metadata, other keys are kept
const markSentQuery = `
		UPDATE messages SET external_id = $2, status = $3,
		    metadata = COALESCE(metadata, '{}'::jsonb) || $4::jsonb
		WHERE id = $1`

// MarkSent records the provider id of a delivered message
func (r *MessageRepository) MarkSent(ctx context.Context, id, externalID string, channel models.Channel) error {
	meta := models.JSONMap{"channel": channel, "delivery_status": string(models.MessageStatusSent)}
	_, err := r.db.ExecContext(ctx, markSentQuery, id, externalID, models.MessageStatusSent, meta)
	return err
}

// MarkRead runs mark_messages_as_read and returns the ids it changed
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, readerID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT * FROM mark_messages_as_read($1, $2)`, conversationID, readerID)
	return ids, err
}
