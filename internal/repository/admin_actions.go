package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"curated/internal/database"
	"curated/internal/models"
)

type AdminActionRepository struct {
	db *database.DB
}

func NewAdminActionRepository(db *database.DB) *AdminActionRepository {
	return &AdminActionRepository{db: db}
}

// insertAdminAction appends to the audit log inside the caller's transaction
func insertAdminAction(ctx context.Context, q sqlx.QueryerContext, action *models.AdminAction) error {
	if action.Details == nil {
		action.Details = models.JSONMap{}
	}
	query := `
		INSERT INTO admin_actions (admin_id, action_type, target_type, target_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := q.QueryRowxContext(ctx, query,
		action.AdminID, action.ActionType, action.TargetType, action.TargetID, action.Details,
	).Scan(&action.ID, &action.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert admin action: %w", err)
	}
	return nil
}

func (r *AdminActionRepository) ListRecent(ctx context.Context, limit int) ([]models.AdminAction, error) {
	actions := []models.AdminAction{}
	query := `
		SELECT id, admin_id, action_type, target_type, target_id, details, created_at
		FROM admin_actions
		ORDER BY created_at DESC
		LIMIT $1`
	if err := r.db.SelectContext(ctx, &actions, query, limit); err != nil {
		return nil, err
	}
	return actions, nil
}

// ReorderSpotlights calls update_spotlight_order with the ids of action's
// details in display order and records action in the same transaction
func (r *AdminActionRepository) ReorderSpotlights(ctx context.Context, ids []string, action *models.AdminAction) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT update_spotlight_order($1::uuid[])`, pq.Array(ids)); err != nil {
			return fmt.Errorf("update_spotlight_order failed: %w", err)
		}
		return insertAdminAction(ctx, tx, action)
	})
}
