package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"curated/internal/database"
	apperrors "curated/internal/errors"
	"curated/internal/models"
)

const experienceColumns = `id, creator_id, title, description, price, duration, max_participants,
	booking_type, approval_required, location, category, status, created_at, updated_at`

type ExperienceRepository struct {
	db *database.DB
}

func NewExperienceRepository(db *database.DB) *ExperienceRepository {
	return &ExperienceRepository{db: db}
}

// Create inserts the experience in pending status together with its media
func (r *ExperienceRepository) Create(ctx context.Context, exp *models.Experience) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO experiences (creator_id, title, description, price, duration, max_participants,
			                         booking_type, approval_required, location, category, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at, updated_at`

		err := tx.QueryRowxContext(ctx, query,
			exp.CreatorID,
			exp.Title,
			exp.Description,
			exp.Price,
			exp.Duration,
			exp.MaxParticipants,
			exp.BookingType,
			exp.ApprovalRequired,
			exp.Location,
			exp.Category,
			models.ExperienceStatusPending,
		).Scan(&exp.ID, &exp.CreatedAt, &exp.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert experience: %w", err)
		}
		exp.Status = models.ExperienceStatusPending

		for i := range exp.Media {
			m := &exp.Media[i]
			m.ExperienceID = exp.ID
			err := tx.QueryRowxContext(ctx, `
				INSERT INTO experience_media (experience_id, url, type, order_index)
				VALUES ($1, $2, $3, $4) RETURNING id`,
				m.ExperienceID, m.URL, m.Type, m.OrderIndex,
			).Scan(&m.ID)
			if err != nil {
				return fmt.Errorf("failed to insert experience media: %w", err)
			}
		}
		return nil
	})
}

func (r *ExperienceRepository) GetByID(ctx context.Context, id string) (*models.Experience, error) {
	exp := &models.Experience{}
	err := r.db.GetContext(ctx, exp, `SELECT `+experienceColumns+` FROM experiences WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.attachMedia(ctx, []*models.Experience{exp}); err != nil {
		return nil, err
	}
	return exp, nil
}

// ListApproved returns approved experiences, newest first
func (r *ExperienceRepository) ListApproved(ctx context.Context, page, pageSize int) ([]models.Experience, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	exps := []models.Experience{}
	query := `SELECT ` + experienceColumns + ` FROM experiences
		WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &exps, query,
		models.ExperienceStatusApproved, pageSize, (page-1)*pageSize); err != nil {
		return nil, err
	}

	ptrs := make([]*models.Experience, len(exps))
	for i := range exps {
		ptrs[i] = &exps[i]
	}
	if err := r.attachMedia(ctx, ptrs); err != nil {
		return nil, err
	}
	return exps, nil
}

func (r *ExperienceRepository) attachMedia(ctx context.Context, exps []*models.Experience) error {
	if len(exps) == 0 {
		return nil
	}

	ids := make([]string, len(exps))
	byID := make(map[string]*models.Experience, len(exps))
	for i, e := range exps {
		ids[i] = e.ID
		byID[e.ID] = e
		e.Media = []models.ExperienceMedia{}
	}

	var media []models.ExperienceMedia
	query := `SELECT id, experience_id, url, type, order_index FROM experience_media
		WHERE experience_id = ANY($1) ORDER BY order_index`
	if err := r.db.SelectContext(ctx, &media, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to load experience media: %w", err)
	}

	for _, m := range media {
		if e, ok := byID[m.ExperienceID]; ok {
			e.Media = append(e.Media, m)
		}
	}
	return nil
}

// Moderate sets the status of the experience named by action.TargetID and
// writes the audit row in the same transaction
func (r *ExperienceRepository) Moderate(ctx context.Context, status string, action *models.AdminAction) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE experiences SET status = $2, updated_at = NOW() WHERE id = $1`, action.TargetID, status)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.NotFound("experience not found")
		}
		return insertAdminAction(ctx, tx, action)
	})
}

// Delete hard-deletes through delete_experience_rpc, which also logs the admin action
func (r *ExperienceRepository) Delete(ctx context.Context, adminID, id string) error {
	_, err := r.db.ExecContext(ctx, `SELECT delete_experience_rpc($1, $2)`, adminID, id)
	if err != nil {
		return rpcError("delete_experience_rpc", err)
	}
	return nil
}
