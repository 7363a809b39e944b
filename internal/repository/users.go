package repository

import (
	"context"
	"database/sql"
	"errors"

	"curated/internal/database"
	"curated/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, full_name, role, communication_preferences, created_at
		FROM users
		WHERE id = $1`

	err := r.db.GetContext(ctx, user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetRole reads the current role; used by the authorization middleware
func (r *UserRepository) GetRole(ctx context.Context, id string) (string, error) {
	var role string
	err := r.db.GetContext(ctx, &role, `SELECT role FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return role, err
}

func (r *UserRepository) UpdatePreferences(ctx context.Context, id string, prefs models.CommunicationPreferences) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET communication_preferences = $2, updated_at = NOW() WHERE id = $1`, id, prefs)
	return err
}

func (r *UserRepository) GetCreatorProfile(ctx context.Context, userID string) (*models.CreatorProfile, error) {
	profile := &models.CreatorProfile{}
	query := `
		SELECT user_id, display_name, bio, avatar_url, stripe_account_id, created_at
		FROM creator_profiles
		WHERE user_id = $1`

	err := r.db.GetContext(ctx, profile, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// ListCreators returns users with the creator role that have a profile
func (r *UserRepository) ListCreators(ctx context.Context) ([]models.Creator, error) {
	creators := []models.Creator{}
	query := `
		SELECT u.id, u.email, u.full_name, p.display_name, p.bio, p.avatar_url
		FROM users u
		JOIN creator_profiles p ON p.user_id = u.id
		WHERE u.role = 'creator'
		ORDER BY p.display_name`
	if err := r.db.SelectContext(ctx, &creators, query); err != nil {
		return nil, err
	}
	return creators, nil
}

// UpdateRole goes through the update_user_role RPC, which logs the admin action
func (r *UserRepository) UpdateRole(ctx context.Context, adminID, userID, role string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT update_user_role($1, $2, $3)`, adminID, userID, role); err != nil {
		return rpcError("update_user_role", err)
	}
	return nil
}

// Delete cascades through delete_user_data
func (r *UserRepository) Delete(ctx context.Context, adminID, userID string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT delete_user_data($1, $2)`, adminID, userID); err != nil {
		return rpcError("delete_user_data", err)
	}
	return nil
}
