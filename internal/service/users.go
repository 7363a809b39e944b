package service

import (
	"context"
	"fmt"

	apperrors "curated/internal/errors"
	"curated/internal/models"
)

type PreferenceStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePreferences(ctx context.Context, id string, prefs models.CommunicationPreferences) error
}

type UserService struct {
	users PreferenceStore
}

func NewUserService(users PreferenceStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, apperrors.NotFound("user not found")
	}
	return u, nil
}

// UpdatePreferences stores prefs; the preferred channel must be opted in
func (s *UserService) UpdatePreferences(ctx context.Context, id string, prefs models.CommunicationPreferences) (*models.User, error) {
	if err := prefs.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePreferences(ctx, id, prefs); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	u.Preferences = prefs
	return u, nil
}
