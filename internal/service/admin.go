package service

import (
	"context"
	"fmt"

	apperrors "curated/internal/errors"
	"curated/internal/logger"
	"curated/internal/models"
)

const adminActionsLimit = 100

const (
	ActionApproveExperience = "approve_experience"
	ActionRejectExperience  = "reject_experience"
	ActionReorderSpotlights = "reorder_spotlights"
)

type AccountAdmin interface {
	UpdateRole(ctx context.Context, adminID, userID, role string) error
	Delete(ctx context.Context, adminID, userID string) error
}

type AdminActionStore interface {
	ListRecent(ctx context.Context, limit int) ([]models.AdminAction, error)
	ReorderSpotlights(ctx context.Context, ids []string, action *models.AdminAction) error
}

// AdminService - модерация и управление пользователями. Каждое изменение
// пишет строку admin_actions в той же транзакции (RPC или WithTx).
type AdminService struct {
	experiences ExperienceStore
	accounts    AccountAdmin
	actions     AdminActionStore
	catalog     *ExperienceService
	creators    *CreatorService
}

func NewAdminService(experiences ExperienceStore, accounts AccountAdmin, actions AdminActionStore,
	catalog *ExperienceService, creators *CreatorService) *AdminService {
	return &AdminService{
		experiences: experiences,
		accounts:    accounts,
		actions:     actions,
		catalog:     catalog,
		creators:    creators,
	}
}

func (s *AdminService) ApproveExperience(ctx context.Context, adminID, id string) (*models.Experience, error) {
	action := newAdminAction(adminID, ActionApproveExperience, "experience", id, nil)
	if err := s.experiences.Moderate(ctx, models.ExperienceStatusApproved, action); err != nil {
		return nil, err
	}
	exp, err := s.experiences.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get experience: %w", err)
	}
	if exp == nil {
		return nil, apperrors.NotFound("experience not found")
	}

	s.catalog.Published(ctx, exp)
	return exp, nil
}

func (s *AdminService) RejectExperience(ctx context.Context, adminID, id, reason string) error {
	var details models.JSONMap
	if reason != "" {
		details = models.JSONMap{"reason": reason}
	}
	action := newAdminAction(adminID, ActionRejectExperience, "experience", id, details)
	if err := s.experiences.Moderate(ctx, models.ExperienceStatusRejected, action); err != nil {
		return err
	}
	s.catalog.Withdrawn(ctx, id)
	return nil
}

func (s *AdminService) DeleteExperience(ctx context.Context, adminID, id string) error {
	if err := s.experiences.Delete(ctx, adminID, id); err != nil {
		return err
	}
	s.catalog.Withdrawn(ctx, id)
	return nil
}

func (s *AdminService) UpdateRole(ctx context.Context, adminID, userID, role string) error {
	switch role {
	case models.RoleUser, models.RoleCreator, models.RoleAdmin:
	default:
		return apperrors.Validation(fmt.Sprintf("unknown role %q", role))
	}
	if err := s.accounts.UpdateRole(ctx, adminID, userID, role); err != nil {
		return err
	}
	s.creators.Invalidate()
	logger.WithContext(ctx).Info("User role updated", "admin_id", adminID, "user_id", userID, "role", role)
	return nil
}

func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID string) error {
	if adminID == userID {
		return apperrors.Validation("admins cannot delete themselves")
	}
	if err := s.accounts.Delete(ctx, adminID, userID); err != nil {
		return err
	}
	s.creators.Invalidate()
	logger.WithContext(ctx).Info("User deleted", "admin_id", adminID, "user_id", userID)
	return nil
}

func (s *AdminService) ListActions(ctx context.Context) ([]models.AdminAction, error) {
	return s.actions.ListRecent(ctx, adminActionsLimit)
}

// ReorderSpotlights sets the display order of creator spotlights to ids
func (s *AdminService) ReorderSpotlights(ctx context.Context, adminID string, ids []string) error {
	if len(ids) == 0 {
		return apperrors.Validation("ids must not be empty")
	}
	action := newAdminAction(adminID, ActionReorderSpotlights, "spotlight", ids[0], models.JSONMap{"order": ids})
	if err := s.actions.ReorderSpotlights(ctx, ids, action); err != nil {
		return fmt.Errorf("failed to reorder spotlights: %w", err)
	}
	return nil
}

func newAdminAction(adminID, actionType, targetType, targetID string, details models.JSONMap) *models.AdminAction {
	return &models.AdminAction{
		AdminID:    &adminID,
		ActionType: actionType,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
	}
}
