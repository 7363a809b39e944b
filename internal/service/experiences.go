package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	apperrors "curated/internal/errors"
	"curated/internal/logger"
	"curated/internal/metrics"
	"curated/internal/models"
)

const experienceListPrefix = "experiences:"

// ListCache is a shared byte cache for rendered lists (Valkey/Redis)
type ListCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// SearchIndex is the full-text index of approved experiences
type SearchIndex interface {
	Search(ctx context.Context, query, category string, page, pageSize int) (*models.ExperienceSearchResult, error)
	IndexExperience(ctx context.Context, exp *models.Experience) error
	DeleteExperience(ctx context.Context, id string) error
}

// MediaUploader stores experience media and returns its public URL
type MediaUploader interface {
	Upload(creatorID, filename, contentType string, size int64, data io.Reader) (*models.MediaUploadResponse, error)
}

type ExperienceStore interface {
	Create(ctx context.Context, exp *models.Experience) error
	GetByID(ctx context.Context, id string) (*models.Experience, error)
	ListApproved(ctx context.Context, page, pageSize int) ([]models.Experience, error)
	Moderate(ctx context.Context, status string, action *models.AdminAction) error
	Delete(ctx context.Context, adminID, id string) error
}

type ExperienceService struct {
	store  ExperienceStore
	cache  ListCache
	search SearchIndex
	media  MediaUploader
}

// NewExperienceService; cache, search and media are optional
func NewExperienceService(store ExperienceStore, cache ListCache, search SearchIndex, media MediaUploader) *ExperienceService {
	return &ExperienceService{store: store, cache: cache, search: search, media: media}
}

// List returns approved experiences, served from the shared cache when possible
func (s *ExperienceService) List(ctx context.Context, page, pageSize int) ([]models.Experience, error) {
	key := fmt.Sprintf("%spage:%d:size:%d", experienceListPrefix, page, pageSize)

	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("experiences", "error").Inc()
			logger.WithContext(ctx).Warn("Experience cache read failed", "error", err)
		case ok:
			var exps []models.Experience
			if err := json.Unmarshal(data, &exps); err == nil {
				metrics.CacheLookups.WithLabelValues("experiences", "hit").Inc()
				return exps, nil
			}
		default:
			metrics.CacheLookups.WithLabelValues("experiences", "miss").Inc()
		}
	}

	exps, err := s.store.ListApproved(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiences: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(exps); err == nil {
			if err := s.cache.Set(ctx, key, data); err != nil {
				logger.WithContext(ctx).Warn("Experience cache write failed", "error", err)
			}
		}
	}
	return exps, nil
}

// Search queries the index; without one it filters the approved list by title
func (s *ExperienceService) Search(ctx context.Context, query, category string, page, pageSize int) (*models.ExperienceSearchResult, error) {
	if s.search != nil {
		return s.search.Search(ctx, query, category, page, pageSize)
	}

	exps, err := s.List(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	res := &models.ExperienceSearchResult{Items: []models.Experience{}}
	for _, e := range exps {
		if category != "" && (e.Category == nil || *e.Category != category) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Title), q) {
			continue
		}
		res.Items = append(res.Items, e)
	}
	res.Total = int64(len(res.Items))
	return res, nil
}

// Get hides experiences that are not approved from everyone but their creator
func (s *ExperienceService) Get(ctx context.Context, viewerID, id string) (*models.Experience, error) {
	exp, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get experience: %w", err)
	}
	if exp == nil || (exp.Status != models.ExperienceStatusApproved && exp.CreatorID != viewerID) {
		return nil, apperrors.NotFound("Experience not found")
	}
	return exp, nil
}

// Create submits a new experience for moderation
func (s *ExperienceService) Create(ctx context.Context, creatorID string, req *models.CreateExperienceRequest) (*models.Experience, error) {
	if req.BookingType == models.BookingTypeRequest && !req.ApprovalRequired {
		req.ApprovalRequired = true
	}

	exp := &models.Experience{
		CreatorID:        creatorID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Price:            req.Price,
		Duration:         req.Duration,
		MaxParticipants:  req.MaxParticipants,
		BookingType:      req.BookingType,
		ApprovalRequired: req.ApprovalRequired,
		Location:         req.Location,
		Category:         req.Category,
	}
	for _, m := range req.Media {
		exp.Media = append(exp.Media, models.ExperienceMedia{URL: m.URL, Type: m.Type, OrderIndex: m.OrderIndex})
	}

	if err := s.store.Create(ctx, exp); err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("Experience submitted", "experience_id", exp.ID, "creator_id", creatorID)
	return exp, nil
}

func (s *ExperienceService) UploadMedia(ctx context.Context, creatorID, filename, contentType string, size int64, data io.Reader) (*models.MediaUploadResponse, error) {
	if s.media == nil {
		return nil, fmt.Errorf("media storage is not configured")
	}
	res, err := s.media.Upload(creatorID, filename, contentType, size, data)
	if err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("Media uploaded", "creator_id", creatorID, "path", res.Path)
	return res, nil
}

// Published refreshes derived views after an experience became visible
func (s *ExperienceService) Published(ctx context.Context, exp *models.Experience) {
	if s.search != nil {
		if err := s.search.IndexExperience(ctx, exp); err != nil {
			logger.WithContext(ctx).Error("Failed to index experience", "experience_id", exp.ID, "error", err)
		}
	}
	s.InvalidateList(ctx)
}

// Withdrawn refreshes derived views after an experience was hidden or deleted
func (s *ExperienceService) Withdrawn(ctx context.Context, id string) {
	if s.search != nil {
		if err := s.search.DeleteExperience(ctx, id); err != nil {
			logger.WithContext(ctx).Error("Failed to remove experience from index", "experience_id", id, "error", err)
		}
	}
	s.InvalidateList(ctx)
}

func (s *ExperienceService) InvalidateList(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, experienceListPrefix); err != nil {
		logger.WithContext(ctx).Warn("Failed to invalidate experience cache", "error", err)
	}
}
