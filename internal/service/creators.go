package service

import (
	"context"

	"curated/internal/cache"
	"curated/internal/models"
)

type CreatorLister interface {
	ListCreators(ctx context.Context) ([]models.Creator, error)
}

// CreatorService serves the public creator directory from an in-process collection
type CreatorService struct {
	creators *cache.Collection[models.Creator]
}

func NewCreatorService(store CreatorLister, opts ...cache.Option[models.Creator]) *CreatorService {
	return &CreatorService{
		creators: cache.NewCollection[models.Creator]("creators", store.ListCreators, opts...),
	}
}

func (s *CreatorService) List(ctx context.Context) ([]models.Creator, error) {
	return s.creators.Get(ctx)
}

// Invalidate forces the next List to refetch, e.g. after a role change
func (s *CreatorService) Invalidate() {
	s.creators.Invalidate()
}
