package website

import (
	"context"

	"github.com/bissquit/resettlement-portal/internal/domain"
)

// Repository defines the interface for website content data operations.
type Repository interface {
	GetWebsite(ctx context.Context) (*domain.Website, error)
	UpsertWebsite(ctx context.Context, website *domain.Website) error

	ListServices(ctx context.Context, filter ListFilter) ([]domain.Service, error)
	CreateService(ctx context.Context, service *domain.Service) error
	UpdateService(ctx context.Context, service *domain.Service) error
	DeleteService(ctx context.Context, id string) error

	ListGalleryItems(ctx context.Context, filter ListFilter) ([]domain.GalleryItem, error)
	CreateGalleryItem(ctx context.Context, item *domain.GalleryItem) error
	UpdateGalleryItem(ctx context.Context, item *domain.GalleryItem) error
	DeleteGalleryItem(ctx context.Context, id string) error
}

// ListFilter represents filter criteria for listing services and gallery items.
// Results are always ordered by "order" ascending.
type ListFilter struct {
	IncludeInactive bool
}
