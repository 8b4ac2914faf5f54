// Package website manages the organization's public content:
// contact information, the services list and the image gallery.
package website

import (
	"context"
	"fmt"
	"strings"

	"github.com/bissquit/resettlement-portal/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Service implements website content business logic.
// A nil repository means the content store is not configured.
type Service struct {
	repo Repository
}

// NewService creates a new website service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetWebsite returns the contact information with active services and
// active gallery items attached.
func (s *Service) GetWebsite(ctx context.Context) (*domain.Website, error) {
	if s.repo == nil {
		return nil, ErrStoreUnavailable
	}

	website, err := s.repo.GetWebsite(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.attachContent(ctx, website); err != nil {
		return nil, err
	}
	return website, nil
}

// UpsertWebsite creates the contact information record or replaces the existing one.
func (s *Service) UpsertWebsite(ctx context.Context, website *domain.Website) error {
	if s.repo == nil {
		return ErrStoreUnavailable
	}

	website.Address = strings.TrimSpace(website.Address)
	website.Email = strings.TrimSpace(website.Email)
	website.Telephone = strings.TrimSpace(website.Telephone)

	if err := s.repo.UpsertWebsite(ctx, website); err != nil {
		return fmt.Errorf("upsert website: %w", err)
	}
	return s.attachContent(ctx, website)
}

func (s *Service) attachContent(ctx context.Context, website *domain.Website) error {
	services, err := s.repo.ListServices(ctx, ListFilter{})
	if err != nil {
		return fmt.Errorf("list services: %w", err)
	}
	gallery, err := s.repo.ListGalleryItems(ctx, ListFilter{})
	if err != nil {
		return fmt.Errorf("list gallery items: %w", err)
	}

	website.Services = services
	website.Gallery = gallery
	return nil
}

// ListServices returns services ordered by "order".
func (s *Service) ListServices(ctx context.Context, filter ListFilter) ([]domain.Service, error) {
	if s.repo == nil {
		return nil, ErrStoreUnavailable
	}
	return s.repo.ListServices(ctx, filter)
}

// CreateService creates a new service entry.
func (s *Service) CreateService(ctx context.Context, service *domain.Service) error {
	if s.repo == nil {
		return ErrStoreUnavailable
	}

	title, err := normalizeTitle(service.Title)
	if err != nil {
		return err
	}
	service.Title = title

	return s.repo.CreateService(ctx, service)
}

// UpdateService replaces an existing service entry.
func (s *Service) UpdateService(ctx context.Context, service *domain.Service) error {
	if s.repo == nil {
		return ErrStoreUnavailable
	}
	if err := validateID(service.ID); err != nil {
		return err
	}

	title, err := normalizeTitle(service.Title)
	if err != nil {
		return err
	}
	service.Title = title

	return s.repo.UpdateService(ctx, service)
}

// DeleteService deletes a service entry.
func (s *Service) DeleteService(ctx context.Context, id string) error {
	if s.repo == nil {
		return ErrStoreUnavailable
	}
	if err := validateID(id); err != nil {
		return err
	}
	return s.repo.DeleteService(ctx, id)
}

// ListGalleryItems returns gallery items ordered by "order".
func (s *Service) ListGalleryItems(ctx context.Context, filter ListFilter) ([]domain.GalleryItem, error) {
	if s.repo == nil {
		return nil, ErrStoreUnavailable
	}
	return s.repo.ListGalleryItems(ctx, filter)
}

// CreateGalleryItem creates a new gallery item.
func (s *Service) CreateGalleryItem(ctx context.Context, item *domain.GalleryItem) error {
	if s.repo == nil {
		return ErrStoreUnavailable
	}

	title, err := normalizeTitle(item.Title)
	if err != nil {
		return err
	}
	item.Title = title

	return s.repo.CreateGalleryItem(ctx, item)
}

// UpdateGalleryItem replaces an existing gallery item.
func (s *Service) UpdateGalleryItem(ctx context.Context, item *domain.GalleryItem) error {
	if s.repo == nil {
		return ErrStoreUnavailable
	}
	if err := validateID(item.ID); err != nil {
		return err
	}

	title, err := normalizeTitle(item.Title)
	if err != nil {
		return err
	}
	item.Title = title

	return s.repo.UpdateGalleryItem(ctx, item)
}

// DeleteGalleryItem deletes a gallery item.
func (s *Service) DeleteGalleryItem(ctx context.Context, id string) error {
	if s.repo == nil {
		return ErrStoreUnavailable
	}
	if err := validateID(id); err != nil {
		return err
	}
	return s.repo.DeleteGalleryItem(ctx, id)
}

// normalizeTitle trims and NFC-normalizes a title so visually identical
// titles are stored identically.
func normalizeTitle(title string) (string, error) {
	title = norm.NFC.String(strings.TrimSpace(title))
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
