// Package postgres provides PostgreSQL implementation of the website repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/resettlement-portal/internal/domain"
	"github.com/bissquit/resettlement-portal/internal/website"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the website.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetWebsite retrieves the contact information record.
func (r *Repository) GetWebsite(ctx context.Context) (*domain.Website, error) {
	query := `
		SELECT id, address, email, telephone, description, created_at, updated_at
		FROM websites
		LIMIT 1
	`
	var w domain.Website
	err := r.db.QueryRow(ctx, query).Scan(
		&w.ID,
		&w.Address,
		&w.Email,
		&w.Telephone,
		&w.Description,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, website.ErrWebsiteNotFound
		}
		return nil, fmt.Errorf("get website: %w", err)
	}
	return &w, nil
}

// UpsertWebsite inserts the contact information record or updates the existing one.
func (r *Repository) UpsertWebsite(ctx context.Context, w *domain.Website) error {
	query := `
		INSERT INTO websites (address, email, telephone, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (singleton) DO UPDATE SET
			address = EXCLUDED.address,
			email = EXCLUDED.email,
			telephone = EXCLUDED.telephone,
			description = EXCLUDED.description,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		w.Address,
		w.Email,
		w.Telephone,
		w.Description,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert website: %w", err)
	}
	return nil
}

// ListServices retrieves services ordered by "order".
func (r *Repository) ListServices(ctx context.Context, filter website.ListFilter) ([]domain.Service, error) {
	query := `
		SELECT id, title, description, icon, is_active, "order", created_at, updated_at
		FROM services
	`
	if !filter.IncludeInactive {
		query += " WHERE is_active"
	}
	query += ` ORDER BY "order", created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	for rows.Next() {
		var s domain.Service
		if err := rows.Scan(
			&s.ID,
			&s.Title,
			&s.Description,
			&s.Icon,
			&s.IsActive,
			&s.Order,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return services, nil
}

// CreateService creates a new service entry.
func (r *Repository) CreateService(ctx context.Context, s *domain.Service) error {
	query := `
		INSERT INTO services (title, description, icon, is_active, "order")
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		s.Title,
		s.Description,
		s.Icon,
		s.IsActive,
		s.Order,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// UpdateService replaces a service entry.
func (r *Repository) UpdateService(ctx context.Context, s *domain.Service) error {
	query := `
		UPDATE services
		SET title = $2, description = $3, icon = $4, is_active = $5, "order" = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		s.ID,
		s.Title,
		s.Description,
		s.Icon,
		s.IsActive,
		s.Order,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return website.ErrServiceNotFound
		}
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

// DeleteService deletes a service entry.
func (r *Repository) DeleteService(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if result.RowsAffected() == 0 {
		return website.ErrServiceNotFound
	}
	return nil
}

// ListGalleryItems retrieves gallery items ordered by "order".
func (r *Repository) ListGalleryItems(ctx context.Context, filter website.ListFilter) ([]domain.GalleryItem, error) {
	query := `
		SELECT id, title, description, image_url, alt_text, is_active, "order", created_at, updated_at
		FROM gallery_items
	`
	if !filter.IncludeInactive {
		query += " WHERE is_active"
	}
	query += ` ORDER BY "order", created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list gallery items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.GalleryItem, 0)
	for rows.Next() {
		var item domain.GalleryItem
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Description,
			&item.ImageURL,
			&item.AltText,
			&item.IsActive,
			&item.Order,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan gallery item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery items: %w", err)
	}
	return items, nil
}

// CreateGalleryItem creates a new gallery item.
func (r *Repository) CreateGalleryItem(ctx context.Context, item *domain.GalleryItem) error {
	query := `
		INSERT INTO gallery_items (title, description, image_url, alt_text, is_active, "order")
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		item.Title,
		item.Description,
		item.ImageURL,
		item.AltText,
		item.IsActive,
		item.Order,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create gallery item: %w", err)
	}
	return nil
}

// UpdateGalleryItem replaces a gallery item.
func (r *Repository) UpdateGalleryItem(ctx context.Context, item *domain.GalleryItem) error {
	query := `
		UPDATE gallery_items
		SET title = $2, description = $3, image_url = $4, alt_text = $5, is_active = $6, "order" = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		item.ID,
		item.Title,
		item.Description,
		item.ImageURL,
		item.AltText,
		item.IsActive,
		item.Order,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return website.ErrGalleryItemNotFound
		}
		return fmt.Errorf("update gallery item: %w", err)
	}
	return nil
}

// DeleteGalleryItem deletes a gallery item.
func (r *Repository) DeleteGalleryItem(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM gallery_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete gallery item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return website.ErrGalleryItemNotFound
	}
	return nil
}
