package domain

import "time"

// Website holds the organization's public contact information.
// Only one website record exists.
type Website struct {
	ID          string        `json:"id"`
	Address     string        `json:"address"`
	Email       string        `json:"email"`
	Telephone   string        `json:"telephone"`
	Description string        `json:"description"`
	Services    []Service     `json:"services"`
	Gallery     []GalleryItem `json:"gallery"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Service is an entry of the services list shown on the public site.
type Service struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	IsActive    bool      `json:"is_active"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GalleryItem is an image of the public gallery.
type GalleryItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	AltText     string    `json:"alt_text"`
	IsActive    bool      `json:"is_active"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
