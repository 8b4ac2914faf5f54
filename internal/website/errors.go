package website

import "errors"

// Website content errors.
var (
	ErrWebsiteNotFound     = errors.New("website not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrGalleryItemNotFound = errors.New("gallery item not found")
	ErrInvalidID           = errors.New("invalid id")
	ErrEmptyTitle          = errors.New("title is required")
	ErrStoreUnavailable    = errors.New("content store unavailable")

	ErrNoFile          = errors.New("no file uploaded")
	ErrUnsupportedType = errors.New("only jpeg, png, gif and webp images are accepted")
	ErrFileTooLarge    = errors.New("file too large")
)
