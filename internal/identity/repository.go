package identity

import (
	"context"

	"github.com/bissquit/resettlement-portal/internal/domain"
)

// Repository is the credential store.
type Repository interface {
	// CreateUser inserts user and fills its ID and timestamps.
	// Returns ErrEmailExists when the email is already taken.
	CreateUser(ctx context.Context, user *domain.User) error
	// GetUserByEmail looks a user up by exact email. Returns ErrUserNotFound when absent.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetUserByID returns ErrUserNotFound when absent.
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}
