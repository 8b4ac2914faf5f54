package identity

import (
	"errors"

	"github.com/bissquit/resettlement-portal/internal/access"
)

// MaxPasswordBytes is the longest password bcrypt accepts, counted in bytes.
const MaxPasswordBytes = 72

// Identity errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = access.ErrInvalidToken
	ErrExpiredToken       = access.ErrExpiredToken
	ErrRoleNotAllowed     = errors.New("only administrators can assign roles")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
	ErrHashing            = errors.New("password hashing failed")
	ErrPasswordTooLong    = errors.New("password must not exceed 72 bytes")
	ErrUnavailable        = errors.New("authentication unavailable")
)
