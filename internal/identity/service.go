// Package identity provides user registration, login and session validation.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/resettlement-portal/internal/domain"
	"github.com/bissquit/resettlement-portal/internal/pkg/ctxlog"
	"github.com/bissquit/resettlement-portal/internal/pkg/metrics"
	"golang.org/x/text/unicode/norm"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hashed string) bool
	VerifyDummy(ctx context.Context, plaintext string)
}

// Authenticator issues and verifies session tokens.
type Authenticator interface {
	Issue(ctx context.Context, user *domain.User) (string, *domain.Claims, error)
	Verify(ctx context.Context, token string) (*domain.Claims, error)
	Revoke(ctx context.Context, claims *domain.Claims) error
	TokenDuration() time.Duration
}

// Service implements identity business logic.
// A nil repository or authenticator means the dependency is not configured;
// the affected operations fail with ErrStoreUnavailable or ErrUnavailable.
type Service struct {
	repo   Repository
	auth   Authenticator
	hasher PasswordHasher
}

// NewService creates a new identity service.
func NewService(repo Repository, auth Authenticator, hasher PasswordHasher) *Service {
	return &Service{
		repo:   repo,
		auth:   auth,
		hasher: hasher,
	}
}

// RegisterInput represents registration data.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	// Role defaults to USER when zero.
	Role domain.Role
	// Caller holds the claims of the requester, if any.
	Caller *domain.Claims
}

// Register creates a new user.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	user, err := s.register(ctx, input)
	metrics.RecordAuthAttempt("register", authResult(err))
	return user, err
}

func (s *Service) register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	role := input.Role
	if role == 0 {
		role = domain.RoleUser
	}
	if !role.IsValid() {
		return nil, domain.ErrUnknownRole
	}
	if role != domain.RoleUser && (input.Caller == nil || input.Caller.Role != domain.RoleAdmin) {
		return nil, ErrRoleNotAllowed
	}

	if len(input.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	if s.repo == nil {
		return nil, ErrStoreUnavailable
	}

	// Fast path only; the unique constraint decides concurrent registrations.
	_, err := s.repo.GetUserByEmail(ctx, input.Email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	hash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        input.Email,
		PasswordHash: hash,
		Name:         normalizeName(input.Name),
		Role:         role,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	ctxlog.FromContext(ctx).Info("user registered", "user_id", user.ID, "role", user.Role.String())
	return user, nil
}

// LoginInput represents login data.
type LoginInput struct {
	Email    string
	Password string
}

// Session is the result of a successful login.
type Session struct {
	User   *domain.User
	Token  string
	Claims *domain.Claims
}

// Login verifies credentials and issues a session token.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	session, err := s.login(ctx, input)
	metrics.RecordAuthAttempt("login", authResult(err))
	return session, err
}

func (s *Service) login(ctx context.Context, input LoginInput) (*Session, error) {
	if s.repo == nil {
		return nil, ErrStoreUnavailable
	}
	if s.auth == nil {
		return nil, ErrUnavailable
	}

	logger := ctxlog.FromContext(ctx)

	user, err := s.repo.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.VerifyDummy(ctx, input.Password)
			logger.Info("login rejected", "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if !s.hasher.Verify(ctx, input.Password, user.PasswordHash) {
		logger.Info("login rejected", "reason", "password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.auth.Issue(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	logger.Info("user logged in", "user_id", user.ID, "role", user.Role.String())
	return &Session{User: user, Token: token, Claims: claims}, nil
}

// ValidateToken verifies token and returns its claims.
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	if s.auth == nil {
		return nil, ErrUnavailable
	}
	return s.auth.Verify(ctx, token)
}

// Logout revokes token. Invalid or expired tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if s.auth == nil {
		return nil
	}
	claims, err := s.auth.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrExpiredToken) {
			return nil
		}
		return err
	}
	return s.auth.Revoke(ctx, claims)
}

// GetUserByID returns the user with the given ID.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if s.repo == nil {
		return nil, ErrStoreUnavailable
	}
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return user, nil
}

// TokenDuration returns the lifetime of issued tokens, or zero when tokens are unavailable.
func (s *Service) TokenDuration() time.Duration {
	if s.auth == nil {
		return 0
	}
	return s.auth.TokenDuration()
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func authResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrEmailExists):
		return "duplicate_email"
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
