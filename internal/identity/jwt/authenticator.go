// Package jwt issues and verifies HS256 session tokens.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/resettlement-portal/internal/domain"
	"github.com/bissquit/resettlement-portal/internal/identity"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenDuration is used when Config.TokenDuration is not set.
const DefaultTokenDuration = 8 * time.Hour

// ErrMissingSecret is returned by NewAuthenticator when no secret is configured.
var ErrMissingSecret = errors.New("jwt secret key is not configured")

// Denylist stores revoked token ids.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Config contains token settings.
type Config struct {
	SecretKey     string
	Issuer        string
	TokenDuration time.Duration
}

// Authenticator implements identity.Authenticator with signed JWTs.
type Authenticator struct {
	secret   []byte
	issuer   string
	duration time.Duration
	denylist Denylist
	now      func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithDenylist enables token revocation.
func WithDenylist(d Denylist) Option {
	return func(a *Authenticator) {
		a.denylist = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// NewAuthenticator creates a new JWT authenticator.
func NewAuthenticator(cfg Config, opts ...Option) (*Authenticator, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingSecret
	}

	duration := cfg.TokenDuration
	if duration <= 0 {
		duration = DefaultTokenDuration
	}

	a := &Authenticator{
		secret:   []byte(cfg.SecretKey),
		issuer:   cfg.Issuer,
		duration: duration,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	gojwt.RegisteredClaims
}

// Issue signs a token for user.
func (a *Authenticator) Issue(_ context.Context, user *domain.User) (string, *domain.Claims, error) {
	if !user.Role.IsValid() {
		return "", nil, fmt.Errorf("issue token: %w", domain.ErrUnknownRole)
	}

	now := a.now().Truncate(time.Second)
	claims := &domain.Claims{
		TokenID:   uuid.NewString(),
		SubjectID: user.ID,
		Email:     user.Email,
		Role:      user.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(a.duration),
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, tokenClaims{
		Email: claims.Email,
		Role:  claims.Role.String(),
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        claims.TokenID,
			Subject:   claims.SubjectID,
			Issuer:    a.issuer,
			IssuedAt:  gojwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: gojwt.NewNumericDate(claims.ExpiresAt),
		},
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature and expiry of token and returns its claims.
// Expiry is only evaluated once the signature is known to be valid.
func (a *Authenticator) Verify(ctx context.Context, token string) (*domain.Claims, error) {
	var tc tokenClaims
	_, err := gojwt.ParseWithClaims(token, &tc, func(*gojwt.Token) (any, error) {
		return a.secret, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", identity.ErrInvalidToken, err)
	}

	if tc.ExpiresAt == nil || tc.IssuedAt == nil || tc.Subject == "" || tc.ID == "" {
		return nil, fmt.Errorf("%w: missing required claims", identity.ErrInvalidToken)
	}
	if a.issuer != "" && tc.Issuer != a.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", identity.ErrInvalidToken)
	}

	role, err := domain.ParseRole(tc.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", identity.ErrInvalidToken, err)
	}

	if !a.now().Before(tc.ExpiresAt.Time) {
		return nil, identity.ErrExpiredToken
	}

	if a.denylist != nil {
		revoked, err := a.denylist.IsRevoked(ctx, tc.ID)
		if err != nil {
			return nil, fmt.Errorf("check token revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: revoked", identity.ErrInvalidToken)
		}
	}

	return &domain.Claims{
		TokenID:   tc.ID,
		SubjectID: tc.Subject,
		Email:     tc.Email,
		Role:      role,
		IssuedAt:  tc.IssuedAt.Time,
		ExpiresAt: tc.ExpiresAt.Time,
	}, nil
}

// Revoke denies claims until they expire. Without a denylist it does nothing.
func (a *Authenticator) Revoke(ctx context.Context, claims *domain.Claims) error {
	if a.denylist == nil || claims == nil {
		return nil
	}
	if !a.now().Before(claims.ExpiresAt) {
		return nil
	}
	if err := a.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// TokenDuration returns the lifetime of issued tokens.
func (a *Authenticator) TokenDuration() time.Duration {
	return a.duration
}
