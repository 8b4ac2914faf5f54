package jwt

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bissquit/resettlement-portal/internal/domain"
	"github.com/bissquit/resettlement-portal/internal/identity"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newMemoryDenylist() *memoryDenylist {
	return &memoryDenylist{revoked: make(map[string]time.Time)}
}

func (m *memoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = until
	return nil
}

func (m *memoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[tokenID]
	return ok, nil
}

func testUser() *domain.User {
	return &domain.User{ID: "user-42", Email: "alice@example.com", Name: "Alice", Role: domain.RoleUser}
}

func newTestAuthenticator(t *testing.T, opts ...Option) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator(Config{SecretKey: "test-secret", Issuer: "portal", TokenDuration: time.Hour}, opts...)
	require.NoError(t, err)
	return a
}

func TestNewAuthenticator_RequiresSecret(t *testing.T) {
	_, err := NewAuthenticator(Config{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestNewAuthenticator_DefaultDuration(t *testing.T) {
	a, err := NewAuthenticator(Config{SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenDuration, a.TokenDuration())
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	for _, role := range domain.Roles {
		user := testUser()
		user.Role = role

		token, issued, err := a.Issue(ctx, user)
		require.NoError(t, err)

		claims, err := a.Verify(ctx, token)
		require.NoError(t, err)

		assert.Equal(t, user.ID, claims.SubjectID)
		assert.Equal(t, user.Email, claims.Email)
		assert.Equal(t, role, claims.Role)
		assert.Equal(t, issued.TokenID, claims.TokenID)
		assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt))
	}
}

func TestIssue_InvalidRole(t *testing.T) {
	a := newTestAuthenticator(t)
	user := testUser()
	user.Role = 0

	_, _, err := a.Issue(context.Background(), user)
	assert.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestVerify_TamperedSignature(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	token, _, err := a.Issue(ctx, testUser())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	for i := range sig {
		flipped := make([]byte, len(sig))
		copy(flipped, sig)
		flipped[i] ^= 0x01
		tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(flipped)

		_, err := a.Verify(ctx, tampered)
		require.ErrorIs(t, err, identity.ErrInvalidToken, "byte %d", i)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	token, _, err := a.Issue(ctx, testUser())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	elevated := strings.Replace(string(payload), `"role":"USER"`, `"role":"ADMIN"`, 1)
	require.NotEqual(t, string(payload), elevated)

	forged := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(elevated)) + "." + parts[2]
	_, err = a.Verify(ctx, forged)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	a := newTestAuthenticator(t)

	for _, token := range []string{"", "abc", "a.b.c", "a.b"} {
		_, err := a.Verify(context.Background(), token)
		assert.ErrorIs(t, err, identity.ErrInvalidToken, "token %q", token)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := newTestAuthenticator(t)
	other, err := NewAuthenticator(Config{SecretKey: "other-secret", Issuer: "portal"})
	require.NoError(t, err)

	token, _, err := issuer.Issue(context.Background(), testUser())
	require.NoError(t, err)

	_, err = other.Verify(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	a := newTestAuthenticator(t)

	unsigned := gojwt.NewWithClaims(gojwt.SigningMethodNone, tokenClaims{
		Role: "ADMIN",
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        "x",
			Subject:   "user-42",
			Issuer:    "portal",
			IssuedAt:  gojwt.NewNumericDate(time.Now()),
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = a.Verify(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)

	hs512 := gojwt.NewWithClaims(gojwt.SigningMethodHS512, tokenClaims{
		Role: "ADMIN",
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        "y",
			Subject:   "user-42",
			Issuer:    "portal",
			IssuedAt:  gojwt.NewNumericDate(time.Now()),
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err = hs512.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = a.Verify(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	issuer := newTestAuthenticator(t, WithClock(func() time.Time { return past }))
	verifier := newTestAuthenticator(t)

	token, _, err := issuer.Issue(context.Background(), testUser())
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrExpiredToken)
	assert.NotErrorIs(t, err, identity.ErrInvalidToken)
}

func TestVerify_ExpiredWithBadSignatureIsInvalid(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	issuer := newTestAuthenticator(t, WithClock(func() time.Time { return past }))
	verifier := newTestAuthenticator(t)

	token, _, err := issuer.Issue(context.Background(), testUser())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	first := "A"
	if strings.HasPrefix(parts[2], "A") {
		first = "B"
	}
	tampered := parts[0] + "." + parts[1] + "." + first + parts[2][1:]

	_, err = verifier.Verify(context.Background(), tampered)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestVerify_WrongIssuer(t *testing.T) {
	other, err := NewAuthenticator(Config{SecretKey: "test-secret", Issuer: "someone-else"})
	require.NoError(t, err)

	token, _, err := other.Issue(context.Background(), testUser())
	require.NoError(t, err)

	_, err = newTestAuthenticator(t).Verify(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestRevoke(t *testing.T) {
	denylist := newMemoryDenylist()
	a := newTestAuthenticator(t, WithDenylist(denylist))
	ctx := context.Background()

	token, claims, err := a.Issue(ctx, testUser())
	require.NoError(t, err)

	_, err = a.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, a.Revoke(ctx, claims))
	assert.Equal(t, claims.ExpiresAt, denylist.revoked[claims.TokenID])

	_, err = a.Verify(ctx, token)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestRevoke_WithoutDenylist(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	token, claims, err := a.Issue(ctx, testUser())
	require.NoError(t, err)

	require.NoError(t, a.Revoke(ctx, claims))

	_, err = a.Verify(ctx, token)
	assert.NoError(t, err, "stateless tokens stay valid until expiry")
}

func TestVerify_DenylistFailure(t *testing.T) {
	denylist := newMemoryDenylist()
	denylist.err = errors.New("connection refused")
	a := newTestAuthenticator(t, WithDenylist(denylist))

	token, _, err := a.Issue(context.Background(), testUser())
	require.NoError(t, err)

	_, err = a.Verify(context.Background(), token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, identity.ErrInvalidToken)
	assert.NotErrorIs(t, err, identity.ErrExpiredToken)
}
