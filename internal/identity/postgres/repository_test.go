//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/bissquit/resettlement-portal/internal/domain"
	"github.com/bissquit/resettlement-portal/internal/identity"
	"github.com/bissquit/resettlement-portal/internal/identity/password"
	"github.com/bissquit/resettlement-portal/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, seedFiles ...string) *Repository {
	t.Helper()
	ctx := context.Background()

	container, err := testutil.NewPostgresContainer(ctx, "../../../migrations", seedFiles...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	pool, err := pgxpool.New(ctx, container.ConnectionString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewRepository(pool)
}

func TestMigrations_CreateNoAccounts(t *testing.T) {
	repo := newTestRepository(t)

	for _, account := range testutil.SeedPasswords {
		_, err := repo.GetUserByEmail(context.Background(), account.Email)
		assert.ErrorIs(t, err, identity.ErrUserNotFound, account.Email)
	}
}

func TestRepository(t *testing.T) {
	repo := newTestRepository(t, "../../../seeds/users.sql")
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		user := &domain.User{Email: "dana@example.com", PasswordHash: "hash", Name: "Dana", Role: domain.RoleAnalyst}
		require.NoError(t, repo.CreateUser(ctx, user))
		assert.NotEmpty(t, user.ID)

		byEmail, err := repo.GetUserByEmail(ctx, "dana@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
		assert.Equal(t, domain.RoleAnalyst, byEmail.Role)

		byID, err := repo.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dana", byID.Name)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := repo.CreateUser(ctx, &domain.User{Email: "dana@example.com", PasswordHash: "hash", Role: domain.RoleUser})
		assert.ErrorIs(t, err, identity.ErrEmailExists)
	})

	t.Run("email match is exact", func(t *testing.T) {
		_, err := repo.GetUserByEmail(ctx, "DANA@example.com")
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := repo.GetUserByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})

	t.Run("seed accounts verify with bcrypt", func(t *testing.T) {
		hasher := password.NewHasher(password.Config{})
		for role, account := range testutil.SeedPasswords {
			user, err := repo.GetUserByEmail(ctx, account.Email)
			require.NoError(t, err, account.Email)
			assert.Equal(t, role, user.Role)
			assert.True(t, hasher.Verify(ctx, account.Password, user.PasswordHash), account.Email)
		}
	})
}
