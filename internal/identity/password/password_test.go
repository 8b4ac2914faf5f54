package password

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bissquit/resettlement-portal/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *Hasher {
	return NewHasher(Config{Cost: bcrypt.MinCost})
}

func TestHash_VerifyRoundTrip(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	for _, p := range []string{"Secret123!", "", "пароль", strings.Repeat("x", 72)} {
		hashed, err := h.Hash(ctx, p)
		require.NoError(t, err)
		assert.True(t, h.Verify(ctx, p, hashed), "password %q", p)
	}
}

func TestHash_IsSalted(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	first, err := h.Hash(ctx, "Secret123!")
	require.NoError(t, err)
	second, err := h.Hash(ctx, "Secret123!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerify_WrongPassword(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	hashed, err := h.Hash(ctx, "Secret123!")
	require.NoError(t, err)

	assert.False(t, h.Verify(ctx, "Secret123?", hashed))
	assert.False(t, h.Verify(ctx, "", hashed))
}

func TestVerify_MalformedHash(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	assert.False(t, h.Verify(ctx, "Secret123!", ""))
	assert.False(t, h.Verify(ctx, "Secret123!", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify(ctx, "Secret123!", "$2a$10$short"))
}

func TestHash_TooLong(t *testing.T) {
	h := newTestHasher()

	_, err := h.Hash(context.Background(), strings.Repeat("x", 73))
	assert.ErrorIs(t, err, identity.ErrPasswordTooLong)

	// 42 characters, 84 bytes.
	_, err = h.Hash(context.Background(), strings.Repeat("пароль", 7))
	assert.ErrorIs(t, err, identity.ErrPasswordTooLong)
}

func TestHash_DefaultCost(t *testing.T) {
	h := NewHasher(Config{})

	hashed, err := h.Hash(context.Background(), "Secret123!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, cost)
}

func TestHash_CancelledContext(t *testing.T) {
	h := NewHasher(Config{Cost: bcrypt.MinCost, MaxConcurrent: 1})
	ctx, cancel := context.WithCancel(context.Background())

	// Hold the only permit so the next call has to wait.
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)
	cancel()

	_, err := h.Hash(ctx, "Secret123!")
	assert.ErrorIs(t, err, identity.ErrHashing)
	assert.False(t, h.Verify(ctx, "Secret123!", "irrelevant"))
}

func TestHasher_ConcurrentUse(t *testing.T) {
	h := NewHasher(Config{Cost: bcrypt.MinCost, MaxConcurrent: 2})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hashed, err := h.Hash(ctx, "Secret123!")
			if err != nil {
				return
			}
			results[i] = h.Verify(ctx, "Secret123!", hashed)
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "goroutine %d", i)
	}
}

func TestVerifyDummy_DoesNotPanic(t *testing.T) {
	h := newTestHasher()
	h.VerifyDummy(context.Background(), "anything")
	assert.NotNil(t, h.dummy)
}
