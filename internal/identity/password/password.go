// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/bissquit/resettlement-portal/internal/identity"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used for new hashes.
const DefaultCost = 10

// Config contains hasher settings.
type Config struct {
	Cost int
	// MaxConcurrent bounds simultaneous bcrypt operations. Zero means 2*GOMAXPROCS.
	MaxConcurrent int
}

// Hasher hashes passwords. It is safe for concurrent use.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher creates a new Hasher.
func NewHasher(cfg Config) *Hasher {
	cost := cfg.Cost
	if cost == 0 {
		cost = DefaultCost
	}

	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = 2 * runtime.GOMAXPROCS(0)
	}

	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(limit)),
	}
}

// Hash returns a salted bcrypt hash of plaintext.
// Two calls with the same plaintext return different hashes.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: %w", identity.ErrHashing, err)
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", identity.ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", identity.ErrHashing, err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hashed.
// A malformed hash or a cancelled context yields false.
func (h *Hasher) Verify(ctx context.Context, plaintext, hashed string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// VerifyDummy spends the same effort as Verify against a fixed hash.
// Login calls it for unknown emails so response time does not reveal
// whether an account exists.
func (h *Hasher) VerifyDummy(ctx context.Context, plaintext string) {
	h.dummyOnce.Do(func() {
		hashed, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), h.cost)
		if err == nil {
			h.dummy = hashed
		}
	})
	if h.dummy == nil {
		return
	}
	_ = h.Verify(ctx, plaintext, string(h.dummy))
}
