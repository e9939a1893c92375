package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rent-to-earn/internal/storage"
)

const noncePrefix = "renttoearn:nonce:"

// NonceStore issues and consumes single-use authentication challenges. At
// most one challenge is outstanding per wallet; issuing again overwrites the
// previous one (last writer wins).
type NonceStore struct {
	store *storage.RedisStore
	ttl   time.Duration
}

// NewNonceStore creates a nonce store with the given challenge TTL.
func NewNonceStore(store *storage.RedisStore, ttl time.Duration) *NonceStore {
	return &NonceStore{store: store, ttl: ttl}
}

// Issue generates a 32-byte random nonce for a wallet and stores it with the
// configured TTL, replacing any prior unconsumed nonce for that wallet.
func (s *NonceStore) Issue(ctx context.Context, wallet string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	nonce := base58.Encode(raw)

	if err := s.store.Set(ctx, nonceKey(wallet), nonce, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}

	return nonce, nil
}

// Consume atomically deletes the wallet's outstanding nonce and reports
// whether the presented value matched it. The delete happens regardless of
// outcome: a nonce presented once is burned even when the attempt fails.
func (s *NonceStore) Consume(ctx context.Context, wallet, presented string) (bool, error) {
	stored, err := s.store.GetDel(ctx, nonceKey(wallet))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}

	if len(stored) != len(presented) {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1, nil
}

func nonceKey(wallet string) string {
	return noncePrefix + strings.ToLower(wallet)
}
