package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/storage"
)

const revokedPrefix = "renttoearn:revoked:"

// Session is a minted wallet session.
type Session struct {
	Token     string
	Wallet    string
	ExpiresAt time.Time
}

// SessionManager mints, resolves and revokes wallet sessions. Tokens are
// HS256 JWTs bound to one wallet; revocation is tracked server-side in Redis
// keyed by token id, with a TTL matching the token's remaining lifetime.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	store  *storage.RedisStore
}

// NewSessionManager creates a session manager.
func NewSessionManager(secret string, ttl time.Duration, store *storage.RedisStore) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
	}
}

// Create mints a session token for a wallet after signature verification.
func (m *SessionManager) Create(ctx context.Context, wallet string) (*Session, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   wallet,
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Session{
		Token:     token,
		Wallet:    wallet,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a token and returns the wallet it is bound to. Expired,
// revoked and malformed tokens all yield the same AUTH_REQUIRED error so a
// caller cannot distinguish which check failed.
func (m *SessionManager) Resolve(ctx context.Context, token string) (string, error) {
	claims, err := m.parse(token, true)
	if err != nil {
		return "", apperrors.NewAuthRequiredError()
	}

	revoked, err := m.store.Exists(ctx, revokedPrefix+claims.ID)
	if err != nil {
		return "", apperrors.NewInternalError("session revocation check failed", err)
	}
	if revoked {
		return "", apperrors.NewAuthRequiredError()
	}

	return claims.Subject, nil
}

// Revoke marks a token revoked for its remaining lifetime. Idempotent;
// revoking an already-invalid token is a no-op.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	claims, err := m.parse(token, false)
	if err != nil {
		return nil
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}

	if err := m.store.Set(ctx, revokedPrefix+claims.ID, "1", remaining); err != nil {
		return fmt.Errorf("failed to record revocation: %w", err)
	}
	return nil
}

// parse verifies the token signature and, when validateClaims is set, the
// registered expiry claim. The signing method is pinned to HS256.
func (m *SessionManager) parse(token string, validateClaims bool) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, errors.New("invalid session claims")
	}

	return claims, nil
}
