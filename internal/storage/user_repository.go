package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/models"
)

// UserRepository handles user persistence
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert records a wallet, creating it on first sign-in and bumping
// updated_at on subsequent ones.
func (r *UserRepository) Upsert(ctx context.Context, wallet string) (*models.User, error) {
	now := time.Now()

	query := `
		INSERT INTO users (wallet, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (wallet) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING wallet, created_at, updated_at
	`

	var user models.User
	err := r.db.Pool().QueryRow(ctx, query, wallet, now).Scan(
		&user.Wallet,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.NewDatabaseError("upsert user", err)
	}

	return &user, nil
}

// GetByWallet retrieves a user by wallet address
func (r *UserRepository) GetByWallet(ctx context.Context, wallet string) (*models.User, error) {
	query := `SELECT wallet, created_at, updated_at FROM users WHERE wallet = $1`

	var user models.User
	err := r.db.Pool().QueryRow(ctx, query, wallet).Scan(
		&user.Wallet,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("user", wallet)
		}
		return nil, apperrors.NewDatabaseError("get user", err)
	}

	return &user, nil
}
