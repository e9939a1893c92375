package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/models"
)

// NotificationRepository handles notification persistence
type NotificationRepository struct {
	db *PostgresDB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *PostgresDB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification row
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now()

	var metadataJSON []byte
	if n.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(n.Metadata)
		if err != nil {
			return apperrors.NewInternalError("marshal notification metadata", err)
		}
	}

	query := `
		INSERT INTO notifications (id, wallet, type, title, body, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		n.ID,
		n.Wallet,
		n.Type,
		n.Title,
		n.Body,
		metadataJSON,
		n.CreatedAt,
	)

	if err != nil {
		return apperrors.NewDatabaseError("create notification", err)
	}

	return nil
}

// ListByWallet retrieves notifications for a wallet, newest first
func (r *NotificationRepository) ListByWallet(ctx context.Context, wallet string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, wallet, type, title, body, metadata, created_at
		FROM notifications
		WHERE wallet = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, wallet, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list notifications", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		var metadataJSON []byte

		err := rows.Scan(&n.ID, &n.Wallet, &n.Type, &n.Title, &n.Body, &metadataJSON, &n.CreatedAt)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan notification", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &n.Metadata); err != nil {
				return nil, apperrors.NewInternalError("unmarshal notification metadata", err)
			}
		}

		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("iterate notifications", err)
	}

	return notifications, nil
}
