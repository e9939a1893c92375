package storage

import (
	"context"
	"fmt"

	"github.com/rent-to-earn/internal/models"
	"github.com/rent-to-earn/internal/types"
)

// ActivityEventRepository appends campaign transition events to ClickHouse.
// The log is append-only and best-effort; callers never roll back a committed
// transition because an append failed.
type ActivityEventRepository struct {
	db *ClickHouseDB
}

// NewActivityEventRepository creates a new activity event repository
func NewActivityEventRepository(db *ClickHouseDB) *ActivityEventRepository {
	return &ActivityEventRepository{db: db}
}

// Insert appends one transition event
func (r *ActivityEventRepository) Insert(ctx context.Context, e *models.ActivityEvent) error {
	query := `
		INSERT INTO activity_events (
			campaign_id, from_status, to_status, actor_wallet, amount_lamports, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err := r.db.Conn().Exec(ctx, query,
		e.CampaignID,
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorWallet,
		e.AmountLamports,
		e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity event: %w", err)
	}

	return nil
}

// ListByCampaign retrieves the transition history of a campaign, oldest first
func (r *ActivityEventRepository) ListByCampaign(ctx context.Context, campaignID string, limit int) ([]*models.ActivityEvent, error) {
	query := `
		SELECT campaign_id, from_status, to_status, actor_wallet, amount_lamports, occurred_at
		FROM activity_events
		WHERE campaign_id = ?
		ORDER BY occurred_at ASC
		LIMIT ?
	`

	rows, err := r.db.Conn().Query(ctx, query, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity events: %w", err)
	}
	defer rows.Close()

	var events []*models.ActivityEvent
	for rows.Next() {
		var e models.ActivityEvent
		var fromStatus, toStatus string

		err := rows.Scan(&e.CampaignID, &fromStatus, &toStatus, &e.ActorWallet, &e.AmountLamports, &e.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}

		e.FromStatus = types.CampaignStatus(fromStatus)
		e.ToStatus = types.CampaignStatus(toStatus)
		events = append(events, &e)
	}

	return events, rows.Err()
}
