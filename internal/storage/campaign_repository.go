package storage

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/models"
	"github.com/rent-to-earn/internal/types"
)

// CampaignRepository handles campaign persistence. Status changes go through
// single-statement compare-and-swap updates so that concurrent transitions on
// the same campaign serialize at the row level.
type CampaignRepository struct {
	db *PostgresDB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *PostgresDB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `
	id, sponsor_wallet, creator_wallet, amount_lamports::text,
	duration_seconds, chain_campaign_id::text, status,
	last_reconciled_at, created_at, updated_at
`

// Create inserts a new campaign record
func (r *CampaignRepository) Create(ctx context.Context, c *models.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO campaigns (
			id, sponsor_wallet, creator_wallet, amount_lamports,
			duration_seconds, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		c.ID,
		c.SponsorWallet,
		c.CreatorWallet,
		c.AmountLamports.String(),
		c.DurationSeconds,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
	)

	if err != nil {
		return apperrors.NewDatabaseError("create campaign", err)
	}

	return nil
}

// GetByID retrieves a campaign by its off-chain id
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	row := r.db.Pool().QueryRow(ctx, query, id)
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("campaign", id)
		}
		return nil, apperrors.NewDatabaseError("get campaign", err)
	}

	return c, nil
}

// ListByWallet retrieves campaigns where the wallet is sponsor or creator
func (r *CampaignRepository) ListByWallet(ctx context.Context, wallet string) ([]*models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE sponsor_wallet = $1 OR creator_wallet = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, wallet)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list campaigns", err)
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan campaign", err)
		}
		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("iterate campaigns", err)
	}

	return campaigns, nil
}

// TransitionStatus atomically advances a campaign from one status to another.
// Returns false when the row is no longer in the expected status, which is how
// the loser of a concurrent race observes the conflict.
func (r *CampaignRepository) TransitionStatus(ctx context.Context, id string, from, to types.CampaignStatus) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	tag, err := r.db.Pool().Exec(ctx, query, id, from, to, time.Now())
	if err != nil {
		return false, apperrors.NewDatabaseError("transition campaign", err)
	}

	return tag.RowsAffected() == 1, nil
}

// BindChainCampaign advances status and binds the on-chain campaign identity
// in one statement. The chain_campaign_id IS NULL guard enforces write-once;
// the unique (sponsor_wallet, chain_campaign_id) index rejects a second record
// binding the same escrow.
func (r *CampaignRepository) BindChainCampaign(ctx context.Context, id string, chainCampaignID uint64, from, to types.CampaignStatus) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = $3, chain_campaign_id = $4::numeric, updated_at = $5
		WHERE id = $1 AND status = $2 AND chain_campaign_id IS NULL
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		id, from, to,
		new(big.Int).SetUint64(chainCampaignID).String(),
		time.Now(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, apperrors.NewInvalidInputError(
				fmt.Sprintf("escrow %d is already bound to another campaign", chainCampaignID))
		}
		return false, apperrors.NewDatabaseError("bind chain campaign", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListForReconciliation returns bound campaigns in the given statuses, oldest
// reconciliation watermark first.
func (r *CampaignRepository) ListForReconciliation(ctx context.Context, statuses []types.CampaignStatus, limit int) ([]*models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE status = ANY($1) AND chain_campaign_id IS NOT NULL
		ORDER BY last_reconciled_at ASC NULLS FIRST
		LIMIT $2
	`

	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = string(s)
	}

	rows, err := r.db.Pool().Query(ctx, query, statusStrings, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list campaigns for reconciliation", err)
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan campaign", err)
		}
		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("iterate campaigns", err)
	}

	return campaigns, nil
}

// TouchReconciled advances the reconciliation watermark for a campaign
func (r *CampaignRepository) TouchReconciled(ctx context.Context, id string) error {
	query := `UPDATE campaigns SET last_reconciled_at = $2 WHERE id = $1`

	if _, err := r.db.Pool().Exec(ctx, query, id, time.Now()); err != nil {
		return apperrors.NewDatabaseError("touch reconciled", err)
	}
	return nil
}

// scanCampaign scans one campaign row. Numeric columns arrive as text so that
// amounts and chain identities never pass through a float representation.
func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	var amountStr string
	var chainIDStr *string

	err := row.Scan(
		&c.ID,
		&c.SponsorWallet,
		&c.CreatorWallet,
		&amountStr,
		&c.DurationSeconds,
		&chainIDStr,
		&c.Status,
		&c.LastReconciledAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount in campaign %s: %q", c.ID, amountStr)
	}
	c.AmountLamports = amount

	if chainIDStr != nil {
		chainID, err := strconv.ParseUint(*chainIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain campaign id in campaign %s: %q", c.ID, *chainIDStr)
		}
		c.ChainCampaignID = &chainID
	}

	return &c, nil
}
