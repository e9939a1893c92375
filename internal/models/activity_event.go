package models

import (
	"time"

	"github.com/rent-to-earn/internal/types"
)

// ActivityEvent is one append-only audit record per committed campaign
// transition. Best-effort: a failed append never affects the transition.
type ActivityEvent struct {
	CampaignID     string               `json:"campaignId"`
	FromStatus     types.CampaignStatus `json:"fromStatus"`
	ToStatus       types.CampaignStatus `json:"toStatus"`
	ActorWallet    string               `json:"actorWallet"` // empty for worker-driven transitions
	AmountLamports string               `json:"amountLamports"`
	OccurredAt     time.Time            `json:"occurredAt"`
}
