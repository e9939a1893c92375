// Package models defines the persistent entities of the campaign escrow service.
package models

import (
	"math/big"
	"time"

	"github.com/rent-to-earn/internal/types"
)

// Campaign is the off-chain record of an escrow-backed advertising campaign.
// Status is owned exclusively by the campaign ledger; the vault and campaign
// account addresses are derived, never stored.
type Campaign struct {
	ID            string
	SponsorWallet string
	CreatorWallet string

	// AmountLamports is the escrowed amount in the chain's minimal unit.
	// Arbitrary precision; immutable once the campaign reaches DEPOSITED.
	AmountLamports *big.Int

	// DurationSeconds is how long the campaign runs once live.
	DurationSeconds uint64

	// ChainCampaignID is the on-chain campaign identity. Write-once: bound by
	// the first chain-confirmed transition and verified against the campaign
	// account before binding.
	ChainCampaignID *uint64

	Status types.CampaignStatus

	// LastReconciledAt is the reconciliation watermark; zero until the worker
	// first checks the record against the chain.
	LastReconciledAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CampaignView is the API projection of a campaign. Monetary fields are
// decimal strings and the chain identity is a string, since both may exceed
// the range JSON numbers can carry losslessly.
type CampaignView struct {
	ID               string  `json:"id"`
	SponsorWallet    string  `json:"sponsorWallet"`
	CreatorWallet    string  `json:"creatorWallet"`
	AmountLamports   string  `json:"amountLamports"`
	DurationSeconds  uint64  `json:"durationSeconds"`
	ChainCampaignID  *string `json:"chainCampaignId"`
	Status           string  `json:"status"`
	LastReconciledAt *string `json:"lastReconciledAt,omitempty"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

// View converts the campaign into its API projection.
func (c *Campaign) View() *CampaignView {
	view := &CampaignView{
		ID:              c.ID,
		SponsorWallet:   c.SponsorWallet,
		CreatorWallet:   c.CreatorWallet,
		AmountLamports:  c.AmountLamports.String(),
		DurationSeconds: c.DurationSeconds,
		Status:          string(c.Status),
		CreatedAt:       c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       c.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if c.ChainCampaignID != nil {
		s := new(big.Int).SetUint64(*c.ChainCampaignID).String()
		view.ChainCampaignID = &s
	}
	if c.LastReconciledAt != nil {
		s := c.LastReconciledAt.UTC().Format(time.RFC3339)
		view.LastReconciledAt = &s
	}

	return view
}

// IsParty reports whether the wallet is the sponsor or the creator.
func (c *Campaign) IsParty(wallet string) bool {
	return wallet == c.SponsorWallet || wallet == c.CreatorWallet
}

// Counterparty returns the other side of the campaign for a given actor.
func (c *Campaign) Counterparty(actorWallet string) string {
	if actorWallet == c.SponsorWallet {
		return c.CreatorWallet
	}
	return c.SponsorWallet
}
