// Package chain reads escrow campaign state from the settlement layer. It
// derives program-owned escrow account addresses deterministically, decodes
// the on-chain campaign account layout, and exposes a narrow reader interface
// so services and the reconciliation worker never touch RPC details.
package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/rent-to-earn/internal/types"
)

// ErrAccountNotFound indicates the derived escrow account does not exist on
// chain. Distinct from transient read failures: callers treat a missing
// account before binding as chain lag and after binding as a contradiction.
var ErrAccountNotFound = errors.New("chain account not found")

// CampaignAccount is the decoded on-chain escrow account for one campaign.
type CampaignAccount struct {
	CampaignID uint64
	Sponsor    string
	Creator    string
	Amount     *big.Int
	Duration   uint64
	State      types.ChainCampaignState
	StartTS    int64
	EndTS      int64
	Bump       uint8
	VaultBump  uint8
}

// StateReader reads campaign escrow state from the chain. Implementations
// must distinguish a missing account (ErrAccountNotFound) from transport
// failures, and must never mutate chain state.
type StateReader interface {
	// ReadCampaignState fetches and decodes the escrow account for a
	// chain campaign id. Returns ErrAccountNotFound if no account exists
	// at the derived address.
	ReadCampaignState(ctx context.Context, chainCampaignID uint64) (*CampaignAccount, error)

	// ReadVaultBalance returns the lamport balance of the campaign's
	// escrow vault. A missing vault reads as zero balance.
	ReadVaultBalance(ctx context.Context, chainCampaignID uint64) (*big.Int, error)
}
