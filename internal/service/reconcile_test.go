package service

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/types"
)

func TestReconcile_ChainLagLeavesRecordUntouched(t *testing.T) {
	f := newLedgerFixture(t)
	chainID := uint64(7)

	// Creator approved off-chain, chain still shows the deposit.
	campaign := f.seedCampaign(t, types.StatusApprovalPending, &chainID)
	f.reader.setAccount(chainID, f.depositedAccount(chainID, types.ChainStateDeposited), big.NewInt(1_000_000_000))

	changed, err := f.ledger.Reconcile(context.Background(), campaign)
	require.NoError(t, err)
	assert.False(t, changed)

	loaded, err := f.store.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApprovalPending, loaded.Status)
}

func TestReconcile_AdvancesIdempotently(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	chainID := uint64(7)

	campaign := f.seedCampaign(t, types.StatusApprovalPending, &chainID)
	f.reader.setAccount(chainID, f.depositedAccount(chainID, types.ChainStateApproved), big.NewInt(1_000_000_000))

	changed, err := f.ledger.Reconcile(ctx, campaign)
	require.NoError(t, err)
	assert.True(t, changed)

	loaded, err := f.store.GetByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, loaded.Status)

	// Second tick against the advanced record is a no-op.
	changed, err = f.ledger.Reconcile(ctx, loaded)
	require.NoError(t, err)
	assert.False(t, changed)

	// Both parties were notified exactly once.
	assert.Len(t, f.notifications.byWallet(f.sponsor), 1)
	assert.Len(t, f.notifications.byWallet(f.creator), 1)
}

func TestReconcile_AdvancesOneStepPerPass(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	chainID := uint64(7)

	// Chain is two states ahead: the record walks APPROVAL_PENDING →
	// APPROVED → ACTIVE across passes, never jumping over APPROVED.
	campaign := f.seedCampaign(t, types.StatusApprovalPending, &chainID)
	f.reader.setAccount(chainID, f.depositedAccount(chainID, types.ChainStateVerifying), big.NewInt(1_000_000_000))

	changed, err := f.ledger.Reconcile(ctx, campaign)
	require.NoError(t, err)
	assert.True(t, changed)

	loaded, err := f.store.GetByID(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusApproved, loaded.Status)

	changed, err = f.ledger.Reconcile(ctx, loaded)
	require.NoError(t, err)
	assert.True(t, changed)

	loaded, err = f.store.GetByID(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusActive, loaded.Status)

	// Caught up: a further pass is a no-op.
	changed, err = f.ledger.Reconcile(ctx, loaded)
	require.NoError(t, err)
	assert.False(t, changed)

	// Each intermediate transition notified both parties, in order.
	for _, wallet := range []string{f.sponsor, f.creator} {
		got := f.notifications.byWallet(wallet)
		require.Len(t, got, 2)
		assert.Equal(t, types.NotifyCampaignApproved, got[0].Type)
		assert.Equal(t, types.NotifyCampaignActive, got[1].Type)
	}
}

func TestReconcile_LifecycleProgression(t *testing.T) {
	cases := []struct {
		name       string
		current    types.CampaignStatus
		chainState types.ChainCampaignState
		want       types.CampaignStatus
	}{
		{"verifying goes active", types.StatusApproved, types.ChainStateVerifying, types.StatusActive},
		{"live goes active", types.StatusApproved, types.ChainStateLive, types.StatusActive},
		{"expired completes", types.StatusActive, types.ChainStateExpired, types.StatusCompleted},
		{"refund lands for cancellation", types.StatusCancelPending, types.ChainStateRefunded, types.StatusCancelled},
		{"payout completes without cancel", types.StatusActive, types.ChainStateRefunded, types.StatusCompleted},
		{"hard cancel", types.StatusApproved, types.ChainStateCanceledHard, types.StatusCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newLedgerFixture(t)
			chainID := uint64(7)

			campaign := f.seedCampaign(t, tc.current, &chainID)
			f.reader.setAccount(chainID, f.depositedAccount(chainID, tc.chainState), big.NewInt(1_000_000_000))

			changed, err := f.ledger.Reconcile(context.Background(), campaign)
			require.NoError(t, err)
			assert.True(t, changed)

			loaded, err := f.store.GetByID(context.Background(), campaign.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, loaded.Status)
		})
	}
}

func TestReconcile_DisputesOnMissingAccount(t *testing.T) {
	f := newLedgerFixture(t)
	chainID := uint64(7)

	// Bound campaign, but the chain shows nothing at the derived address.
	campaign := f.seedCampaign(t, types.StatusDeposited, &chainID)

	changed, err := f.ledger.Reconcile(context.Background(), campaign)
	require.NoError(t, err)
	assert.True(t, changed)

	loaded, err := f.store.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDisputed, loaded.Status)

	assert.Len(t, f.notifications.byWallet(f.sponsor), 1)
	assert.Len(t, f.notifications.byWallet(f.creator), 1)
}

func TestReconcile_DisputesOnDrainedVault(t *testing.T) {
	f := newLedgerFixture(t)
	chainID := uint64(7)

	campaign := f.seedCampaign(t, types.StatusActive, &chainID)
	// Chain says live and funded, yet the vault is nearly empty.
	f.reader.setAccount(chainID, f.depositedAccount(chainID, types.ChainStateLive), big.NewInt(3))

	changed, err := f.ledger.Reconcile(context.Background(), campaign)
	require.NoError(t, err)
	assert.True(t, changed)

	loaded, err := f.store.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDisputed, loaded.Status)
}

func TestReconcile_SkipsUnboundAndTerminal(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	chainID := uint64(7)

	unbound := f.seedCampaign(t, types.StatusDraft, nil)
	changed, err := f.ledger.Reconcile(ctx, unbound)
	require.NoError(t, err)
	assert.False(t, changed)

	terminal := f.seedCampaign(t, types.StatusClaimed, &chainID)
	changed, err = f.ledger.Reconcile(ctx, terminal)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestReconcile_PropagatesChainUnavailable(t *testing.T) {
	f := newLedgerFixture(t)
	chainID := uint64(7)

	campaign := f.seedCampaign(t, types.StatusDeposited, &chainID)
	f.reader.readErr = apperrors.NewChainUnavailableError(assert.AnError)

	changed, err := f.ledger.Reconcile(context.Background(), campaign)
	require.Error(t, err)
	assert.False(t, changed)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeChainUnavailable))

	loaded, err := f.store.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDeposited, loaded.Status)
}
