// Package service implements the campaign ledger: the authoritative state
// machine controller for escrow-backed campaigns. The ledger exclusively owns
// status writes; API handlers and the reconciliation worker both route every
// transition through it.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rent-to-earn/internal/auth"
	"github.com/rent-to-earn/internal/chain"
	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/logging"
	"github.com/rent-to-earn/internal/models"
	"github.com/rent-to-earn/internal/types"
)

// CampaignStore is the persistence surface the ledger requires. Status
// updates are compare-and-swap: they report false instead of writing when the
// record is no longer in the expected status.
type CampaignStore interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	ListByWallet(ctx context.Context, wallet string) ([]*models.Campaign, error)
	TransitionStatus(ctx context.Context, id string, from, to types.CampaignStatus) (bool, error)
	BindChainCampaign(ctx context.Context, id string, chainCampaignID uint64, from, to types.CampaignStatus) (bool, error)
}

// NotificationStore accepts fire-and-forget notification writes.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// ActivityLog appends transition events to the audit log.
type ActivityLog interface {
	Insert(ctx context.Context, e *models.ActivityEvent) error
}

// CampaignLedger validates and applies campaign transitions. User requests
// enter through RequestTransition; the reconciliation worker enters through
// Reconcile. Both paths commit through single-statement compare-and-swap so a
// failed transition leaves the record untouched.
type CampaignLedger struct {
	campaigns     CampaignStore
	notifications NotificationStore
	activity      ActivityLog
	reader        chain.StateReader
	logger        *logging.Logger
}

// NewCampaignLedger creates the ledger. The activity log may be nil when no
// analytics store is configured.
func NewCampaignLedger(campaigns CampaignStore, notifications NotificationStore, activity ActivityLog, reader chain.StateReader) *CampaignLedger {
	return &CampaignLedger{
		campaigns:     campaigns,
		notifications: notifications,
		activity:      activity,
		reader:        reader,
		logger:        logging.GetGlobalLogger().WithField("component", "campaign_ledger"),
	}
}

// CreateCampaign records a new draft campaign between a sponsor and a
// creator. No chain interaction happens here; the sponsor funds the escrow
// from their wallet and then asserts the deposit via RequestTransition.
func (l *CampaignLedger) CreateCampaign(ctx context.Context, sponsorWallet, creatorWallet string, amountLamports *big.Int, durationSeconds uint64) (*models.Campaign, error) {
	if !auth.IsValidWallet(creatorWallet) {
		return nil, apperrors.NewInvalidInputError("creator wallet is not a valid public key")
	}
	creatorWallet = auth.NormalizeWallet(creatorWallet)
	if creatorWallet == sponsorWallet {
		return nil, apperrors.NewInvalidInputError("sponsor and creator must be different wallets")
	}
	if amountLamports == nil || amountLamports.Sign() <= 0 {
		return nil, apperrors.NewInvalidAmountError()
	}
	if durationSeconds == 0 {
		return nil, apperrors.NewInvalidInputError("duration must be positive")
	}

	campaign := &models.Campaign{
		SponsorWallet:   sponsorWallet,
		CreatorWallet:   creatorWallet,
		AmountLamports:  new(big.Int).Set(amountLamports),
		DurationSeconds: durationSeconds,
		Status:          types.StatusDraft,
	}

	if err := l.campaigns.Create(ctx, campaign); err != nil {
		return nil, err
	}

	l.logger.WithFields(map[string]interface{}{
		"campaignId": campaign.ID,
		"sponsor":    sponsorWallet,
		"creator":    creatorWallet,
	}).Info("Campaign created")

	return campaign, nil
}

// GetCampaign returns a campaign visible to the requesting wallet. Campaigns
// are private to their parties; outsiders observe the same not-found as for
// an id that never existed.
func (l *CampaignLedger) GetCampaign(ctx context.Context, campaignID, wallet string) (*models.Campaign, error) {
	campaign, err := l.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !campaign.IsParty(wallet) {
		return nil, apperrors.NewNotFoundError("campaign", campaignID)
	}
	return campaign, nil
}

// ListCampaigns returns the campaigns a wallet participates in.
func (l *CampaignLedger) ListCampaigns(ctx context.Context, wallet string) ([]*models.Campaign, error) {
	return l.campaigns.ListByWallet(ctx, wallet)
}

// RequestTransition applies a user-requested action to a campaign. The
// chainCampaignID argument is consulted only by the deposit action, which
// binds the on-chain identity after verifying it against chain state.
//
// At most one transition per campaign commits at a time: a concurrent loser
// observes WRITE_CONFLICT, and a replay of an already-applied action observes
// INVALID_STATE.
func (l *CampaignLedger) RequestTransition(ctx context.Context, campaignID, actorWallet string, action types.TransitionAction, chainCampaignID *uint64) (*models.Campaign, error) {
	rule, ok := transitionRules[action]
	if !ok {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown action %q", action))
	}

	campaign, err := l.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	if err := checkRole(campaign, actorWallet, rule.role, action); err != nil {
		return nil, err
	}

	if campaign.Status == types.StatusDisputed {
		return nil, apperrors.NewDisputedError(campaignID)
	}
	if !rule.from[campaign.Status] {
		return nil, apperrors.NewInvalidStateError(campaign.Status, action)
	}

	from := campaign.Status

	switch rule.check {
	case chainCheckDeposit:
		if chainCampaignID == nil {
			return nil, apperrors.NewInvalidInputError("chainCampaignId is required to confirm a deposit")
		}
		if err := l.verifyDeposit(ctx, campaign, *chainCampaignID); err != nil {
			return nil, err
		}

		applied, err := l.campaigns.BindChainCampaign(ctx, campaignID, *chainCampaignID, from, rule.to)
		if err != nil {
			return nil, err
		}
		if !applied {
			return nil, apperrors.NewWriteConflictError(campaignID)
		}

	case chainCheckPayout:
		if err := l.verifyPayout(ctx, campaign); err != nil {
			return nil, err
		}
		fallthrough

	default:
		applied, err := l.campaigns.TransitionStatus(ctx, campaignID, from, rule.to)
		if err != nil {
			return nil, err
		}
		if !applied {
			return nil, apperrors.NewWriteConflictError(campaignID)
		}
	}

	updated, err := l.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(map[string]interface{}{
		"campaignId": campaignID,
		"action":     string(action),
		"from":       string(from),
		"to":         string(rule.to),
	}).Info("Campaign transition applied")

	l.notify(ctx, updated, campaign.Counterparty(actorWallet), rule.notify)
	l.recordActivity(ctx, updated, from, actorWallet)

	return updated, nil
}

// Reconcile advances one campaign from observed chain truth. It is the only
// path that transitions a campaign without a live user request, and it is
// idempotent: re-running against an already-advanced record is a no-op.
// Returns true when a transition was applied.
func (l *CampaignLedger) Reconcile(ctx context.Context, campaign *models.Campaign) (bool, error) {
	if campaign.ChainCampaignID == nil || campaign.Status.IsTerminal() {
		return false, nil
	}

	account, err := l.reader.ReadCampaignState(ctx, *campaign.ChainCampaignID)
	if err != nil {
		if errors.Is(err, chain.ErrAccountNotFound) {
			// The record is bound to an escrow the chain no longer
			// shows. That contradicts the forward path; a human
			// decides, not the worker.
			return l.dispute(ctx, campaign, "escrow account no longer exists")
		}
		return false, err
	}

	if drained, reason := vaultContradiction(ctx, l.reader, campaign, account); drained {
		return l.dispute(ctx, campaign, reason)
	}

	target, changed := reconcileTarget(account.State, campaign.Status)
	if !changed {
		return false, nil
	}

	applied, err := l.campaigns.TransitionStatus(ctx, campaign.ID, campaign.Status, target)
	if err != nil {
		return false, err
	}
	if !applied {
		// Lost a race against a user request or another tick. The next
		// tick re-derives from chain truth.
		return false, nil
	}

	l.logger.WithFields(map[string]interface{}{
		"campaignId": campaign.ID,
		"chainState": string(account.State),
		"from":       string(campaign.Status),
		"to":         string(target),
	}).Info("Campaign reconciled from chain state")

	from := campaign.Status
	campaign.Status = target

	if notifyType, ok := notificationForStatus[target]; ok {
		l.notify(ctx, campaign, campaign.SponsorWallet, notifyType)
		l.notify(ctx, campaign, campaign.CreatorWallet, notifyType)
	}
	l.recordActivity(ctx, campaign, from, "")

	return true, nil
}

// verifyDeposit checks the asserted escrow against chain truth before
// binding. Every field the off-chain record knows must match the on-chain
// account, and the vault must actually hold the funds.
func (l *CampaignLedger) verifyDeposit(ctx context.Context, campaign *models.Campaign, chainCampaignID uint64) error {
	account, err := l.reader.ReadCampaignState(ctx, chainCampaignID)
	if err != nil {
		if errors.Is(err, chain.ErrAccountNotFound) {
			return apperrors.NewChainStateMismatchError("escrow account is not yet visible on chain")
		}
		return err
	}

	if account.State != types.ChainStateDeposited {
		return apperrors.NewChainStateMismatchError(
			fmt.Sprintf("escrow is in state %s, expected %s", account.State, types.ChainStateDeposited))
	}
	if account.CampaignID != chainCampaignID {
		return apperrors.NewChainStateMismatchError("escrow account id does not match the asserted campaign id")
	}
	if account.Sponsor != campaign.SponsorWallet || account.Creator != campaign.CreatorWallet {
		return apperrors.NewChainStateMismatchError("escrow parties do not match the campaign record")
	}
	if account.Amount.Cmp(campaign.AmountLamports) != 0 {
		return apperrors.NewChainStateMismatchError(
			fmt.Sprintf("escrow amount %s does not match the campaign amount %s",
				account.Amount.String(), campaign.AmountLamports.String()))
	}

	balance, err := l.reader.ReadVaultBalance(ctx, chainCampaignID)
	if err != nil {
		return err
	}
	if balance.Cmp(campaign.AmountLamports) < 0 {
		return apperrors.NewChainStateMismatchError(
			fmt.Sprintf("vault balance %s is below the escrow amount %s",
				balance.String(), campaign.AmountLamports.String()))
	}

	return nil
}

// verifyPayout checks that the vault has paid out before the creator marks
// the campaign claimed.
func (l *CampaignLedger) verifyPayout(ctx context.Context, campaign *models.Campaign) error {
	if campaign.ChainCampaignID == nil {
		return apperrors.NewInvalidStateError(campaign.Status, types.ActionClaim)
	}

	account, err := l.reader.ReadCampaignState(ctx, *campaign.ChainCampaignID)
	if err != nil {
		if errors.Is(err, chain.ErrAccountNotFound) {
			return apperrors.NewChainStateMismatchError("escrow account is not yet visible on chain")
		}
		return err
	}

	if account.State != types.ChainStateRefunded {
		return apperrors.NewChainStateMismatchError(
			fmt.Sprintf("escrow is in state %s, payout has not landed", account.State))
	}

	return nil
}

// dispute parks a campaign for manual resolution. Applied with the same
// compare-and-swap as every other transition.
func (l *CampaignLedger) dispute(ctx context.Context, campaign *models.Campaign, reason string) (bool, error) {
	applied, err := l.campaigns.TransitionStatus(ctx, campaign.ID, campaign.Status, types.StatusDisputed)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	l.logger.WithFields(map[string]interface{}{
		"campaignId": campaign.ID,
		"from":       string(campaign.Status),
		"reason":     reason,
	}).Error("Campaign disputed")

	from := campaign.Status
	campaign.Status = types.StatusDisputed

	l.notify(ctx, campaign, campaign.SponsorWallet, types.NotifyCampaignDisputed)
	l.notify(ctx, campaign, campaign.CreatorWallet, types.NotifyCampaignDisputed)
	l.recordActivity(ctx, campaign, from, "")

	return true, nil
}

// vaultContradiction reports whether the vault balance contradicts the
// recorded escrow while the chain still considers the campaign funded.
func vaultContradiction(ctx context.Context, reader chain.StateReader, campaign *models.Campaign, account *chain.CampaignAccount) (bool, string) {
	switch account.State {
	case types.ChainStateRefunded, types.ChainStateCanceledHard, types.ChainStateExpired:
		// Terminal or claimable chain states legitimately drain the vault.
		return false, ""
	}

	balance, err := reader.ReadVaultBalance(ctx, *campaign.ChainCampaignID)
	if err != nil {
		// A failed balance read is lag, not a contradiction.
		return false, ""
	}

	if balance.Cmp(campaign.AmountLamports) < 0 {
		return true, fmt.Sprintf("vault balance %s fell below escrow amount %s while campaign is funded",
			balance.String(), campaign.AmountLamports.String())
	}
	return false, ""
}

var notificationCopy = map[types.NotificationType]struct {
	title string
	body  string
}{
	types.NotifyCampaignDeposited: {"Campaign funded", "The sponsor deposited the campaign escrow."},
	types.NotifyCampaignApproved:  {"Campaign approved", "The creator approved the campaign."},
	types.NotifyCampaignRejected:  {"Campaign rejected", "The creator rejected the campaign; the escrow will be refunded."},
	types.NotifyCampaignActive:    {"Campaign live", "The campaign is now running."},
	types.NotifyCampaignCompleted: {"Campaign completed", "The campaign finished its run; funds are claimable."},
	types.NotifyCampaignCancelled: {"Campaign cancelled", "The campaign was cancelled and the escrow refunded."},
	types.NotifyCampaignClaimed:   {"Funds claimed", "The creator claimed the campaign funds."},
	types.NotifyCampaignDisputed:  {"Campaign disputed", "The campaign needs manual review; contact support."},
}

// notify writes one notification, best-effort. A failed write never rolls
// back the transition that triggered it.
func (l *CampaignLedger) notify(ctx context.Context, campaign *models.Campaign, wallet string, notifyType types.NotificationType) {
	copyText := notificationCopy[notifyType]

	err := l.notifications.Create(ctx, &models.Notification{
		Wallet: wallet,
		Type:   notifyType,
		Title:  copyText.title,
		Body:   copyText.body,
		Metadata: map[string]string{
			"campaignId": campaign.ID,
			"status":     string(campaign.Status),
		},
	})
	if err != nil {
		l.logger.WithError(err).WithFields(map[string]interface{}{
			"campaignId": campaign.ID,
			"wallet":     wallet,
		}).Warn("Failed to write notification")
	}
}

// recordActivity appends the transition to the audit log, best-effort.
func (l *CampaignLedger) recordActivity(ctx context.Context, campaign *models.Campaign, from types.CampaignStatus, actorWallet string) {
	if l.activity == nil {
		return
	}

	err := l.activity.Insert(ctx, &models.ActivityEvent{
		CampaignID:     campaign.ID,
		FromStatus:     from,
		ToStatus:       campaign.Status,
		ActorWallet:    actorWallet,
		AmountLamports: campaign.AmountLamports.String(),
		OccurredAt:     time.Now(),
	})
	if err != nil {
		l.logger.WithError(err).WithField("campaignId", campaign.ID).Warn("Failed to record activity event")
	}
}

// checkRole enforces which party may request an action.
func checkRole(campaign *models.Campaign, actorWallet string, role actorRole, action types.TransitionAction) error {
	switch role {
	case roleSponsor:
		if actorWallet != campaign.SponsorWallet {
			return apperrors.NewForbiddenError(fmt.Sprintf("only the sponsor may %s", action))
		}
	case roleCreator:
		if actorWallet != campaign.CreatorWallet {
			return apperrors.NewForbiddenError(fmt.Sprintf("only the creator may %s", action))
		}
	}
	return nil
}
