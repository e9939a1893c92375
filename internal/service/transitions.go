package service

import (
	"github.com/rent-to-earn/internal/types"
)

// actorRole identifies which campaign party may request an action.
type actorRole int

const (
	roleSponsor actorRole = iota
	roleCreator
)

// chainCheck identifies the on-chain precondition an action asserts.
type chainCheck int

const (
	// chainCheckNone means the action records intent only; the chain
	// confirms later through reconciliation.
	chainCheckNone chainCheck = iota
	// chainCheckDeposit requires a live escrow account in the deposited
	// state whose parties and amount match the off-chain record.
	chainCheckDeposit
	// chainCheckPayout requires the vault to have paid out.
	chainCheckPayout
)

// transitionRule describes one user-requested transition: who may request it,
// which statuses it applies from, where it lands, what the chain must already
// show, and which notification the counterparty receives.
type transitionRule struct {
	role   actorRole
	from   map[types.CampaignStatus]bool
	to     types.CampaignStatus
	check  chainCheck
	notify types.NotificationType
}

var transitionRules = map[types.TransitionAction]transitionRule{
	types.ActionMarkDeposited: {
		role:   roleSponsor,
		from:   statuses(types.StatusDraft),
		to:     types.StatusDeposited,
		check:  chainCheckDeposit,
		notify: types.NotifyCampaignDeposited,
	},
	types.ActionApprove: {
		role:   roleCreator,
		from:   statuses(types.StatusDeposited),
		to:     types.StatusApprovalPending,
		check:  chainCheckNone,
		notify: types.NotifyCampaignApproved,
	},
	types.ActionReject: {
		role:   roleCreator,
		from:   statuses(types.StatusDeposited),
		to:     types.StatusCancelPending,
		check:  chainCheckNone,
		notify: types.NotifyCampaignRejected,
	},
	types.ActionCancel: {
		role:   roleSponsor,
		from:   statuses(types.StatusDeposited, types.StatusApprovalPending, types.StatusApproved),
		to:     types.StatusCancelPending,
		check:  chainCheckNone,
		notify: types.NotifyCampaignCancelled,
	},
	types.ActionClaim: {
		role:   roleCreator,
		from:   statuses(types.StatusCompleted),
		to:     types.StatusClaimed,
		check:  chainCheckPayout,
		notify: types.NotifyCampaignClaimed,
	},
}

func statuses(list ...types.CampaignStatus) map[types.CampaignStatus]bool {
	m := make(map[types.CampaignStatus]bool, len(list))
	for _, s := range list {
		m[s] = true
	}
	return m
}

// happyPath indexes the forward statuses by rank for single-step advances.
var happyPath = []types.CampaignStatus{
	types.StatusDraft,
	types.StatusDeposited,
	types.StatusApprovalPending,
	types.StatusApproved,
	types.StatusActive,
	types.StatusCompleted,
	types.StatusClaimed,
}

// reconcileTarget maps an observed chain state to the off-chain status the
// record should advance to, given where the record currently stands. The
// second return is false when the observation calls for no change.
//
// Forward movement is one step per pass: when the chain is several states
// ahead, the record walks through every intermediate status on successive
// passes, so no predecessor state is skipped and each intermediate
// transition is recorded and notified.
//
// A refunded vault is ambiguous on its own: it means "cancellation refund
// landed" when a cancellation is pending and "creator payout landed"
// otherwise, since both paths drain the vault through the same program path.
func reconcileTarget(chainState types.ChainCampaignState, current types.CampaignStatus) (types.CampaignStatus, bool) {
	var target types.CampaignStatus

	switch chainState {
	case types.ChainStateDeposited:
		target = types.StatusDeposited
	case types.ChainStateApproved:
		target = types.StatusApproved
	case types.ChainStateVerifying, types.ChainStateLive:
		target = types.StatusActive
	case types.ChainStateExpired:
		target = types.StatusCompleted
	case types.ChainStateRefunded:
		if current == types.StatusCancelPending {
			return types.StatusCancelled, true
		}
		target = types.StatusCompleted
	case types.ChainStateCanceledHard:
		if current.IsTerminal() {
			return current, false
		}
		return types.StatusCancelled, true
	default:
		return current, false
	}

	if target == current {
		return current, false
	}

	// Only advance along the happy path. A record in CANCEL_PENDING stays
	// put until the chain confirms the refund; a chain state behind the
	// record is lag, not a rollback.
	currentRank, currentOnPath := current.ForwardRank()
	targetRank, targetOnPath := target.ForwardRank()
	if !currentOnPath || !targetOnPath || targetRank <= currentRank {
		return current, false
	}

	if targetRank > currentRank+1 {
		return happyPath[currentRank+1], true
	}
	return target, true
}

// notificationForStatus maps a reconciliation-applied status to the
// notification type both parties receive.
var notificationForStatus = map[types.CampaignStatus]types.NotificationType{
	types.StatusDeposited: types.NotifyCampaignDeposited,
	types.StatusApproved:  types.NotifyCampaignApproved,
	types.StatusActive:    types.NotifyCampaignActive,
	types.StatusCompleted: types.NotifyCampaignCompleted,
	types.StatusCancelled: types.NotifyCampaignCancelled,
	types.StatusDisputed:  types.NotifyCampaignDisputed,
}
