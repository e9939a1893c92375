// Package types provides common type definitions for the campaign escrow system.
package types

// CampaignStatus represents the off-chain lifecycle stage of a campaign.
// It mirrors on-chain truth; transitions are validated by the campaign ledger.
type CampaignStatus string

const (
	// StatusDraft represents a campaign that exists off-chain only
	StatusDraft CampaignStatus = "DRAFT"
	// StatusDeposited represents a campaign whose escrow deposit is confirmed on-chain
	StatusDeposited CampaignStatus = "DEPOSITED"
	// StatusApprovalPending represents a creator approval awaiting chain confirmation
	StatusApprovalPending CampaignStatus = "APPROVAL_PENDING"
	// StatusApproved represents a campaign approved on-chain
	StatusApproved CampaignStatus = "APPROVED"
	// StatusActive represents a campaign running (verifying or live on-chain)
	StatusActive CampaignStatus = "ACTIVE"
	// StatusCompleted represents a campaign that ran to completion and is claimable
	StatusCompleted CampaignStatus = "COMPLETED"
	// StatusClaimed represents a completed campaign whose funds were claimed
	StatusClaimed CampaignStatus = "CLAIMED"
	// StatusCancelPending represents a cancellation awaiting chain confirmation
	StatusCancelPending CampaignStatus = "CANCEL_PENDING"
	// StatusCancelled represents a cancelled campaign with funds refunded
	StatusCancelled CampaignStatus = "CANCELLED"
	// StatusDisputed represents a campaign whose chain state contradicts the
	// expected forward path and requires manual resolution
	StatusDisputed CampaignStatus = "DISPUTED"
)

// IsTerminal reports whether no further transitions are allowed from the status.
func (s CampaignStatus) IsTerminal() bool {
	switch s {
	case StatusClaimed, StatusCancelled, StatusDisputed:
		return true
	}
	return false
}

// forwardRank orders statuses along the happy path. Branch states are not ranked.
var forwardRank = map[CampaignStatus]int{
	StatusDraft:           0,
	StatusDeposited:       1,
	StatusApprovalPending: 2,
	StatusApproved:        3,
	StatusActive:          4,
	StatusCompleted:       5,
	StatusClaimed:         6,
}

// ForwardRank returns the position of a status on the happy path and whether
// the status is on that path at all.
func (s CampaignStatus) ForwardRank() (int, bool) {
	r, ok := forwardRank[s]
	return r, ok
}

// ChainCampaignState is the normalized on-chain campaign state as read from
// the escrow program account.
type ChainCampaignState string

const (
	// ChainStateDeposited indicates funds sit in the vault awaiting creator action
	ChainStateDeposited ChainCampaignState = "deposited"
	// ChainStateApproved indicates the creator accepted the campaign on-chain
	ChainStateApproved ChainCampaignState = "approved"
	// ChainStateVerifying indicates the platform is verifying banner placement
	ChainStateVerifying ChainCampaignState = "verifying"
	// ChainStateLive indicates the campaign is live with timestamps set
	ChainStateLive ChainCampaignState = "live"
	// ChainStateExpired indicates the duration elapsed and funds are claimable
	ChainStateExpired ChainCampaignState = "expired"
	// ChainStateRefunded indicates the vault funds were paid out
	ChainStateRefunded ChainCampaignState = "refunded"
	// ChainStateCanceledHard indicates a hard cancel with sponsor refund
	ChainStateCanceledHard ChainCampaignState = "canceled_hard"
)

// TransitionAction identifies a user-requested campaign transition. Each API
// endpoint maps to exactly one action; payload shapes are validated at the
// boundary before reaching the ledger.
type TransitionAction string

const (
	// ActionMarkDeposited records a confirmed escrow deposit (sponsor only)
	ActionMarkDeposited TransitionAction = "mark_deposited"
	// ActionApprove accepts the campaign (creator only)
	ActionApprove TransitionAction = "approve"
	// ActionReject declines a funded campaign, triggering a refund (creator only)
	ActionReject TransitionAction = "reject"
	// ActionCancel withdraws the campaign before it goes live (sponsor only)
	ActionCancel TransitionAction = "cancel"
	// ActionClaim collects funds from a completed campaign (creator only)
	ActionClaim TransitionAction = "claim"
)

// NotificationType categorizes counterparty notifications emitted on transitions.
type NotificationType string

const (
	NotifyCampaignDeposited NotificationType = "CAMPAIGN_DEPOSITED"
	NotifyCampaignApproved  NotificationType = "CAMPAIGN_APPROVED"
	NotifyCampaignRejected  NotificationType = "CAMPAIGN_REJECTED"
	NotifyCampaignActive    NotificationType = "CAMPAIGN_ACTIVE"
	NotifyCampaignCompleted NotificationType = "CAMPAIGN_COMPLETED"
	NotifyCampaignCancelled NotificationType = "CAMPAIGN_CANCELLED"
	NotifyCampaignClaimed   NotificationType = "CAMPAIGN_CLAIMED"
	NotifyCampaignDisputed  NotificationType = "CAMPAIGN_DISPUTED"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
