// Package worker runs the background reconciliation loop that keeps off-chain
// campaign records in agreement with on-chain escrow truth.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rent-to-earn/internal/logging"
	"github.com/rent-to-earn/internal/models"
	"github.com/rent-to-earn/internal/types"
)

// watchStatuses are the off-chain statuses that represent "waiting for chain":
// the worker re-checks these against chain state every tick. Terminal statuses
// and unbound drafts are never polled.
var watchStatuses = []types.CampaignStatus{
	types.StatusDeposited,
	types.StatusApprovalPending,
	types.StatusApproved,
	types.StatusActive,
	types.StatusCancelPending,
}

// Reconciler applies chain-derived transitions to one campaign. Satisfied by
// the campaign ledger, which owns all status writes.
type Reconciler interface {
	Reconcile(ctx context.Context, campaign *models.Campaign) (bool, error)
}

// CampaignSource lists campaigns due for a chain check and advances their
// reconciliation watermark.
type CampaignSource interface {
	ListForReconciliation(ctx context.Context, statuses []types.CampaignStatus, limit int) ([]*models.Campaign, error)
	TouchReconciled(ctx context.Context, id string) error
}

// ReconcileWorker polls bound campaigns on a fixed interval and routes each
// through the ledger's Reconcile. Every action is an idempotent re-derivation
// from chain truth, so the worker can be killed and restarted at any point
// without corrupting state.
type ReconcileWorker struct {
	campaigns    CampaignSource
	reconciler   Reconciler
	pollInterval time.Duration
	batchSize    int
	logger       *logging.Logger

	running bool
	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// ReconcileWorkerConfig holds configuration for a reconcile worker
type ReconcileWorkerConfig struct {
	Campaigns    CampaignSource
	Reconciler   Reconciler
	PollInterval time.Duration
	BatchSize    int
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(cfg *ReconcileWorkerConfig) (*ReconcileWorker, error) {
	if cfg.Campaigns == nil {
		return nil, fmt.Errorf("campaign source cannot be nil")
	}
	if cfg.Reconciler == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}

	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 30 * time.Second
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &ReconcileWorker{
		campaigns:    cfg.Campaigns,
		reconciler:   cfg.Reconciler,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logging.GetGlobalLogger().WithField("component", "reconcile_worker"),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins the polling loop in a background goroutine.
func (w *ReconcileWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("reconcile worker is already running")
	}
	w.running = true
	w.mu.Unlock()

	w.logger.WithField("pollInterval", w.pollInterval.String()).Info("Starting reconcile worker")

	go w.pollLoop(ctx)

	return nil
}

// Stop signals the loop and waits for the in-flight tick to finish.
func (w *ReconcileWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("reconcile worker is not running")
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		w.logger.Info("Reconcile worker stopped")
	case <-ctx.Done():
		w.logger.Warn("Reconcile worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

func (w *ReconcileWorker) pollLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// First tick immediately so a restart picks up pending records without
	// waiting a full interval.
	w.tick(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick reconciles one batch of due campaigns. Failures on individual
// campaigns are logged and skipped; one bad record never stalls the batch.
func (w *ReconcileWorker) tick(ctx context.Context) {
	campaigns, err := w.campaigns.ListForReconciliation(ctx, watchStatuses, w.batchSize)
	if err != nil {
		w.logger.WithError(err).Error("Failed to list campaigns for reconciliation")
		return
	}

	if len(campaigns) == 0 {
		return
	}

	advanced := 0
	for _, campaign := range campaigns {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		changed, err := w.reconciler.Reconcile(ctx, campaign)
		if err != nil {
			w.logger.WithError(err).WithField("campaignId", campaign.ID).Warn("Reconciliation failed, will retry next tick")
			continue
		}
		if changed {
			advanced++
		}

		if err := w.campaigns.TouchReconciled(ctx, campaign.ID); err != nil {
			w.logger.WithError(err).WithField("campaignId", campaign.ID).Warn("Failed to advance reconciliation watermark")
		}
	}

	if advanced > 0 {
		w.logger.WithFields(map[string]interface{}{
			"checked":  len(campaigns),
			"advanced": advanced,
		}).Info("Reconciliation tick applied transitions")
	}
}
