// Package main provides the reconciliation worker entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rent-to-earn/internal/chain"
	"github.com/rent-to-earn/internal/config"
	"github.com/rent-to-earn/internal/logging"
	"github.com/rent-to-earn/internal/service"
	"github.com/rent-to-earn/internal/storage"
	"github.com/rent-to-earn/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.Info("Reconciliation worker starting")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	campaignRepo := storage.NewCampaignRepository(postgres)
	notificationRepo := storage.NewNotificationRepository(postgres)

	var activity service.ActivityLog
	if cfg.Database.ClickHouse.Host != "" {
		clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to ClickHouse")
		}
		defer clickhouse.Close()
		activity = storage.NewActivityEventRepository(clickhouse)
	}

	reader, err := newStateReader(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create chain reader")
	}

	ledger := service.NewCampaignLedger(campaignRepo, notificationRepo, activity, reader)

	w, err := worker.NewReconcileWorker(&worker.ReconcileWorkerConfig{
		Campaigns:    campaignRepo,
		Reconciler:   ledger,
		PollInterval: cfg.Worker.PollInterval,
		BatchSize:    cfg.Worker.BatchSize,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create reconcile worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start reconcile worker")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.WithField("signal", sig.String()).Info("Shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := w.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Worker stop failed")
		os.Exit(1)
	}

	logger.Info("Worker stopped")
}

// newStateReader selects the escrow reader for the configured deployment. An
// EVM endpoint takes precedence when set; the default is the Solana program.
func newStateReader(cfg *config.Config) (chain.StateReader, error) {
	if cfg.Chain.EVMRPCURL != "" {
		return chain.NewEVMReader(cfg.Chain.EVMRPCURL, cfg.Chain.EVMContract)
	}

	resolver, err := chain.NewAccountResolver(cfg.Chain.ProgramID)
	if err != nil {
		return nil, err
	}
	return chain.NewSolanaReader(cfg.Chain.RPCURL, resolver, nil, cfg.Chain.RequestTimeout), nil
}
