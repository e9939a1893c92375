// Package main provides the API server entry point for the campaign escrow service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rent-to-earn/internal/api"
	"github.com/rent-to-earn/internal/auth"
	"github.com/rent-to-earn/internal/chain"
	"github.com/rent-to-earn/internal/config"
	"github.com/rent-to-earn/internal/logging"
	"github.com/rent-to-earn/internal/service"
	"github.com/rent-to-earn/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.Info("Campaign escrow API server starting")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisStore(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	campaignRepo := storage.NewCampaignRepository(postgres)
	notificationRepo := storage.NewNotificationRepository(postgres)
	userRepo := storage.NewUserRepository(postgres)

	// The activity log is optional: without ClickHouse the service runs
	// with transitions unaudited but otherwise intact.
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

	nonces := auth.NewNonceStore(redis, cfg.Auth.NonceTTL)
	sessions := auth.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, redis)

	server := api.NewServer(
		&api.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AppURL:          cfg.Auth.AppURL,
			MessageTTL:      cfg.Auth.MessageTTL,
			CookieName:      cfg.Auth.CookieName,
			SecureCookies:   cfg.Auth.SecureCookies,
			RateLimitRPS:    cfg.RateLimit.RequestsPerSecond,
			RateLimitBurst:  cfg.RateLimit.Burst,
		},
		ledger,
		sessions,
		nonces,
		notificationRepo,
		userRepo,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.WithError(err).Fatal("API server failed")
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
		os.Exit(1)
	}

	logger.Info("Server stopped")
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
