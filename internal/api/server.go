// Package api provides the HTTP API server for the campaign escrow service.
package api

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rent-to-earn/internal/auth"
	"github.com/rent-to-earn/internal/logging"
	"github.com/rent-to-earn/internal/models"
	"github.com/rent-to-earn/internal/types"
)

// Service interfaces for dependency injection and testing

// CampaignLedgerInterface defines the ledger operations the API exposes
type CampaignLedgerInterface interface {
	CreateCampaign(ctx context.Context, sponsorWallet, creatorWallet string, amountLamports *big.Int, durationSeconds uint64) (*models.Campaign, error)
	GetCampaign(ctx context.Context, campaignID, wallet string) (*models.Campaign, error)
	ListCampaigns(ctx context.Context, wallet string) ([]*models.Campaign, error)
	RequestTransition(ctx context.Context, campaignID, actorWallet string, action types.TransitionAction, chainCampaignID *uint64) (*models.Campaign, error)
}

// SessionManagerInterface defines session lifecycle operations
type SessionManagerInterface interface {
	Create(ctx context.Context, wallet string) (*auth.Session, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

// NonceStoreInterface defines challenge issue/consume operations
type NonceStoreInterface interface {
	Issue(ctx context.Context, wallet string) (string, error)
	Consume(ctx context.Context, wallet, presented string) (bool, error)
}

// NotificationListerInterface lists notifications for a wallet
type NotificationListerInterface interface {
	ListByWallet(ctx context.Context, wallet string, limit int) ([]*models.Notification, error)
}

// UserStoreInterface records known wallets on sign-in
type UserStoreInterface interface {
	Upsert(ctx context.Context, wallet string) (*models.User, error)
}

// Server represents the HTTP API server.
type Server struct {
	router        *mux.Router
	httpServer    *http.Server
	ledger        CampaignLedgerInterface
	sessions      SessionManagerInterface
	nonces        NonceStoreInterface
	notifications NotificationListerInterface
	users         UserStoreInterface
	config        *ServerConfig
	logger        *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// AppURL appears as the Domain line of the sign-in message.
	AppURL string
	// MessageTTL bounds how long a built sign-in message stays signable.
	MessageTTL time.Duration

	CookieName    string
	SecureCookies bool

	RateLimitRPS   int
	RateLimitBurst int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	ledger CampaignLedgerInterface,
	sessions SessionManagerInterface,
	nonces NonceStoreInterface,
	notifications NotificationListerInterface,
	users UserStoreInterface,
) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		ledger:        ledger,
		sessions:      sessions,
		nonces:        nonces,
		notifications: notifications,
		users:         users,
		config:        config,
		logger:        logging.GetGlobalLogger().WithField("component", "api"),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Middleware order matters: logging wraps everything, recovery catches
	// panics before they reach the logger's status capture, rate limiting
	// runs after CORS so preflights stay cheap.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes registers all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Authentication handshake
	authRoutes := s.router.PathPrefix("/api/auth").Subrouter()
	authRoutes.HandleFunc("/nonce", s.handleNonce).Methods("GET")
	authRoutes.HandleFunc("/signin", s.handleSignIn).Methods("POST")
	authRoutes.HandleFunc("/signout", s.handleSignOut).Methods("POST")

	// Everything else requires a resolved session
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(s.sessions, s.config.CookieName))

	api.HandleFunc("/campaigns", s.handleCreateCampaign).Methods("POST")
	api.HandleFunc("/campaigns", s.handleListCampaigns).Methods("GET")
	api.HandleFunc("/campaigns/{id}", s.handleGetCampaign).Methods("GET")
	api.HandleFunc("/campaigns/{id}/deposit", s.handleMarkDeposited).Methods("POST")
	api.HandleFunc("/campaigns/{id}/approve", s.transitionHandler(types.ActionApprove)).Methods("POST")
	api.HandleFunc("/campaigns/{id}/reject", s.transitionHandler(types.ActionReject)).Methods("POST")
	api.HandleFunc("/campaigns/{id}/cancel", s.transitionHandler(types.ActionCancel)).Methods("POST")
	api.HandleFunc("/campaigns/{id}/claim", s.transitionHandler(types.ActionClaim)).Methods("POST")

	api.HandleFunc("/notifications", s.handleListNotifications).Methods("GET")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "rent-to-earn",
	})
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
