package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
	"github.com/moneymaker/moneymaker/internal/server/handler"
	"github.com/moneymaker/moneymaker/internal/server/middleware"
	"github.com/moneymaker/moneymaker/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // if empty, authentication is disabled
	RateLimit       int    // requests per window per client; 0 disables
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers the server registers.
type Handlers struct {
	Health       *handler.HealthHandler
	Status       *handler.StatusHandler
	Markets      *handler.MarketHandler
	Wallet       *handler.WalletHandler
	Transactions *handler.TransactionHandler
	Positions    *handler.PositionHandler
	Workflows    *handler.WorkflowHandler
}

// Server is the headless HTTP + WebSocket API for the trading system.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. limiter may be
// nil, in which case rate limiting is disabled regardless of config.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/summary", handlers.Markets.GetSummary)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)

	mux.HandleFunc("GET /api/wallet/{mode}", handlers.Wallet.GetWallet)
	mux.HandleFunc("POST /api/wallet/deposit", handlers.Wallet.Deposit)
	mux.HandleFunc("POST /api/wallet/withdraw", handlers.Wallet.Withdraw)

	mux.HandleFunc("GET /api/transactions", handlers.Transactions.ListTransactions)

	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("GET /api/positions/summary", handlers.Positions.GetSummary)

	mux.HandleFunc("POST /api/workflows/{id}/run", handlers.Workflows.RunWorkflow)
	mux.HandleFunc("POST /api/workflows/{id}/toggle", handlers.Workflows.ToggleWorkflow)
	mux.HandleFunc("GET /api/workflows/{id}", handlers.Workflows.GetWorkflow)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// requests to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
