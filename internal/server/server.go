// Package server assembles the HTTP API: routes, middleware, and the
// http.Server lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hlwatch/hlwatch/internal/server/handler"
	"github.com/hlwatch/hlwatch/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health        *handler.HealthHandler
	Wallets       *handler.WalletHandler
	Positions     *handler.PositionHandler
	Trades        *handler.TradeHandler
	Subscriptions *handler.SubscriptionHandler
}

// Server is the HTTP API server for the wallet tracker.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux
// and the logging and CORS middleware applied.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Tracked wallets.
	mux.HandleFunc("GET /api/wallets", handlers.Wallets.ListWallets)
	mux.HandleFunc("POST /api/wallets", handlers.Wallets.AddWallet)
	mux.HandleFunc("PATCH /api/wallets/{address}", handlers.Wallets.RenameWallet)
	mux.HandleFunc("DELETE /api/wallets/{address}", handlers.Wallets.RemoveWallet)

	// Per-wallet data.
	mux.HandleFunc("GET /api/wallet/{address}/positions", handlers.Positions.GetPositions)
	mux.HandleFunc("GET /api/wallet/{address}/trades", handlers.Trades.GetTrades)
	mux.HandleFunc("GET /api/wallet/{address}/trades/older", handlers.Trades.GetOlderTrades)

	// Push subscriptions.
	mux.HandleFunc("POST /api/subscribe", handlers.Subscriptions.Subscribe)
	mux.HandleFunc("DELETE /api/subscribe", handlers.Subscriptions.Unsubscribe)
	mux.HandleFunc("GET /api/vapid-public-key", handlers.Subscriptions.VAPIDPublicKey)

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
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

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
