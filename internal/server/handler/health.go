package handler

import (
	"context"
	"net/http"
	"time"
)

// StreamStatus reports the live stream connection state.
type StreamStatus interface {
	State() string
}

// WalletCounter reports how many wallets are currently tracked.
type WalletCounter interface {
	WalletCount(ctx context.Context) (int, error)
}

// HealthHandler serves the health check endpoint.
type HealthHandler struct {
	stream  StreamStatus
	wallets WalletCounter
	started time.Time
}

// NewHealthHandler creates a HealthHandler. started should be the process
// start time so the reported uptime is meaningful.
func NewHealthHandler(stream StreamStatus, wallets WalletCounter, started time.Time) *HealthHandler {
	return &HealthHandler{
		stream:  stream,
		wallets: wallets,
		started: started,
	}
}

type healthResponse struct {
	Status        string  `json:"status"`
	Wallets       int     `json:"wallets"`
	WebSocket     string  `json:"websocket"`
	UptimeSeconds float64 `json:"uptime"`
}

// HealthCheck reports service liveness, the tracked wallet count, and the
// stream state.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	count, err := h.wallets.WalletCount(r.Context())
	if err != nil {
		count = -1
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Wallets:       count,
		WebSocket:     h.stream.State(),
		UptimeSeconds: time.Since(h.started).Seconds(),
	})
}
