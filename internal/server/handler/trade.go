package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hlwatch/hlwatch/internal/domain"
)

// TradeSource builds and extends wallet trade histories.
type TradeSource interface {
	Sync(ctx context.Context, address string) (fills []domain.Fill, fresh bool, err error)
	LoadMore(ctx context.Context, address string) ([]domain.Fill, error)
	HasMore(address string) bool
}

// TradeHandler serves trade history endpoints.
type TradeHandler struct {
	source TradeSource
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given source.
func NewTradeHandler(source TradeSource, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		source: source,
		logger: logger.With(slog.String("handler", "trade")),
	}
}

type tradesResponse struct {
	Trades      []domain.Fill `json:"trades"`
	HasMore     bool          `json:"hasMore"`
	NewActivity bool          `json:"newActivity"`
}

// GetTrades syncs and returns the wallet's recent trade history. newActivity
// is true when the newest fill changed since the previous sync, so clients
// can raise an alert exactly once per change.
// GET /api/wallet/{address}/trades
func (h *TradeHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	trades, fresh, err := h.source.Sync(r.Context(), address)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "sync trades failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeUpstreamError(w, err)
		return
	}

	if trades == nil {
		trades = []domain.Fill{}
	}

	writeJSON(w, http.StatusOK, tradesResponse{
		Trades:      trades,
		HasMore:     h.source.HasMore(address),
		NewActivity: fresh,
	})
}

// GetOlderTrades extends the wallet's history one lookback window further
// into the past and returns the full merged history. When the history is
// already exhausted this returns the unchanged history rather than failing.
// GET /api/wallet/{address}/trades/older
func (h *TradeHandler) GetOlderTrades(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	trades, err := h.source.LoadMore(r.Context(), address)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load older trades failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeUpstreamError(w, err)
		return
	}

	if trades == nil {
		trades = []domain.Fill{}
	}

	writeJSON(w, http.StatusOK, tradesResponse{
		Trades:  trades,
		HasMore: h.source.HasMore(address),
	})
}
