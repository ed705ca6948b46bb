package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hlwatch/hlwatch/internal/domain"
)

// PositionSource fetches the live position snapshot for a wallet.
type PositionSource interface {
	Positions(ctx context.Context, address string) ([]domain.Position, domain.AccountSummary, error)
}

// PositionHandler serves position snapshot endpoints.
type PositionHandler struct {
	source PositionSource
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given source.
func NewPositionHandler(source PositionSource, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		source: source,
		logger: logger.With(slog.String("handler", "position")),
	}
}

type positionsResponse struct {
	Positions []domain.Position     `json:"positions"`
	Account   domain.AccountSummary `json:"account"`
}

// GetPositions returns the wallet's open positions and account summary.
// GET /api/wallet/{address}/positions
func (h *PositionHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	positions, account, err := h.source.Positions(r.Context(), address)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "fetch positions failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeUpstreamError(w, err)
		return
	}

	if positions == nil {
		positions = []domain.Position{}
	}

	writeJSON(w, http.StatusOK, positionsResponse{
		Positions: positions,
		Account:   account,
	})
}
