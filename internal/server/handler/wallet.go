package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hlwatch/hlwatch/internal/domain"
)

// WalletHooks are called after a wallet is added to or removed from the
// store, so the caller can adjust live stream subscriptions.
type WalletHooks struct {
	OnAdded   func(address string)
	OnRemoved func(address string)
}

// WalletHandler serves the tracked-wallet CRUD endpoints.
type WalletHandler struct {
	store  domain.WalletStore
	hooks  WalletHooks
	logger *slog.Logger
}

// NewWalletHandler creates a WalletHandler with the given store and hooks.
func NewWalletHandler(store domain.WalletStore, hooks WalletHooks, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		store:  store,
		hooks:  hooks,
		logger: logger.With(slog.String("handler", "wallet")),
	}
}

// ListWallets returns all tracked wallets.
// GET /api/wallets
func (h *WalletHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.store.Wallets(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list wallets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list wallets")
		return
	}
	if wallets == nil {
		wallets = []domain.Wallet{}
	}
	writeJSON(w, http.StatusOK, wallets)
}

type addWalletRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

type walletResponse struct {
	Success bool   `json:"success"`
	Address string `json:"address"`
	Name    string `json:"name"`
}

// AddWallet starts tracking a wallet address.
// POST /api/wallets
func (h *WalletHandler) AddWallet(w http.ResponseWriter, r *http.Request) {
	var req addWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}
	if !common.IsHexAddress(req.Address) {
		writeError(w, http.StatusBadRequest, "invalid Ethereum address format")
		return
	}

	wallet, err := h.store.AddWallet(r.Context(), req.Address, req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrWalletLimit) {
			writeError(w, http.StatusBadRequest, "maximum number of wallets reached")
			return
		}
		h.logger.ErrorContext(r.Context(), "add wallet failed",
			slog.String("address", req.Address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to add wallet")
		return
	}

	if h.hooks.OnAdded != nil {
		h.hooks.OnAdded(wallet.Address)
	}

	writeJSON(w, http.StatusCreated, walletResponse{
		Success: true,
		Address: wallet.Address,
		Name:    wallet.Name,
	})
}

type renameWalletRequest struct {
	Name *string `json:"name"`
}

// RenameWallet updates a tracked wallet's display name.
// PATCH /api/wallets/{address}
func (h *WalletHandler) RenameWallet(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	var req renameWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.store.RenameWallet(r.Context(), address, *req.Name); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "wallet not tracked")
			return
		}
		h.logger.ErrorContext(r.Context(), "rename wallet failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to rename wallet")
		return
	}

	writeJSON(w, http.StatusOK, walletResponse{
		Success: true,
		Address: strings.ToLower(address),
		Name:    *req.Name,
	})
}

// RemoveWallet stops tracking a wallet.
// DELETE /api/wallets/{address}
func (h *WalletHandler) RemoveWallet(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	if err := h.store.RemoveWallet(r.Context(), address); err != nil {
		h.logger.ErrorContext(r.Context(), "remove wallet failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to remove wallet")
		return
	}

	if h.hooks.OnRemoved != nil {
		h.hooks.OnRemoved(strings.ToLower(address))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
