package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hlwatch/hlwatch/internal/domain"
)

// SubscriptionHandler serves the push subscription endpoints.
type SubscriptionHandler struct {
	store          domain.SubscriptionStore
	vapidPublicKey string
	logger         *slog.Logger
}

// NewSubscriptionHandler creates a SubscriptionHandler. vapidPublicKey may be
// empty when push delivery is not configured.
func NewSubscriptionHandler(store domain.SubscriptionStore, vapidPublicKey string, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		store:          store,
		vapidPublicKey: vapidPublicKey,
		logger:         logger.With(slog.String("handler", "subscription")),
	}
}

// Subscribe registers a browser push subscription.
// POST /api/subscribe
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var sub domain.PushSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "invalid subscription object")
		return
	}

	if err := h.store.AddPushSubscription(r.Context(), sub); err != nil {
		h.logger.ErrorContext(r.Context(), "add push subscription failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to store subscription")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe removes a push subscription by endpoint.
// DELETE /api/subscribe
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	if err := h.store.RemovePushSubscription(r.Context(), req.Endpoint); err != nil {
		h.logger.ErrorContext(r.Context(), "remove push subscription failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to remove subscription")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// VAPIDPublicKey serves the public key browsers need to create a push
// subscription. Returns 503 when push delivery is not configured.
// GET /api/vapid-public-key
func (h *SubscriptionHandler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	if h.vapidPublicKey == "" {
		writeError(w, http.StatusServiceUnavailable, "push notifications not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": h.vapidPublicKey})
}
