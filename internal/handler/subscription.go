package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/service"
)

type SubscriptionHandler struct {
	svc    service.SubscriptionService
	logger *slog.Logger
}

func NewSubscriptionHandler(svc service.SubscriptionService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, logger: logger}
}

// Register handles POST /subscriptions.
func (h *SubscriptionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.svc.Register(r.Context(), req)
	if err != nil {
		if apperrors.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("subscription registration failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, sub)
}
