package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/model"
	"github.com/rspatil/orderdesk/internal/service"
)

type OrderHandler struct {
	svc    service.OrderService
	logger *slog.Logger
}

func NewOrderHandler(svc service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

// Create handles POST /orders: the internal dine-in creation path.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		if apperrors.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("order creation failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Status model.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		switch {
		case apperrors.IsNotFound(err):
			writeError(w, http.StatusNotFound, "order not found")
		case apperrors.IsInvalidTransition(err):
			writeError(w, http.StatusConflict, err.Error())
		case apperrors.IsValidation(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("status update failed", slog.String("id", id), slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Get handles GET /orders/{id}, used by dashboards following a notification
// deep link.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	order, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("order lookup failed", slog.String("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, order)
}
